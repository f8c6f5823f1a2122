// Package status projects raw push_status snapshots into the normalized
// Status value consumed by the job tracker and by callers.
package status
