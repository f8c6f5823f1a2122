// Package job models a single print job: its identity, the status snapshots
// captured at its boundaries, and the artifacts enriched from the job's
// archive and camera.
//
// A Job is created by the tracker when a print begins (or is first observed),
// updated on every snapshot while it is current, and ended exactly once when
// the printer reports FINISH or a new job replaces it. Enrichment from the
// file-transfer service happens concurrently with tracker updates, so every
// method is safe for concurrent use.
//
// Identity is "<taskId>_<subtaskId>". Two Job values with the same identity
// describe the same print.
package job
