// Package tracker reconstructs print-job boundaries from the printer's
// stream of push_status snapshots.
//
// The device reports state continuously and repeats itself: the same FINISH
// snapshot arrives many times after a print ends, and a client may attach in
// the middle of a print without ever seeing PREPARE. The Tracker turns that
// stream into exactly one print:start and one print:finish per job, with
// print:update in between, and keeps the current job, the last job and the
// latest status in a Cache so a restart resumes without a spurious start.
//
// Snapshot handling:
//
//	FINISH   current job      -> end it, move it to last job, print:finish
//	         no current/last  -> synthesize an ended job, print:finish
//	         no current, last -> refresh last job silently
//	PREPARE  current job      -> end it, print:finish; then new job, print:start
//	         otherwise        -> new job, print:start
//	IDLE     current job      -> end it, move it to last job, print:finish
//	         no current job   -> status only
//	other    current job      -> update it, print:update
//	         no current job   -> new job, print:start, print:update
//
// Firmware also sends partial reports carrying only changed members. These
// are merged onto the last complete report before the table above applies;
// a partial report with no complete one before it only refreshes the
// published status.
//
// The printer is idle exactly when there is no current job, and the published
// status then reports IDLE whatever the raw snapshot said.
package tracker
