// Package transfer fetches print artifacts from the printer over its FTPS
// side channel without ever blocking the telemetry path.
//
// On print:start the job's .3mf archive is downloaded from /cache and handed
// to the job for enrichment. On print:update the newest camera thumbnail in
// /ipcam/thumbnail is downloaded, at most once per ThumbnailInterval. On
// print:finish the job's scratch files are deleted and any pending retry or
// refresh for that job is cancelled.
//
// The transport is not safe for concurrent use, so every connect, list and
// download goes through one gate (a weighted semaphore of size one, which
// serves waiters in FIFO order). Archive fetches retry every RetryDelay
// until they succeed, the server reports the file missing, or the job is no
// longer current.
package transfer
