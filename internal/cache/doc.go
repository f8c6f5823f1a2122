// Package cache is the key/value store the job tracker persists its state
// through, so the current job, last job and latest status survive restarts.
//
// # Backends
//
//   - Memory: in-process LRU (golang-lru), the default; state is lost on exit
//   - SQLite: the cache_entries table created by the embedded migrations
//   - Redis: one key per entry under a configurable prefix
//
// All backends return ErrNotFound for missing keys. JSON wraps any backend
// with typed access; storing a nil value deletes the key.
//
// # Usage
//
//	store, err := cache.NewMemory(128)
//	if err != nil {
//	    return err
//	}
//	jobs := cache.NewJSON[job.Job](store)
//	if err := jobs.Set(ctx, "printer-status:current-job", j); err != nil {
//	    return err
//	}
//	current, err := jobs.Get(ctx, "printer-status:current-job")
//	if errors.Is(err, cache.ErrNotFound) {
//	    // nothing persisted yet
//	}
//
// # Thread Safety
//
// Every backend is safe for concurrent use.
package cache
