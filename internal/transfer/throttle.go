package transfer

import (
	"sync"
	"time"

	"github.com/nerrad567/bambu-core/internal/job"
)

// throttle runs fire at most once per interval with the most recent job
// passed to Trigger. The first Trigger of a quiet period arms a timer; later
// ones only replace the pending job.
type throttle struct {
	interval time.Duration
	fire     func(*job.Job)

	mu      sync.Mutex
	timer   *time.Timer
	pending *job.Job
	stopped bool
}

func newThrottle(interval time.Duration, fire func(*job.Job)) *throttle {
	return &throttle{interval: interval, fire: fire}
}

// Trigger schedules fire for j.
func (t *throttle) Trigger(j *job.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.pending = j
	if t.timer == nil {
		t.timer = time.AfterFunc(t.interval, t.flush)
	}
}

func (t *throttle) flush() {
	t.mu.Lock()
	j := t.pending
	t.pending = nil
	t.timer = nil
	stopped := t.stopped
	t.mu.Unlock()

	if j != nil && !stopped {
		t.fire(j)
	}
}

// Cancel drops a pending call for j.
func (t *throttle) Cancel(j *job.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == j {
		t.pending = nil
	}
}

// Stop drops any pending call and disables the throttle.
func (t *throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.pending = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
