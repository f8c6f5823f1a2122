package tracker

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/nerrad567/bambu-core/internal/cache"
	"github.com/nerrad567/bambu-core/internal/event"
	"github.com/nerrad567/bambu-core/internal/job"
	"github.com/nerrad567/bambu-core/internal/protocol"
	"github.com/nerrad567/bambu-core/internal/status"
)

// Cache keys of the persisted tracker state.
const (
	KeyCurrentJob   = "printer-status:current-job"
	KeyLastJob      = "printer-status:last-job"
	KeyLatestStatus = "printer-status:latest-status"
)

// Machine states and events.
const (
	stateIdle   = "idle"
	stateActive = "active"

	eventBegin = "begin"
	eventClose = "close"
)

// Logger is the logging interface used by the tracker.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Tracker is the print-job state machine. It is safe for concurrent use;
// OnStatus calls are expected to arrive serially from the telemetry handler.
type Tracker struct {
	mu      sync.RWMutex
	machine *fsm.FSM
	current *job.Job
	last    *job.Job
	latest  *status.Status
	report  *protocol.PushStatus // last complete report, base for partial ones
	aux     map[int]protocol.AMSReading

	jobs     cache.JSON[job.Job]
	statuses cache.JSON[status.Status]

	jobEvents    *event.Emitter[*job.Job]
	statusEvents *event.Emitter[status.Status]

	logger Logger
	now    func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides the time source used for finish times and projections.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// New creates an idle tracker persisting through c.
func New(c cache.Cache, opts ...Option) *Tracker {
	t := &Tracker{
		aux:          make(map[int]protocol.AMSReading),
		jobs:         cache.NewJSON[job.Job](c),
		statuses:     cache.NewJSON[status.Status](c),
		jobEvents:    event.NewEmitter[*job.Job](),
		statusEvents: event.NewEmitter[status.Status](),
		logger:       noopLogger{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.machine = fsm.NewFSM(
		stateIdle,
		fsm.Events{
			{Name: eventBegin, Src: []string{stateIdle}, Dst: stateActive},
			{Name: eventClose, Src: []string{stateActive}, Dst: stateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				t.logger.Debug("printer state changed", "from", e.Src, "to", e.Dst)
			},
		},
	)

	return t
}

// Restore loads the persisted state from the cache. It emits no events:
// a job that was current before a restart is still current, not restarted.
// Local file paths are dropped from restored jobs.
func (t *Tracker) Restore(ctx context.Context) error {
	current, err := t.jobs.Get(ctx, KeyCurrentJob)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return err
	}
	last, err := t.jobs.Get(ctx, KeyLastJob)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return err
	}
	latest, err := t.statuses.Get(ctx, KeyLatestStatus)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return err
	}

	// The file transfer service empties its scratch directory on start.
	for _, j := range []*job.Job{current, last} {
		if j != nil {
			j.ForgetLocalFiles()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = current
	t.last = last
	t.latest = latest
	if current != nil {
		t.machine.SetState(stateActive)
	} else {
		t.machine.SetState(stateIdle)
	}

	if current != nil {
		t.logger.Info("restored current job", "job", current.ID())
	}
	return nil
}

// OnJob registers fn for print:start, print:update or print:finish.
func (t *Tracker) OnJob(name event.Name, fn func(*job.Job)) (off func()) {
	return t.jobEvents.On(name, fn)
}

// OnAnyJob registers fn for every job lifecycle event.
func (t *Tracker) OnAnyJob(fn func(event.Name, *job.Job)) (off func()) {
	return t.jobEvents.OnAny(fn)
}

// OnStatusChange registers fn for every published status.
func (t *Tracker) OnStatusChange(fn func(status.Status)) (off func()) {
	return t.statusEvents.On(event.Status, fn)
}

// CurrentJob returns the active job, or nil when idle.
func (t *Tracker) CurrentJob() *job.Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// LastJob returns the most recently ended job, or nil.
func (t *Tracker) LastJob() *job.Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// LatestStatus returns the last published status.
func (t *Tracker) LatestStatus() (status.Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.latest == nil {
		return status.Status{}, false
	}
	return *t.latest, true
}

// Idle reports whether no job is active.
func (t *Tracker) Idle() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.machine.Is(stateIdle)
}

// IsCurrent reports whether j is still the active job.
func (t *Tracker) IsCurrent(j *job.Job) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return j != nil && t.current == j
}

// AMSReadings returns a copy of the auxiliary AMS table.
func (t *Tracker) AMSReadings() map[int]protocol.AMSReading {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.aux)
}

// OnPushInfo records AMS humidity and temperature readings from a cleaned
// push_info line. Other lines are ignored. It reports whether the table changed.
func (t *Tracker) OnPushInfo(info protocol.CleanPushInfo) bool {
	bay, reading, ok := protocol.ParseAMSReading(info)
	if !ok {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.aux[bay] = reading
	return true
}
