package tracker

import (
	"context"
	"time"

	"github.com/nerrad567/bambu-core/internal/event"
	"github.com/nerrad567/bambu-core/internal/job"
	"github.com/nerrad567/bambu-core/internal/protocol"
	"github.com/nerrad567/bambu-core/internal/status"
)

type jobEvent struct {
	name event.Name
	job  *job.Job
}

// outbox collects the effects of one transition. They are applied after
// the tracker lock is released so handlers may call back into the tracker.
type outbox struct {
	events  []jobEvent
	writes  map[string]*job.Job
	deletes map[string]bool
	latest  status.Status
}

func (o *outbox) emit(name event.Name, j *job.Job) {
	o.events = append(o.events, jobEvent{name: name, job: j})
}

func (o *outbox) persist(key string, j *job.Job) {
	if o.writes == nil {
		o.writes = make(map[string]*job.Job)
		o.deletes = make(map[string]bool)
	}
	if j == nil {
		delete(o.writes, key)
		o.deletes[key] = true
		return
	}
	delete(o.deletes, key)
	o.writes[key] = j
}

// OnStatus feeds one push_status snapshot through the state machine, then
// persists the new state and emits the resulting events in order: job
// lifecycle events first, then status.
//
// Partial reports are merged onto the last complete one. A partial report
// with nothing to merge onto only refreshes telemetry.
func (t *Tracker) OnStatus(ctx context.Context, raw *protocol.PushStatus) {
	if raw == nil {
		return
	}

	now := t.now()
	var out outbox

	t.mu.Lock()
	merged, err := raw.Merge(t.report)
	if err != nil {
		t.mu.Unlock()
		t.logger.Warn("merging partial status failed", "error", err)
		return
	}
	if !merged.Complete() {
		t.publishTelemetry(merged, now, &out)
		t.mu.Unlock()
		t.flush(ctx, &out)
		return
	}
	t.report = merged
	snap := status.ProjectAt(merged, t.aux, now)

	switch snap.State {
	case protocol.StateFinish:
		switch {
		case t.current != nil:
			ended := t.current.EndAt(snap, now)
			t.setLast(ended, &out)
			t.clearCurrent(ctx, &out)
			out.emit(event.PrintFinish, ended)
		case t.last == nil:
			ended := job.New(snap).EndAt(snap, now)
			t.setLast(ended, &out)
			out.emit(event.PrintFinish, ended)
		default:
			t.last.UpdateStatus(snap)
			out.persist(KeyLastJob, t.last)
		}

	case protocol.StatePrepare:
		t.closeCurrent(ctx, now, &out)
		t.setCurrent(ctx, job.New(snap), &out)

	case status.StateIdle:
		// The printer dropped the job without reporting FINISH.
		t.closeCurrent(ctx, now, &out)

	default:
		if t.current != nil {
			t.current.UpdateStatus(snap)
			out.persist(KeyCurrentJob, t.current)
		} else {
			t.setCurrent(ctx, job.New(snap), &out)
		}
		out.emit(event.PrintUpdate, t.current)
	}

	t.publish(snap, &out)
	t.mu.Unlock()

	t.flush(ctx, &out)
}

// publishTelemetry publishes a partial report without a lifecycle
// transition. The job identity and state come from the current job, if any.
// Callers hold t.mu.
func (t *Tracker) publishTelemetry(raw *protocol.PushStatus, now time.Time, out *outbox) {
	snap := status.ProjectAt(raw, t.aux, now)
	if t.current != nil {
		cur := t.current.Status()
		snap.State = cur.State
		snap.TaskID, snap.SubtaskID = cur.TaskID, cur.SubtaskID
		snap.TaskName, snap.SubtaskName = cur.TaskName, cur.SubtaskName
		snap.GcodeFile, snap.PrintType = cur.GcodeFile, cur.PrintType
		snap.ProjectID, snap.ProfileID = cur.ProjectID, cur.ProfileID
	}
	t.publish(snap, out)
}

// publish records snap as the latest status, reporting IDLE when no job is
// current. Callers hold t.mu.
func (t *Tracker) publish(snap status.Status, out *outbox) {
	latest := snap
	if t.current == nil {
		latest.State = status.StateIdle
	}
	t.latest = &latest
	out.latest = latest
}

// closeCurrent ends the current job with its own last status and emits
// print:finish. Callers hold t.mu.
func (t *Tracker) closeCurrent(ctx context.Context, now time.Time, out *outbox) {
	if t.current == nil {
		return
	}
	ended := t.current.EndAt(t.current.Status(), now)
	t.setLast(ended, out)
	t.clearCurrent(ctx, out)
	out.emit(event.PrintFinish, ended)
}

// setCurrent makes j the current job and emits print:start, unless the
// current job already has j's identity, in which case j replaces it quietly.
// Callers hold t.mu.
func (t *Tracker) setCurrent(ctx context.Context, j *job.Job, out *outbox) {
	if t.current != nil && t.current.SameIdentity(j) {
		t.current = j
		out.persist(KeyCurrentJob, j)
		return
	}

	if t.current == nil {
		if err := t.machine.Event(ctx, eventBegin); err != nil {
			t.logger.Warn("state machine rejected job start", "error", err)
		}
	}
	t.current = j
	out.persist(KeyCurrentJob, j)
	out.emit(event.PrintStart, j)
}

// clearCurrent drops the current job. Callers hold t.mu.
func (t *Tracker) clearCurrent(ctx context.Context, out *outbox) {
	if t.current == nil {
		return
	}
	if err := t.machine.Event(ctx, eventClose); err != nil {
		t.logger.Warn("state machine rejected job close", "error", err)
	}
	t.current = nil
	out.persist(KeyCurrentJob, nil)
}

// setLast records j as the last job. Callers hold t.mu.
func (t *Tracker) setLast(j *job.Job, out *outbox) {
	t.last = j
	out.persist(KeyLastJob, j)
}

func (t *Tracker) flush(ctx context.Context, out *outbox) {
	for key, j := range out.writes {
		if err := t.jobs.Set(ctx, key, j); err != nil {
			t.logger.Warn("persisting tracker state failed", "key", key, "error", err)
		}
	}
	for key := range out.deletes {
		if err := t.jobs.Set(ctx, key, nil); err != nil {
			t.logger.Warn("clearing tracker state failed", "key", key, "error", err)
		}
	}
	if err := t.statuses.Set(ctx, KeyLatestStatus, &out.latest); err != nil {
		t.logger.Warn("persisting latest status failed", "error", err)
	}

	for _, e := range out.events {
		t.logger.Debug("job event", "event", e.name, "job", e.job.ID())
		t.jobEvents.Emit(e.name, e.job)
	}
	t.statusEvents.Emit(event.Status, out.latest)
}
