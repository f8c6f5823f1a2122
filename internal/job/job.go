package job

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/bambu-core/internal/protocol"
	"github.com/nerrad567/bambu-core/internal/status"
)

// Job is one print job.
type Job struct {
	mu sync.RWMutex

	status        status.Status
	prepareStatus *status.Status
	finishStatus  *status.Status

	gcodeThumbnail  []byte
	sliceInfo       *SliceInfo
	modelSettings   []byte
	projectSettings []byte
	plateInfo       []byte
	latestThumbnail string
	archivePath     string
}

// New creates a job from its first snapshot. A PREPARE snapshot is kept as
// the prepare status and a FINISH snapshot as the finish status.
func New(s status.Status) *Job {
	j := &Job{status: s}
	switch s.State {
	case protocol.StatePrepare:
		j.prepareStatus = &s
	case protocol.StateFinish:
		j.finishStatus = &s
	}
	return j
}

// ID returns "<taskId>_<subtaskId>".
func (j *Job) ID() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status.JobID()
}

// SameIdentity reports whether both jobs describe the same print.
func (j *Job) SameIdentity(other *Job) bool {
	if j == nil || other == nil {
		return false
	}
	return j.ID() == other.ID()
}

// End marks the job as finished at the current time.
func (j *Job) End(s status.Status) *Job {
	return j.EndAt(s, time.Now())
}

// EndAt stamps the finish time, records s as both the current and the
// finish status, and returns the job for chaining.
func (j *Job) EndAt(s status.Status, now time.Time) *Job {
	j.mu.Lock()
	defer j.mu.Unlock()

	finished := now
	s.FinishTime = &finished
	j.status = s
	j.finishStatus = &s
	return j
}

// UpdateStatus replaces the current status. A finish time already stamped
// on the job is carried over.
func (j *Job) UpdateStatus(s status.Status) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status.FinishTime != nil {
		s.FinishTime = j.status.FinishTime
	}
	j.status = s
}

// UpdateThumbnail records the path of the most recent camera thumbnail.
func (j *Job) UpdateThumbnail(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.latestThumbnail = path
}

// SetArchivePath records where the job's project archive was stored locally.
func (j *Job) SetArchivePath(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.archivePath = path
}

// Status returns a copy of the current status.
func (j *Job) Status() status.Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// PrepareStatus returns the snapshot the job was prepared with, if any.
func (j *Job) PrepareStatus() (status.Status, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.prepareStatus == nil {
		return status.Status{}, false
	}
	return *j.prepareStatus, true
}

// FinishStatus returns the snapshot the job ended with, if any.
func (j *Job) FinishStatus() (status.Status, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.finishStatus == nil {
		return status.Status{}, false
	}
	return *j.finishStatus, true
}

// Ended reports whether the job has a finish time.
func (j *Job) Ended() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status.FinishTime != nil
}

// State returns the reported gcode state.
func (j *Job) State() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status.State
}

// Speed returns the speed profile of the latest snapshot.
func (j *Job) Speed() status.Speed {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status.Speed
}

// ChamberLight returns the chamber light entry of the latest snapshot.
func (j *Job) ChamberLight() (status.Light, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for _, l := range j.status.Lights {
		if l.Name == "chamber_light" {
			return l, true
		}
	}
	return status.Light{}, false
}

// StartTime returns when the printer started the job.
func (j *Job) StartTime() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status.StartTime
}

// EndTime returns the finish time, or nil while the job is running.
func (j *Job) EndTime() *time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status.FinishTime
}

// PrintType returns "cloud", "local" or "system".
func (j *Job) PrintType() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status.PrintType
}

// SubtaskName returns the name of the printed plate's project file.
func (j *Job) SubtaskName() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status.SubtaskName
}

// GcodeThumbnail returns the plate preview image from the archive.
func (j *Job) GcodeThumbnail() []byte {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.gcodeThumbnail
}

// SliceInfo returns the parsed slicer summary, or nil if not yet known.
func (j *Job) SliceInfo() *SliceInfo {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.sliceInfo
}

// ModelSettings returns the raw model_settings.config contents.
func (j *Job) ModelSettings() []byte {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.modelSettings
}

// ProjectSettings returns the raw project_settings.config contents.
func (j *Job) ProjectSettings() []byte {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.projectSettings
}

// PlateInfo returns the raw Metadata/<plate>.json contents.
func (j *Job) PlateInfo() []byte {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.plateInfo
}

// LatestThumbnail returns the local path of the newest camera thumbnail.
func (j *Job) LatestThumbnail() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.latestThumbnail
}

// ArchivePath returns the local path of the downloaded project archive.
func (j *Job) ArchivePath() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.archivePath
}

// ForgetLocalFiles clears the scratch file paths, for jobs restored after
// the scratch directory was emptied.
func (j *Job) ForgetLocalFiles() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.latestThumbnail = ""
	j.archivePath = ""
}

// String implements fmt.Stringer.
func (j *Job) String() string {
	s := j.Status()
	return fmt.Sprintf("job %s (%s, %s)", s.JobID(), s.SubtaskName, s.State)
}

// snapshot is the persisted form of a Job. Archive blobs are not persisted,
// only the slice info parsed from them.
type snapshot struct {
	ID              string         `json:"id"`
	Status          status.Status  `json:"status"`
	PrepareStatus   *status.Status `json:"prepareStatus,omitempty"`
	FinishStatus    *status.Status `json:"finishStatus,omitempty"`
	SliceInfo       *SliceInfo     `json:"sliceInfo,omitempty"`
	LatestThumbnail string         `json:"latestThumbnail,omitempty"`
	ArchivePath     string         `json:"archivePath,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (j *Job) MarshalJSON() ([]byte, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return json.Marshal(snapshot{
		ID:              j.status.JobID(),
		Status:          j.status,
		PrepareStatus:   j.prepareStatus,
		FinishStatus:    j.finishStatus,
		SliceInfo:       j.sliceInfo,
		LatestThumbnail: j.latestThumbnail,
		ArchivePath:     j.archivePath,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (j *Job) UnmarshalJSON(b []byte) error {
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decoding job: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = s.Status
	j.prepareStatus = s.PrepareStatus
	j.finishStatus = s.FinishStatus
	j.sliceInfo = s.SliceInfo
	j.latestThumbnail = s.LatestThumbnail
	j.archivePath = s.ArchivePath
	return nil
}
