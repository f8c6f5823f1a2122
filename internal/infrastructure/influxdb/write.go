package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/bambu-core/internal/event"
	"github.com/nerrad567/bambu-core/internal/job"
	"github.com/nerrad567/bambu-core/internal/status"
)

// Measurement names.
const (
	MeasurementStatus = "printer_status"
	MeasurementJob    = "printer_job"
)

// RecordStatus writes one published status. A status identical to the last
// one recorded is skipped.
func (r *Recorder) RecordStatus(s status.Status) {
	fields := statusFields(s)
	if !r.changed(s.State, fields) {
		return
	}
	r.writeAPI.WritePoint(write.NewPoint(MeasurementStatus, statusTags(r.serial, s), fields, time.Now()))
}

// RecordJob writes a print:start or print:finish point. Updates are already
// covered by status points and are ignored.
func (r *Recorder) RecordJob(name event.Name, j *job.Job) {
	if j == nil || name == event.PrintUpdate || r.Closed() {
		return
	}
	r.writeAPI.WritePoint(JobPoint(r.serial, name, j, time.Now()))
}

// StatusPoint builds the printer_status point for s.
//
// Tags are low-cardinality (serial, state); everything that changes with
// each snapshot is a field.
func StatusPoint(serial string, s status.Status, at time.Time) *write.Point {
	return write.NewPoint(MeasurementStatus, statusTags(serial, s), statusFields(s), at)
}

func statusTags(serial string, s status.Status) map[string]string {
	return map[string]string{
		"serial": serial,
		"state":  s.State,
	}
}

func statusFields(s status.Status) map[string]any {
	t := s.Temperatures
	return map[string]any{
		"progress_percent":  s.ProgressPercent,
		"layer":             s.CurrentLayer,
		"max_layers":        s.MaxLayers,
		"remaining_s":       int64(s.RemainingTime / time.Second),
		"bed_temp":          t.Bed.Actual,
		"bed_target":        t.Bed.Target,
		"nozzle_temp":       t.Extruder.Actual,
		"nozzle_target":     t.Extruder.Target,
		"chamber_temp":      t.Chamber.Actual,
		"fan_cooling":       s.Fans.Cooling,
		"fan_aux":           s.Fans.Big1,
		"fan_chamber":       s.Fans.Big2,
		"fan_heatbreak":     s.Fans.Heatbreak,
		"speed_level":       s.Speed.Level,
		"hms_count":         len(s.HMS),
		"print_stage":       s.PrintStage.Value,
		"estimated_total_s": int64(s.EstimatedTotalTime / time.Second),
	}
}

// JobPoint builds the printer_job point for a lifecycle event.
func JobPoint(serial string, name event.Name, j *job.Job, at time.Time) *write.Point {
	s := j.Status()
	fields := map[string]any{
		"job_id":       j.ID(),
		"subtask_name": s.SubtaskName,
		"state":        s.State,
		"progress":     s.ProgressPercent,
	}
	if info := j.SliceInfo(); info != nil {
		fields["prediction_s"] = info.Prediction
		fields["weight_g"] = info.Weight
	}
	if end := j.EndTime(); end != nil && !s.StartTime.IsZero() {
		fields["duration_s"] = int64(end.Sub(s.StartTime) / time.Second)
	}

	return write.NewPoint(
		MeasurementJob,
		map[string]string{
			"serial":     serial,
			"event":      string(name),
			"print_type": s.PrintType,
		},
		fields,
		at,
	)
}
