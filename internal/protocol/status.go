package protocol

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Gcode lifecycle states reported in push_status.
const (
	StatePrepare = "PREPARE"
	StateRunning = "RUNNING"
	StatePause   = "PAUSE"
	StateFinish  = "FINISH"
	StateFailed  = "FAILED"
)

// Print types reported in push_status.
const (
	PrintTypeCloud  = "cloud"
	PrintTypeLocal  = "local"
	PrintTypeSystem = "system"
)

// PushStatus is the full printer status snapshot (print/push_status).
//
// Nested objects that firmware may omit are pointers; every other field
// decodes to its zero value when absent.
type PushStatus struct {
	Command    string `json:"command"`
	SequenceID Text   `json:"sequence_id"`

	GcodeState     string `json:"gcode_state"`
	GcodeFile      string `json:"gcode_file"`
	GcodeStartTime Text   `json:"gcode_start_time"`
	PrintType      string `json:"print_type"`

	TaskID      Text   `json:"task_id"`
	SubtaskID   Text   `json:"subtask_id"`
	SubtaskName string `json:"subtask_name"`
	ProjectID   Text   `json:"project_id"`
	ProfileID   Text   `json:"profile_id"`

	LayerNum        int   `json:"layer_num"`
	TotalLayerNum   int   `json:"total_layer_num"`
	MCPercent       int   `json:"mc_percent"`
	MCRemainingTime int   `json:"mc_remaining_time"`
	MCPrintStage    Text  `json:"mc_print_stage"`
	StgCur          int   `json:"stg_cur"`
	Stg             []int `json:"stg"`

	SpdLvl int `json:"spd_lvl"`
	SpdMag int `json:"spd_mag"`

	BigFan1Speed      Text `json:"big_fan1_speed"`
	BigFan2Speed      Text `json:"big_fan2_speed"`
	CoolingFanSpeed   Text `json:"cooling_fan_speed"`
	HeatbreakFanSpeed Text `json:"heatbreak_fan_speed"`
	FanGear           int  `json:"fan_gear"`

	BedTemper          float64 `json:"bed_temper"`
	BedTargetTemper    float64 `json:"bed_target_temper"`
	NozzleTemper       float64 `json:"nozzle_temper"`
	NozzleTargetTemper float64 `json:"nozzle_target_temper"`
	ChamberTemper      float64 `json:"chamber_temper"`

	LightsReport []LightReport `json:"lights_report"`
	IPCam        *IPCam        `json:"ipcam"`
	AMS          *AMSStatus    `json:"ams"`
	HMS          []HMSCode     `json:"hms"`

	SDCard           bool   `json:"sdcard"`
	WifiSignal       string `json:"wifi_signal"`
	PrintError       int    `json:"print_error"`
	MCPrintErrorCode Text   `json:"mc_print_error_code"`

	// fields holds the top-level members as they arrived. It is nil for
	// snapshots built in code, which count as complete.
	fields map[string]json.RawMessage
}

// Has reports whether key was present in the decoded report. Snapshots
// built in code report every key as present.
func (s *PushStatus) Has(key string) bool {
	if s.fields == nil {
		return true
	}
	_, ok := s.fields[key]
	return ok
}

// Complete reports whether the snapshot carries the gcode state. Firmware
// sends partial reports holding only the members that changed.
func (s *PushStatus) Complete() bool {
	return s.Has("gcode_state")
}

// Merge overlays the members present in s onto base and returns the merged
// snapshot. Nested objects are replaced, not merged. base is not modified;
// a nil base returns s.
func (s *PushStatus) Merge(base *PushStatus) (*PushStatus, error) {
	if base == nil || s.fields == nil {
		return s, nil
	}
	merged, err := base.members()
	if err != nil {
		return nil, err
	}
	maps.Copy(merged, s.fields)
	return decodePushStatus(merged)
}

func (s *PushStatus) members() (map[string]json.RawMessage, error) {
	if s.fields != nil {
		return maps.Clone(s.fields), nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding push_status: %w", err)
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("encoding push_status: %w", err)
	}
	return out, nil
}

func decodePushStatus(fields map[string]json.RawMessage) (*PushStatus, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: push_status: %w", ErrMalformed, err)
	}
	var s PushStatus
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: push_status: %w", ErrMalformed, err)
	}
	s.fields = fields
	return &s, nil
}

// LightReport is one entry of lights_report.
type LightReport struct {
	Node string `json:"node"`
	Mode string `json:"mode"`
}

// IPCam holds the camera settings block.
type IPCam struct {
	Dev        Text   `json:"ipcam_dev"`
	Record     string `json:"ipcam_record"`
	Resolution string `json:"resolution"`
	Timelapse  string `json:"timelapse"`
}

// AMSStatus is the ams block of push_status.
type AMSStatus struct {
	AMS           []AMSUnit `json:"ams"`
	TrayNow       Text      `json:"tray_now"`
	TrayTar       Text      `json:"tray_tar"`
	TrayExistBits Text      `json:"tray_exist_bits"`
	Version       int       `json:"version"`
}

// AMSUnit is one filament feeder.
type AMSUnit struct {
	ID       Text       `json:"id"`
	Humidity Text       `json:"humidity"`
	Temp     Text       `json:"temp"`
	Tray     []*AMSTray `json:"tray"`
}

// AMSTray is one bay of a feeder. Firmware reports an empty bay either as
// null or as an object carrying only its id.
type AMSTray struct {
	ID            Text   `json:"id"`
	TrayColor     string `json:"tray_color"`
	TrayType      string `json:"tray_type"`
	TrayWeight    Text   `json:"tray_weight"`
	TrayDiameter  Text   `json:"tray_diameter"`
	TrayIDName    string `json:"tray_id_name"`
	TrayInfoIdx   string `json:"tray_info_idx"`
	DryingTemp    Text   `json:"drying_temp"`
	DryingTime    Text   `json:"drying_time"`
	NozzleTempMin Text   `json:"nozzle_temp_min"`
	NozzleTempMax Text   `json:"nozzle_temp_max"`
	BedTemp       Text   `json:"bed_temp"`
	BedTempType   Text   `json:"bed_temp_type"`
	Remain        int    `json:"remain"`
}

// Loaded reports whether the bay holds a spool.
func (t *AMSTray) Loaded() bool {
	return t != nil && t.TrayType != ""
}

// HMSCode is a raw health-management alert.
type HMSCode struct {
	Attr int64 `json:"attr"`
	Code int64 `json:"code"`
}
