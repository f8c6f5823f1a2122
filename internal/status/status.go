package status

import (
	"time"

	"github.com/nerrad567/bambu-core/internal/protocol"
)

// StateIdle replaces the reported gcode state whenever no job is active.
const StateIdle = "IDLE"

// Status is one normalized snapshot. It is a value: callers that need to
// change a field work on their own copy.
type Status struct {
	TaskID      string `json:"taskId"`
	SubtaskID   string `json:"subtaskId"`
	TaskName    string `json:"taskName"`
	SubtaskName string `json:"subtaskName"`
	GcodeFile   string `json:"gcodeFile"`
	ProjectID   string `json:"projectId"`
	ProfileID   string `json:"profileId"`
	PrintType   string `json:"printType"`

	State        string `json:"state"`
	CurrentLayer int    `json:"currentLayer"`
	MaxLayers    int    `json:"maxLayers"`

	ProgressPercent    int           `json:"progressPercent"`
	StartTime          time.Time     `json:"startTime"`
	FinishTime         *time.Time    `json:"finishTime,omitempty"`
	RemainingTime      time.Duration `json:"remainingTime"`
	EstimatedTotalTime time.Duration `json:"estimatedTotalTime"`

	PrintStage   PrintStage   `json:"printStage"`
	Speed        Speed        `json:"speed"`
	Fans         Fans         `json:"fans"`
	Temperatures Temperatures `json:"temperatures"`
	Lights       []Light      `json:"lights"`
	IPCam        IPCam        `json:"ipcam"`
	Stream       string       `json:"stream,omitempty"`
	AMSes        []AMS        `json:"amses"`
	HMS          []HMS        `json:"hms"`

	SDCard     bool   `json:"sdCard"`
	WifiSignal string `json:"wifiSignal"`
	PrintError int    `json:"printError"`
	ErrorCode  string `json:"errorCode,omitempty"`
}

// PrintStage is the current stage code with its display text.
type PrintStage struct {
	Value           int    `json:"value"`
	Text            string `json:"text"`
	CompletedStages []int  `json:"completedStages,omitempty"`
}

// Speed is the print speed profile.
type Speed struct {
	Level   int    `json:"level"`
	Name    string `json:"name"`
	Percent int    `json:"percent"`
}

// Fans holds fan speeds as percentages.
type Fans struct {
	Big1      int `json:"big_1"`
	Big2      int `json:"big_2"`
	Cooling   int `json:"cooling"`
	Heatbreak int `json:"heatbreak"`
	Gear      int `json:"gear"`
}

// Temperature is a target/actual pair in degrees Celsius.
type Temperature struct {
	Actual float64 `json:"actual"`
	Target float64 `json:"target"`
}

// Temperatures groups the heated zones.
type Temperatures struct {
	Bed      Temperature `json:"bed"`
	Extruder Temperature `json:"extruder"`
	Chamber  Temperature `json:"chamber"`
}

// Light is one entry of the lights report.
type Light struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

// IPCam holds the camera settings.
type IPCam struct {
	Dev        bool   `json:"dev"`
	Record     bool   `json:"record"`
	Resolution string `json:"resolution"`
	Timelapse  bool   `json:"timelapse"`
}

// AMS is one filament feeder. Trays always has four slots; nil marks an empty bay.
type AMS struct {
	ID       int                  `json:"id"`
	Humidity int                  `json:"humidity"`
	Temp     float64              `json:"temp"`
	Reading  *protocol.AMSReading `json:"reading,omitempty"`
	Trays    [4]*Tray             `json:"trays"`
}

// Tray is a loaded AMS bay.
type Tray struct {
	ID          int        `json:"id"`
	Active      bool       `json:"active"`
	Type        string     `json:"type"`
	Color       int64      `json:"color"`
	Weight      int        `json:"weight"`
	Diameter    float64    `json:"diameter"`
	IDName      string     `json:"idName"`
	InfoIdx     string     `json:"infoIdx"`
	BedTemp     int        `json:"bedTemp"`
	BedTempType int        `json:"bedTempType"`
	Drying      Drying     `json:"drying"`
	NozzleTemp  TempWindow `json:"nozzleTemp"`
}

// Drying is the recommended drying profile of a filament.
type Drying struct {
	Temp int `json:"temp"`
	Time int `json:"time"`
}

// TempWindow is a min/max temperature range.
type TempWindow struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// HMS is a formatted health-management alert.
type HMS struct {
	Code string `json:"code"`
	URL  string `json:"url"`
	Attr int64  `json:"attr"`
	Raw  int64  `json:"raw"`
}

// Idle reports whether the displayed state is the idle override.
func (s Status) Idle() bool {
	return s.State == StateIdle
}

// JobID returns the "<taskId>_<subtaskId>" identity of the job the snapshot
// belongs to.
func (s Status) JobID() string {
	return s.TaskID + "_" + s.SubtaskID
}
