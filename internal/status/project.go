package status

import (
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/bambu-core/internal/protocol"
)

// Project converts a raw snapshot into a Status, reading the clock once.
// aux carries AMS side readings keyed by bay index and may be nil.
func Project(raw *protocol.PushStatus, aux map[int]protocol.AMSReading) Status {
	return ProjectAt(raw, aux, time.Now())
}

// ProjectAt is Project with an explicit clock. It performs no I/O and returns
// equal values for equal inputs.
//
// The reported gcode state is copied as-is; the idle override is applied by
// the job tracker, which is the only component that knows whether a job is
// active.
func ProjectAt(raw *protocol.PushStatus, aux map[int]protocol.AMSReading, now time.Time) Status {
	if raw == nil {
		return Status{}
	}

	s := Status{
		TaskID:      raw.TaskID.String(),
		SubtaskID:   raw.SubtaskID.String(),
		TaskName:    raw.SubtaskName,
		SubtaskName: raw.SubtaskName,
		GcodeFile:   raw.GcodeFile,
		ProjectID:   raw.ProjectID.String(),
		ProfileID:   raw.ProfileID.String(),
		PrintType:   raw.PrintType,

		State:        raw.GcodeState,
		CurrentLayer: raw.LayerNum,
		MaxLayers:    raw.TotalLayerNum,

		ProgressPercent: raw.MCPercent,
		RemainingTime:   time.Duration(raw.MCRemainingTime) * time.Minute,

		PrintStage: PrintStage{
			Value:           raw.StgCur,
			Text:            StageText(raw.StgCur),
			CompletedStages: append([]int(nil), raw.Stg...),
		},
		Speed: Speed{
			Level:   raw.SpdLvl,
			Name:    SpeedName(raw.SpdLvl),
			Percent: raw.SpdMag,
		},
		Fans: Fans{
			Big1:      raw.BigFan1Speed.Int(),
			Big2:      raw.BigFan2Speed.Int(),
			Cooling:   raw.CoolingFanSpeed.Int(),
			Heatbreak: raw.HeatbreakFanSpeed.Int(),
			Gear:      raw.FanGear,
		},
		Temperatures: Temperatures{
			Bed:      Temperature{Actual: raw.BedTemper, Target: raw.BedTargetTemper},
			Extruder: Temperature{Actual: raw.NozzleTemper, Target: raw.NozzleTargetTemper},
			Chamber:  Temperature{Actual: raw.ChamberTemper},
		},
		Lights: projectLights(raw.LightsReport),
		AMSes:  projectAMS(raw.AMS, aux),
		HMS:    ParseHMS(raw.HMS),

		SDCard:     raw.SDCard,
		WifiSignal: raw.WifiSignal,
		PrintError: raw.PrintError,
	}

	if code := raw.MCPrintErrorCode.String(); code != "" && code != "0" {
		s.ErrorCode = code
	}

	if secs := raw.GcodeStartTime.Int(); secs > 0 {
		s.StartTime = time.Unix(int64(secs), 0).UTC()
		s.EstimatedTotalTime = now.Sub(s.StartTime) + s.RemainingTime
	} else {
		s.EstimatedTotalTime = s.RemainingTime
	}

	if raw.IPCam != nil {
		s.IPCam = IPCam{
			Dev:        raw.IPCam.Dev.String() == "1",
			Record:     raw.IPCam.Record == "enable",
			Resolution: raw.IPCam.Resolution,
			Timelapse:  raw.IPCam.Timelapse == "enable",
		}
		s.Stream = StreamPath(raw.IPCam)
	}

	return s
}

func projectLights(in []protocol.LightReport) []Light {
	out := make([]Light, 0, len(in))
	for _, l := range in {
		out = append(out, Light{Name: l.Node, Mode: l.Mode})
	}
	return out
}

func projectAMS(in *protocol.AMSStatus, aux map[int]protocol.AMSReading) []AMS {
	if in == nil {
		return []AMS{}
	}

	trayNow := -1
	if v := strings.TrimSpace(in.TrayNow.String()); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			trayNow = n
		}
	}

	out := make([]AMS, 0, len(in.AMS))
	for i, unit := range in.AMS {
		a := AMS{
			ID:       unit.ID.Int(),
			Humidity: unit.Humidity.Int(),
			Temp:     unit.Temp.Float(),
		}
		if r, ok := aux[i]; ok {
			reading := r
			a.Reading = &reading
		}
		for slot := 0; slot < len(a.Trays) && slot < len(unit.Tray); slot++ {
			a.Trays[slot] = projectTray(unit.Tray[slot], trayNow == i*len(a.Trays)+slot)
		}
		out = append(out, a)
	}
	return out
}

func projectTray(t *protocol.AMSTray, active bool) *Tray {
	if !t.Loaded() {
		return nil
	}
	color, err := strconv.ParseInt(t.TrayColor, 16, 64)
	if err != nil {
		color = 0
	}
	return &Tray{
		ID:          t.ID.Int(),
		Active:      active,
		Type:        t.TrayType,
		Color:       color,
		Weight:      t.TrayWeight.Int(),
		Diameter:    t.TrayDiameter.Float(),
		IDName:      t.TrayIDName,
		InfoIdx:     t.TrayInfoIdx,
		BedTemp:     t.BedTemp.Int(),
		BedTempType: t.BedTempType.Int(),
		Drying:      Drying{Temp: t.DryingTemp.Int(), Time: t.DryingTime.Int()},
		NozzleTemp:  TempWindow{Min: t.NozzleTempMin.Int(), Max: t.NozzleTempMax.Int()},
	}
}
