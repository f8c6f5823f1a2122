package status

// stageText maps stg_cur codes to display text. Unknown codes render empty.
var stageText = map[int]string{
	0:  "",
	1:  "Auto bed leveling",
	2:  "Heatbed preheating",
	3:  "Sweeping XY mech mode",
	4:  "Changing filament",
	5:  "M400 pause",
	6:  "Paused due to filament runout",
	7:  "Heating hotend",
	8:  "Calibrating extrusion",
	9:  "Scanning bed surface",
	10: "Inspecting first layer",
	11: "Identifying build plate type",
	12: "Calibrating Micro Lidar",
	13: "Homing toolhead",
	14: "Cleaning nozzle tip",
	15: "Checking extruder temperature",
	16: "Printing was paused by the user",
	17: "Pause of front cover falling",
	18: "Calibrating the micro lida",
	19: "Calibrating extrusion flow",
	20: "Paused due to nozzle temperature malfunction",
	21: "Paused due to heat bed temperature malfunction",
}

// StageText returns the display text of a stage code.
func StageText(code int) string {
	return stageText[code]
}

// Speed levels accepted by the printer.
const (
	SpeedSilent    = 1
	SpeedStandard  = 2
	SpeedSport     = 3
	SpeedLudicrous = 4
)

// SpeedName returns the profile name of a speed level, or "" when out of range.
func SpeedName(level int) string {
	switch level {
	case SpeedSilent:
		return "Silent"
	case SpeedStandard:
		return "Standard"
	case SpeedSport:
		return "Sport"
	case SpeedLudicrous:
		return "Ludicrous"
	default:
		return ""
	}
}
