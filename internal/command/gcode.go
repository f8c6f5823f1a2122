package command

import "fmt"

// Light is a gcode-controlled light.
type Light string

// Gcode-controlled lights.
const (
	LightLogo   Light = "logo"
	LightNozzle Light = "nozzle"
)

var lightSelector = map[Light]string{LightLogo: "S5", LightNozzle: "S4"}

// UpdateLight switches the logo or nozzle light via M960.
type UpdateLight struct {
	Light Light
	On    bool
}

func (UpdateLight) Name() string { return "gcode_line" }

func (c UpdateLight) Payload() (Payload, error) {
	sel, ok := lightSelector[c.Light]
	if !ok {
		return Payload{}, fmt.Errorf("%w: light %q", ErrInvalidArgument, c.Light)
	}
	power := "P0"
	if c.On {
		power = "P1"
	}
	return GCode{Lines: []string{fmt.Sprintf("M960 %s %s", sel, power)}}.Payload()
}

// Fan is a controllable fan.
type Fan string

// Controllable fans.
const (
	FanPartCooling Fan = "partCooling"
	FanAux         Fan = "aux"
	FanChamber     Fan = "chamber"
)

var fanSelector = map[Fan]string{FanPartCooling: "P1", FanAux: "P2", FanChamber: "P3"}

// UpdateFan sets a fan speed in percent via M106.
type UpdateFan struct {
	Fan     Fan
	Percent int
}

func (UpdateFan) Name() string { return "gcode_line" }

func (c UpdateFan) Payload() (Payload, error) {
	sel, ok := fanSelector[c.Fan]
	if !ok {
		return Payload{}, fmt.Errorf("%w: fan %q", ErrInvalidArgument, c.Fan)
	}
	if c.Percent < 0 || c.Percent > 100 {
		return Payload{}, fmt.Errorf("%w: fan percent %d not in 0..100", ErrInvalidArgument, c.Percent)
	}
	return GCode{Lines: []string{fmt.Sprintf("M106 %s %d", sel, 255*c.Percent/100)}}.Payload()
}

// Heater is a temperature-controlled part.
type Heater string

// Temperature-controlled parts.
const (
	HeaterBed      Heater = "bed"
	HeaterExtruder Heater = "extruder"
)

// maxTemperature bounds target temperatures in degrees Celsius.
const maxTemperature = 300

// UpdateTemperature sets a target temperature via M140 (bed) or M104 (extruder).
type UpdateTemperature struct {
	Heater  Heater
	Degrees int
}

func (UpdateTemperature) Name() string { return "gcode_line" }

func (c UpdateTemperature) Payload() (Payload, error) {
	if c.Degrees < 0 || c.Degrees >= maxTemperature {
		return Payload{}, fmt.Errorf("%w: temperature %d not in 0..%d", ErrInvalidArgument, c.Degrees, maxTemperature-1)
	}
	var code string
	switch c.Heater {
	case HeaterBed:
		code = "M140"
	case HeaterExtruder:
		code = "M104"
	default:
		return Payload{}, fmt.Errorf("%w: heater %q", ErrInvalidArgument, c.Heater)
	}
	return GCode{Lines: []string{fmt.Sprintf("%s S%d", code, c.Degrees)}}.Payload()
}
