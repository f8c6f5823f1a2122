package command

import (
	"fmt"
	"strings"
)

// GetVersion asks the printer for its module list.
type GetVersion struct{}

func (GetVersion) Name() string { return "get_version" }

func (GetVersion) Payload() (Payload, error) {
	return Payload{Category: CategoryInfo, SequenceID: 20004, Command: "get_version"}, nil
}

// PushAll asks the printer to publish a full status snapshot.
type PushAll struct{}

func (PushAll) Name() string { return "pushall" }

func (PushAll) Payload() (Payload, error) {
	return Payload{Category: CategoryPushing, SequenceID: 1, Command: "pushall"}, nil
}

// UpdateSpeed selects a speed profile, 1 (silent) to 4 (ludicrous).
type UpdateSpeed struct {
	Level int
}

func (UpdateSpeed) Name() string { return "print_speed" }

func (c UpdateSpeed) Payload() (Payload, error) {
	if c.Level < 1 || c.Level > 4 {
		return Payload{}, fmt.Errorf("%w: speed level %d not in 1..4", ErrInvalidArgument, c.Level)
	}
	return Payload{
		Category:   CategoryPrint,
		SequenceID: 2004,
		Command:    "print_speed",
		Extra:      map[string]any{"param": fmt.Sprint(c.Level)},
	}, nil
}

// PrintState is a print control action.
type PrintState string

// Print control actions.
const (
	Pause  PrintState = "pause"
	Resume PrintState = "resume"
	Stop   PrintState = "stop"
)

var stateSequence = map[PrintState]int{Pause: 2008, Resume: 2009, Stop: 2010}

// UpdateState pauses, resumes or stops the current print.
type UpdateState struct {
	State PrintState
}

func (c UpdateState) Name() string { return string(c.State) }

func (c UpdateState) Payload() (Payload, error) {
	seq, ok := stateSequence[c.State]
	if !ok {
		return Payload{}, fmt.Errorf("%w: print state %q", ErrInvalidArgument, c.State)
	}
	return Payload{Category: CategoryPrint, SequenceID: seq, Command: string(c.State)}, nil
}

// LightMode is a chamber light mode.
type LightMode string

// Chamber light modes.
const (
	LightOn       LightMode = "on"
	LightOff      LightMode = "off"
	LightFlashing LightMode = "flashing"
)

// LoopOptions control the flashing cadence of the chamber light.
type LoopOptions struct {
	OnTime       int
	OffTime      int
	LoopTimes    int
	IntervalTime int
}

// DefaultLoopOptions is a 500ms on / 500ms off blink without repeat limit.
var DefaultLoopOptions = LoopOptions{OnTime: 500, OffTime: 500}

// UpdateChamberLight switches the chamber light. A nil Loop uses DefaultLoopOptions.
type UpdateChamberLight struct {
	Mode LightMode
	Loop *LoopOptions
}

func (UpdateChamberLight) Name() string { return "ledctrl" }

func (c UpdateChamberLight) Payload() (Payload, error) {
	switch c.Mode {
	case LightOn, LightOff, LightFlashing:
	default:
		return Payload{}, fmt.Errorf("%w: light mode %q", ErrInvalidArgument, c.Mode)
	}
	loop := DefaultLoopOptions
	if c.Loop != nil {
		loop = *c.Loop
	}
	return Payload{
		Category:   CategorySystem,
		SequenceID: 2003,
		Command:    "ledctrl",
		Extra: map[string]any{
			"led_node":      "chamber_light",
			"led_mode":      string(c.Mode),
			"led_on_time":   loop.OnTime,
			"led_off_time":  loop.OffTime,
			"loop_times":    loop.LoopTimes,
			"interval_time": loop.IntervalTime,
		},
	}, nil
}

// GCode sends raw machine-code lines.
type GCode struct {
	Lines []string
}

func (GCode) Name() string { return "gcode_line" }

func (c GCode) Payload() (Payload, error) {
	if len(c.Lines) == 0 {
		return Payload{}, fmt.Errorf("%w: no gcode lines", ErrInvalidArgument)
	}
	return Payload{
		Category:   CategoryPrint,
		SequenceID: 2026,
		Command:    "gcode_line",
		Extra:      map[string]any{"param": strings.Join(c.Lines, "\n") + "\n"},
	}, nil
}
