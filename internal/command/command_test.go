package command

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, cmd Command) map[string]any {
	t.Helper()
	data, err := Encode(cmd)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestEncode_Envelopes(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "get version",
			cmd:  GetVersion{},
			want: `{"info":{"sequence_id":"20004","command":"get_version"},"user_id":"123456789"}`,
		},
		{
			name: "push all",
			cmd:  PushAll{},
			want: `{"pushing":{"sequence_id":"1","command":"pushall"},"user_id":"123456789"}`,
		},
		{
			name: "speed",
			cmd:  UpdateSpeed{Level: 4},
			want: `{"print":{"sequence_id":"2004","command":"print_speed","param":"4"},"user_id":"123456789"}`,
		},
		{
			name: "pause",
			cmd:  UpdateState{State: Pause},
			want: `{"print":{"sequence_id":"2008","command":"pause"},"user_id":"123456789"}`,
		},
		{
			name: "resume",
			cmd:  UpdateState{State: Resume},
			want: `{"print":{"sequence_id":"2009","command":"resume"},"user_id":"123456789"}`,
		},
		{
			name: "stop",
			cmd:  UpdateState{State: Stop},
			want: `{"print":{"sequence_id":"2010","command":"stop"},"user_id":"123456789"}`,
		},
		{
			name: "chamber light",
			cmd:  UpdateChamberLight{Mode: LightOn},
			want: `{"system":{"sequence_id":"2003","command":"ledctrl","led_node":"chamber_light","led_mode":"on",
				"led_on_time":500,"led_off_time":500,"loop_times":0,"interval_time":0},"user_id":"123456789"}`,
		},
		{
			name: "chamber light flashing",
			cmd:  UpdateChamberLight{Mode: LightFlashing, Loop: &LoopOptions{OnTime: 100, OffTime: 200, LoopTimes: 3, IntervalTime: 50}},
			want: `{"system":{"sequence_id":"2003","command":"ledctrl","led_node":"chamber_light","led_mode":"flashing",
				"led_on_time":100,"led_off_time":200,"loop_times":3,"interval_time":50},"user_id":"123456789"}`,
		},
		{
			name: "gcode",
			cmd:  GCode{Lines: []string{"G28", "M400"}},
			want: `{"print":{"sequence_id":"2026","command":"gcode_line","param":"G28\nM400\n"},"user_id":"123456789"}`,
		},
		{
			name: "logo light",
			cmd:  UpdateLight{Light: LightLogo, On: true},
			want: `{"print":{"sequence_id":"2026","command":"gcode_line","param":"M960 S5 P1\n"},"user_id":"123456789"}`,
		},
		{
			name: "nozzle light off",
			cmd:  UpdateLight{Light: LightNozzle},
			want: `{"print":{"sequence_id":"2026","command":"gcode_line","param":"M960 S4 P0\n"},"user_id":"123456789"}`,
		},
		{
			name: "aux fan",
			cmd:  UpdateFan{Fan: FanAux, Percent: 50},
			want: `{"print":{"sequence_id":"2026","command":"gcode_line","param":"M106 P2 127\n"},"user_id":"123456789"}`,
		},
		{
			name: "part fan full",
			cmd:  UpdateFan{Fan: FanPartCooling, Percent: 100},
			want: `{"print":{"sequence_id":"2026","command":"gcode_line","param":"M106 P1 255\n"},"user_id":"123456789"}`,
		},
		{
			name: "bed temperature",
			cmd:  UpdateTemperature{Heater: HeaterBed, Degrees: 60},
			want: `{"print":{"sequence_id":"2026","command":"gcode_line","param":"M140 S60\n"},"user_id":"123456789"}`,
		},
		{
			name: "extruder temperature",
			cmd:  UpdateTemperature{Heater: HeaterExtruder, Degrees: 220},
			want: `{"print":{"sequence_id":"2026","command":"gcode_line","param":"M104 S220\n"},"user_id":"123456789"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var want map[string]any
			require.NoError(t, json.Unmarshal([]byte(tt.want), &want))
			assert.Equal(t, want, decode(t, tt.cmd))
		})
	}
}

func TestEncode_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{name: "nil", cmd: nil},
		{name: "speed zero", cmd: UpdateSpeed{Level: 0}},
		{name: "speed five", cmd: UpdateSpeed{Level: 5}},
		{name: "unknown state", cmd: UpdateState{State: "cancel"}},
		{name: "unknown light mode", cmd: UpdateChamberLight{Mode: "blink"}},
		{name: "empty gcode", cmd: GCode{}},
		{name: "unknown light", cmd: UpdateLight{Light: "bed"}},
		{name: "unknown fan", cmd: UpdateFan{Fan: "exhaust", Percent: 10}},
		{name: "fan over 100", cmd: UpdateFan{Fan: FanAux, Percent: 101}},
		{name: "negative fan", cmd: UpdateFan{Fan: FanAux, Percent: -1}},
		{name: "too hot", cmd: UpdateTemperature{Heater: HeaterBed, Degrees: 300}},
		{name: "unknown heater", cmd: UpdateTemperature{Heater: "chamber", Degrees: 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.cmd)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestCommandNames(t *testing.T) {
	assert.Equal(t, "get_version", GetVersion{}.Name())
	assert.Equal(t, "pushall", PushAll{}.Name())
	assert.Equal(t, "print_speed", UpdateSpeed{}.Name())
	assert.Equal(t, "stop", UpdateState{State: Stop}.Name())
	assert.Equal(t, "ledctrl", UpdateChamberLight{}.Name())
	assert.Equal(t, "gcode_line", UpdateFan{}.Name())
}
