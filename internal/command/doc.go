// Package command builds the outbound request envelopes understood by the
// printer:
//
//	{"<category>": {"sequence_id": "<n>", "command": "<name>", ...extra}, "user_id": "123456789"}
//
// Each typed command validates its arguments and renders a Payload; Encode
// serializes any Command into the envelope bytes published on the device
// request topic.
//
// # Commands
//
//   - GetVersion, PushAll: info and full-status requests sent on connect
//   - UpdateSpeed: print_speed with a 1..4 profile
//   - UpdateState: pause, resume or stop
//   - UpdateChamberLight: ledctrl, including flashing loops
//   - GCode: gcode_line, one or more lines
//   - UpdateLight, UpdateFan, UpdateTemperature: G-code shortcuts
//
// Invalid arguments are reported as ErrInvalidArgument before anything is
// encoded.
package command
