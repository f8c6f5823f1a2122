// Package protocol decodes and classifies the JSON telemetry published by a
// Bambu Lab printer on its device report topic.
//
// Every report is a JSON object with a single top-level key naming the
// message category:
//
//	{"print":    {"command": "push_status", "sequence_id": "12", ...}}
//	{"info":     {"command": "get_version", "module": [...]}}
//	{"mc_print": {"command": "push_info", "param": "[AMS][ams0]: temp:25.3;..."}}
//
// Decode validates the envelope once and returns a Message carrying the
// category, command name and the raw inner payload. The narrowing methods
// (PushStatus, GetVersion, PushInfo, PrintResult) unmarshal the inner payload
// into the flat wire structs defined here. No state is kept by this package.
//
// # Wire leniency
//
// Firmware revisions disagree on whether numeric identifiers are sent as JSON
// strings or numbers. Fields typed as Text accept either form.
package protocol
