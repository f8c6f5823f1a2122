package protocol

import (
	"encoding/json"
	"fmt"
)

// Category is the top-level discriminator key of a report.
type Category string

// Known report categories.
const (
	CategoryInfo    Category = "info"
	CategoryPrint   Category = "print"
	CategoryMCPrint Category = "mc_print"
)

// Command names the core reacts to.
const (
	CommandGetVersion  = "get_version"
	CommandPushStatus  = "push_status"
	CommandPushInfo    = "push_info"
	CommandResume      = "resume"
	CommandGCodeLine   = "gcode_line"
	CommandGCodeFile   = "gcode_file"
	CommandProjectFile = "project_file"
)

// knownCategories is checked in order when a payload carries more than one key.
var knownCategories = []Category{CategoryPrint, CategoryInfo, CategoryMCPrint}

// Kind is the narrowed shape of a decoded message.
type Kind int

// Message kinds.
const (
	KindUnknown Kind = iota
	KindGetVersion
	KindPushStatus
	KindPushInfo
	KindPrintResult
)

func (k Kind) String() string {
	switch k {
	case KindGetVersion:
		return "get_version"
	case KindPushStatus:
		return "push_status"
	case KindPushInfo:
		return "push_info"
	case KindPrintResult:
		return "print_result"
	default:
		return "unknown"
	}
}

// Message is a decoded report with its inner payload kept raw.
type Message struct {
	Category   Category
	Command    string
	SequenceID string
	Payload    json.RawMessage
}

type header struct {
	Command    string `json:"command"`
	SequenceID Text   `json:"sequence_id"`
}

// Decode parses a raw report and extracts its category discriminator.
//
// A payload with a single key uses that key as its category, known or not.
// A payload with several keys uses the first known category found.
//
// Returns:
//   - *Message: the decoded envelope
//   - error: ErrMalformed or ErrNoDiscriminator (wrapped)
func Decode(payload []byte) (*Message, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: payload is null", ErrMalformed)
	}

	category, inner, ok := discriminate(top)
	if !ok {
		return nil, fmt.Errorf("%w: %d top-level keys", ErrNoDiscriminator, len(top))
	}

	var h header
	if err := json.Unmarshal(inner, &h); err != nil {
		return nil, fmt.Errorf("%w: category %q: %w", ErrMalformed, category, err)
	}

	return &Message{
		Category:   category,
		Command:    h.Command,
		SequenceID: h.SequenceID.String(),
		Payload:    inner,
	}, nil
}

func discriminate(top map[string]json.RawMessage) (Category, json.RawMessage, bool) {
	if len(top) == 1 {
		for k, v := range top {
			return Category(k), v, true
		}
	}
	for _, c := range knownCategories {
		if v, ok := top[string(c)]; ok {
			return c, v, true
		}
	}
	return "", nil, false
}

// Known reports whether the message belongs to one of the three categories
// the core understands.
func (m *Message) Known() bool {
	switch m.Category {
	case CategoryInfo, CategoryPrint, CategoryMCPrint:
		return true
	}
	return false
}

// Kind classifies the message into the shapes the core narrows to.
func (m *Message) Kind() Kind {
	switch m.Category {
	case CategoryInfo:
		if m.Command == CommandGetVersion {
			return KindGetVersion
		}
	case CategoryPrint:
		switch m.Command {
		case CommandPushStatus:
			return KindPushStatus
		case CommandResume, CommandGCodeLine, CommandGCodeFile, CommandProjectFile:
			return KindPrintResult
		}
	case CategoryMCPrint:
		if m.Command == CommandPushInfo {
			return KindPushInfo
		}
	}
	return KindUnknown
}

// EventName returns the "command:<name>" event for the message, or "" when
// the message carries no command.
func (m *Message) EventName() string {
	if m.Command == "" {
		return ""
	}
	return "command:" + m.Command
}

// Fields unmarshals the inner payload into a generic map.
func (m *Message) Fields() (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(m.Payload, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return out, nil
}

// PushStatus narrows a print/push_status message. The result remembers
// which members were present; see PushStatus.Complete.
func (m *Message) PushStatus() (*PushStatus, error) {
	if m.Kind() != KindPushStatus {
		return nil, fmt.Errorf("%w: want %s, got %s/%s", ErrWrongCommand, CommandPushStatus, m.Category, m.Command)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(m.Payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: push_status: %w", ErrMalformed, err)
	}
	return decodePushStatus(fields)
}

// GetVersion narrows an info/get_version message.
func (m *Message) GetVersion() (*GetVersion, error) {
	if m.Kind() != KindGetVersion {
		return nil, fmt.Errorf("%w: want %s, got %s/%s", ErrWrongCommand, CommandGetVersion, m.Category, m.Command)
	}
	var v GetVersion
	if err := json.Unmarshal(m.Payload, &v); err != nil {
		return nil, fmt.Errorf("%w: get_version: %w", ErrMalformed, err)
	}
	return &v, nil
}

// PushInfo narrows an mc_print/push_info message.
func (m *Message) PushInfo() (*PushInfo, error) {
	if m.Kind() != KindPushInfo {
		return nil, fmt.Errorf("%w: want %s, got %s/%s", ErrWrongCommand, CommandPushInfo, m.Category, m.Command)
	}
	var p PushInfo
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: push_info: %w", ErrMalformed, err)
	}
	return &p, nil
}

// PrintResult narrows the acknowledgement-style print commands
// (resume, gcode_line, gcode_file, project_file).
func (m *Message) PrintResult() (*PrintResult, error) {
	if m.Kind() != KindPrintResult {
		return nil, fmt.Errorf("%w: want print result, got %s/%s", ErrWrongCommand, m.Category, m.Command)
	}
	var r PrintResult
	if err := json.Unmarshal(m.Payload, &r); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, m.Command, err)
	}
	return &r, nil
}
