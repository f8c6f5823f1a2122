package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// UserID is the fixed user id every request carries.
const UserID = "123456789"

// Request categories.
const (
	CategoryInfo    = "info"
	CategoryPushing = "pushing"
	CategorySystem  = "system"
	CategoryPrint   = "print"
)

// ErrInvalidArgument is returned when a command is built with out-of-range values.
var ErrInvalidArgument = errors.New("command: invalid argument")

// Command is a typed printer intent.
type Command interface {
	// Name is the protocol command name, e.g. "print_speed".
	Name() string
	// Payload validates the command and renders its envelope contents.
	Payload() (Payload, error)
}

// Payload is the rendered inner object of a request.
type Payload struct {
	Category   string
	SequenceID int
	Command    string
	Extra      map[string]any
}

// MarshalJSON renders the full envelope including user_id.
func (p Payload) MarshalJSON() ([]byte, error) {
	inner := make(map[string]any, len(p.Extra)+2)
	for k, v := range p.Extra {
		inner[k] = v
	}
	inner["sequence_id"] = strconv.Itoa(p.SequenceID)
	inner["command"] = p.Command

	return json.Marshal(map[string]any{
		p.Category: inner,
		"user_id":  UserID,
	})
}

// Encode validates cmd and returns the serialized envelope.
func Encode(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: nil command", ErrInvalidArgument)
	}
	p, err := cmd.Payload()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", cmd.Name(), err)
	}
	return data, nil
}
