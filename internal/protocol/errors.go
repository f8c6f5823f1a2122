package protocol

import "errors"

// Domain-specific errors for telemetry decoding.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrMalformed is returned when a payload is not a JSON object or its
	// category payload is not an object.
	ErrMalformed = errors.New("protocol: malformed message")

	// ErrNoDiscriminator is returned when a payload has no usable category key.
	ErrNoDiscriminator = errors.New("protocol: missing category discriminator")

	// ErrWrongCommand is returned when a narrowing method is called on a
	// message of a different command.
	ErrWrongCommand = errors.New("protocol: message is not the requested command")
)
