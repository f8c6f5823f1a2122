package ftps

import "errors"

var (
	// ErrNotConnected is returned when an operation runs without a live session.
	ErrNotConnected = errors.New("ftps: not connected")

	// ErrNotFound is returned when the server answers 550 (file unavailable).
	ErrNotFound = errors.New("ftps: file not found")
)
