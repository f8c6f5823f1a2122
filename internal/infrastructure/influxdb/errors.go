package influxdb

import "errors"

// Sentinel errors for status history. Check them with errors.Is.
var (
	// ErrHistoryDisabled is returned by Open when history is switched off.
	ErrHistoryDisabled = errors.New("influxdb: status history disabled")

	// ErrServerUnreachable is returned by Open when the server does not
	// answer a ping or reports itself unhealthy.
	ErrServerUnreachable = errors.New("influxdb: server unreachable")

	// ErrRecorderClosed is returned by HealthCheck after Close.
	ErrRecorderClosed = errors.New("influxdb: history recorder closed")
)
