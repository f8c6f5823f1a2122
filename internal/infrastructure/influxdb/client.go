package influxdb

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/bambu-core/internal/infrastructure/config"
)

const (
	openTimeout = 10 * time.Second
	pingTimeout = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Recorder writes one printer's status history. Writes are batched and
// never block the telemetry handler; failures arrive through SetOnError.
// All methods are safe for concurrent use, and a zero Recorder is closed.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	serial   string

	mu      sync.Mutex
	open    bool
	onError func(err error)

	// lastStatus holds the fields of the last status point written, so a
	// printer repeating the same snapshot adds no points.
	lastStatus map[string]any
	lastState  string
}

// Open pings the server and starts a recorder tagging every point with the
// printer's serial.
//
// Parameters:
//   - ctx: bounds the initial ping
//   - cfg: server, bucket and batching settings
//   - serial: printer serial number used as the series tag
//
// Returns:
//   - *Recorder: ready to record
//   - error: ErrHistoryDisabled, or ErrServerUnreachable wrapping the cause
func Open(ctx context.Context, cfg config.InfluxDBConfig, serial string) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrHistoryDisabled
	}

	batchSize := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batchSize = uint(cfg.BatchSize)
	}
	opts := influxdb2.DefaultOptions().
		SetBatchSize(batchSize).
		SetFlushInterval(uint(flushInterval(cfg).Milliseconds()))
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	pingCtx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	if err := ping(pingCtx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrServerUnreachable, cfg.URL, err)
	}

	r := &Recorder{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		serial:   serial,
		open:     true,
	}
	go r.forwardErrors(r.writeAPI.Errors())
	return r, nil
}

func flushInterval(cfg config.InfluxDBConfig) time.Duration {
	if cfg.FlushInterval <= 0 {
		return defaultFlushInterval
	}
	return time.Duration(cfg.FlushInterval) * time.Second
}

func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	if err != nil {
		return err
	}
	if !healthy {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

func (r *Recorder) forwardErrors(errs <-chan error) {
	for err := range errs {
		r.mu.Lock()
		fn := r.onError
		r.mu.Unlock()

		if fn != nil {
			fn(fmt.Errorf("writing history for %s: %w", r.serial, err))
		}
	}
}

// SetOnError sets the callback for asynchronous write failures.
func (r *Recorder) SetOnError(fn func(err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = fn
}

// Serial returns the printer serial the recorder tags points with.
func (r *Recorder) Serial() string {
	return r.serial
}

// Closed reports whether the recorder has been closed.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.open
}

// HealthCheck pings the server.
func (r *Recorder) HealthCheck(ctx context.Context) error {
	if r.Closed() {
		return ErrRecorderClosed
	}

	checkCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(checkCtx, r.client); err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	return nil
}

// Flush blocks until buffered points are sent. It is a no-op once closed.
func (r *Recorder) Flush() {
	if r.Closed() {
		return
	}
	r.writeAPI.Flush()
}

// Close flushes pending points and releases the client. Later writes are
// dropped.
func (r *Recorder) Close() error {
	r.mu.Lock()
	wasOpen := r.open
	r.open = false
	r.mu.Unlock()

	if !wasOpen {
		return nil
	}
	r.writeAPI.Flush()
	r.client.Close()
	return nil
}

// changed reports whether a status with these fields differs from the last
// one written, and records it. Callers must not hold r.mu.
func (r *Recorder) changed(state string, fields map[string]any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.open {
		return false
	}
	if state == r.lastState && maps.Equal(fields, r.lastStatus) {
		return false
	}
	r.lastState, r.lastStatus = state, fields
	return true
}
