package bambu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/bambu-core/internal/command"
	"github.com/nerrad567/bambu-core/internal/event"
	"github.com/nerrad567/bambu-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/bambu-core/internal/job"
	"github.com/nerrad567/bambu-core/internal/protocol"
	"github.com/nerrad567/bambu-core/internal/status"
	"github.com/nerrad567/bambu-core/internal/tracker"
)

// stateTimeout bounds the cache writes made while handling one report.
const stateTimeout = 5 * time.Second

// Transport is the telemetry connection. *mqtt.Client satisfies it.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect(force bool)
	IsConnected() bool
	Topics() mqtt.Topics
	QoS() byte
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	SetOnConnecting(fn func())
	SetOnConnect(fn func())
	SetOnDisconnect(fn func(err error))
}

// FileTransfer is the side-channel service. *transfer.Service satisfies it.
type FileTransfer interface {
	Start()
	Stop() error
}

// Logger is the logging interface used by the client. A logger that also
// has Trace(msg string, args ...any) receives raw payloads.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type tracer interface {
	Trace(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client is the façade over one printer.
type Client struct {
	transport Transport
	tracker   *tracker.Tracker
	files     FileTransfer
	logger    Logger

	connection *event.Emitter[ConnectionEvent]
	raw        *event.Emitter[RawMessage]
	messages   *event.Emitter[*protocol.Message]
	commands   *event.Emitter[*protocol.Message]
	pushInfo   *event.Emitter[protocol.CleanPushInfo]

	filesOnce sync.Once

	mu     sync.RWMutex
	device *protocol.GetVersion
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFileTransfer attaches the side-channel service, started by Connect.
func WithFileTransfer(ft FileTransfer) Option {
	return func(c *Client) {
		c.files = ft
	}
}

// New wires the client to its transport and tracker. It installs the
// transport's connection callbacks; nothing is dialled until Connect.
func New(transport Transport, t *tracker.Tracker, opts ...Option) *Client {
	c := &Client{
		transport:  transport,
		tracker:    t,
		logger:     noopLogger{},
		connection: event.NewEmitter[ConnectionEvent](),
		raw:        event.NewEmitter[RawMessage](),
		messages:   event.NewEmitter[*protocol.Message](),
		commands:   event.NewEmitter[*protocol.Message](),
		pushInfo:   event.NewEmitter[protocol.CleanPushInfo](),
	}
	for _, opt := range opts {
		opt(c)
	}

	transport.SetOnConnecting(func() {
		c.connection.Emit(event.Connecting, ConnectionEvent{})
	})
	transport.SetOnConnect(c.onConnect)
	transport.SetOnDisconnect(func(err error) {
		c.logger.Info("disconnected from printer", "error", err)
		c.connection.Emit(event.Disconnected, ConnectionEvent{Err: err})
	})

	return c
}

// Connect starts the file transfer service and dials the telemetry broker.
// It returns once the telemetry handshake completes; the side channel
// connects on its own schedule.
func (c *Client) Connect(ctx context.Context) error {
	if c.files != nil {
		c.filesOnce.Do(c.files.Start)
	}
	if err := c.transport.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to printer: %w", err)
	}
	return nil
}

// Disconnect tears down the telemetry link. force skips waiting for
// in-flight work.
func (c *Client) Disconnect(force bool) {
	c.transport.Disconnect(force)
}

// Close disconnects and stops the file transfer service.
func (c *Client) Close() error {
	c.Disconnect(false)
	if c.files != nil {
		return c.files.Stop()
	}
	return nil
}

// Connected reports whether the telemetry link is up.
func (c *Client) Connected() bool {
	return c.transport.IsConnected()
}

// onConnect runs after every handshake. Requests are fire-and-forget: the
// device answers asynchronously on the report topic.
func (c *Client) onConnect() {
	c.logger.Info("connected to printer")
	c.connection.Emit(event.Connected, ConnectionEvent{})

	if err := c.Subscribe(c.transport.Topics().Report()); err != nil {
		c.logger.Error("subscribing to device report failed", "error", err)
		return
	}
	for _, cmd := range []command.Command{command.GetVersion{}, command.PushAll{}} {
		if err := c.Invoke(cmd); err != nil {
			c.logger.Warn("initial request failed", "command", cmd.Name(), "error", err)
		}
	}
}

// Subscribe subscribes to topic and routes its messages through the
// decoder. It fails with mqtt.ErrNotConnected while disconnected.
func (c *Client) Subscribe(topic string) error {
	err := c.transport.Subscribe(topic, c.transport.QoS(), c.handle)
	c.connection.Emit(event.Subscribed, ConnectionEvent{Topic: topic, Err: err})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return nil
}

// Publish sends msg to the device request topic. A string or []byte is sent
// verbatim, a command.Command is encoded into its envelope and anything
// else is serialized as JSON.
func (c *Client) Publish(msg any) error {
	payload, err := encode(msg)
	if err != nil {
		return err
	}

	topic := c.transport.Topics().Request()
	err = c.transport.Publish(topic, payload, c.transport.QoS(), false)
	c.connection.Emit(event.Published, ConnectionEvent{Topic: topic, Payload: payload, Err: err})
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Invoke encodes and publishes a typed command.
func (c *Client) Invoke(cmd command.Command) error {
	return c.Publish(cmd)
}

func encode(msg any) ([]byte, error) {
	switch m := msg.(type) {
	case nil:
		return nil, errors.New("bambu: nil message")
	case string:
		return []byte(m), nil
	case []byte:
		return m, nil
	case command.Command:
		return command.Encode(m)
	default:
		data, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encoding message: %w", err)
		}
		return data, nil
	}
}

// Device returns the module list from the last get_version reply.
func (c *Client) Device() (protocol.GetVersion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.device == nil {
		return protocol.GetVersion{}, false
	}
	d := *c.device
	d.Module = append([]protocol.Module(nil), c.device.Module...)
	return d, true
}

// Status returns the latest projected status.
func (c *Client) Status() (status.Status, bool) {
	return c.tracker.LatestStatus()
}

// CurrentJob returns the active job, or nil when idle.
func (c *Client) CurrentJob() *job.Job {
	return c.tracker.CurrentJob()
}

// LastJob returns the most recently finished job, or nil.
func (c *Client) LastJob() *job.Job {
	return c.tracker.LastJob()
}

// Idle reports whether no job is active.
func (c *Client) Idle() bool {
	return c.tracker.Idle()
}

// IsCurrent reports whether j is the active job.
func (c *Client) IsCurrent(j *job.Job) bool {
	return c.tracker.IsCurrent(j)
}
