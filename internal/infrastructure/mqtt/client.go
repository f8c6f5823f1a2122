package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/bambu-core/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang for the printer's embedded broker.
//
// It owns connection state, restores tracked subscriptions after every
// reconnect and recovers panics in message handlers.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Messages are delivered to handlers one at a time, in arrival order.
type Client struct {
	client pahomqtt.Client
	qos    byte
	topics Topics

	// subscriptions tracks active subscriptions for re-subscription on reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	connected bool
	connMu    sync.RWMutex

	onConnecting func()
	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription holds subscription details for re-subscription on reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers run on the client's delivery goroutine and must not block for
// long. A returned error is logged and does not affect acknowledgment.
type MessageHandler func(topic string, payload []byte) error

// New builds a client for the printer. Nothing is dialled until Connect.
// An empty client ID is replaced by a random one.
func New(printer config.PrinterConfig, cfg config.MQTTConfig) *Client {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "bambu-core-" + uuid.NewString()[:8]
	}

	c := &Client{
		qos:           byte(cfg.QoS), //nolint:gosec // Validated to 0-2 by config
		topics:        Topics{Serial: printer.Serial},
		subscriptions: make(map[string]subscription),
	}

	opts := buildClientOptions(printer, cfg, clientID)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.handleConnecting()
	})

	c.client = pahomqtt.NewClient(opts)
	return c
}

// Topics returns the topic builder for the configured device.
func (c *Client) Topics() Topics {
	return c.topics
}

// QoS returns the configured default QoS.
func (c *Client) QoS() byte {
	return c.qos
}

// Connect dials the broker and blocks until the first handshake succeeds or
// ctx is done. Failed attempts are retried in the background until then;
// after that, lost connections reconnect automatically.
func (c *Client) Connect(ctx context.Context) error {
	c.handleConnecting()

	token := c.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		c.client.Disconnect(forcedQuiesce)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs asynchronously and may not have executed
	// yet; mark connected here so IsConnected holds on return.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return nil
}

func (c *Client) handleConnecting() {
	c.callbackMu.RLock()
	callback := c.onConnecting
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleConnect is called on every successful handshake, initial or not.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.restoreSubscriptions()

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleDisconnect is called when the connection is lost or closed.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		// Errors surface on the next publish; the session is clean anyway.
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// Disconnect closes the connection and stops reconnecting. A forced
// disconnect does not wait for in-flight work.
func (c *Client) Disconnect(force bool) {
	quiesce := uint(gracefulQuiesce)
	if force {
		quiesce = forcedQuiesce
	}
	wasConnected := c.IsConnected()
	c.client.Disconnect(quiesce)

	if wasConnected {
		c.handleDisconnect(nil)
	}
}

// Close gracefully disconnects. It exists for symmetry with the other
// infrastructure clients.
func (c *Client) Close() error {
	c.Disconnect(false)
	return nil
}

// HealthCheck reports whether the telemetry link is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state. It is false while a
// reconnect is in progress.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnectionOpen()
}

// SetOnConnecting sets a callback invoked before the first dial and before
// every reconnect attempt.
func (c *Client) SetOnConnecting(callback func()) {
	c.callbackMu.Lock()
	c.onConnecting = callback
	c.callbackMu.Unlock()
}

// SetOnConnect sets a callback to be invoked when connection is established.
// This is called on initial connect and on every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback to be invoked when connection is lost.
// err is nil for a requested disconnect.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
