package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/bambu-core/internal/infrastructure/config"
)

func testPrinter() config.PrinterConfig {
	return config.PrinterConfig{
		Host:        "192.0.2.10",
		Serial:      "01S00C123456789",
		AccessToken: "12345678",
		MQTTPort:    8883,
		FTPPort:     990,
	}
}

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		ClientID:  "bambu-core-test",
		QoS:       1,
		KeepAlive: 30,
		Reconnect: config.MQTTReconnectConfig{
			Interval:    1,
			MaxInterval: 5,
		},
	}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

// =============================================================================
// Options Tests
// =============================================================================

func TestNew_Options(t *testing.T) {
	c := New(testPrinter(), testConfig())
	opts := c.client.OptionsReader()

	servers := opts.Servers()
	if len(servers) != 1 || servers[0].String() != "ssl://192.0.2.10:8883" {
		t.Fatalf("Servers() = %v, want [ssl://192.0.2.10:8883]", servers)
	}
	if opts.Username() != DefaultUsername {
		t.Errorf("Username() = %q, want %q", opts.Username(), DefaultUsername)
	}
	if opts.Password() != "12345678" {
		t.Error("Password() is not the access token")
	}
	if opts.ClientID() != "bambu-core-test" {
		t.Errorf("ClientID() = %q, want bambu-core-test", opts.ClientID())
	}
	if !opts.AutoReconnect() || !opts.ConnectRetry() {
		t.Error("expected auto reconnect and connect retry")
	}
	if opts.ConnectRetryInterval() != time.Second {
		t.Errorf("ConnectRetryInterval() = %v, want 1s", opts.ConnectRetryInterval())
	}
	if opts.MaxReconnectInterval() != 5*time.Second {
		t.Errorf("MaxReconnectInterval() = %v, want 5s", opts.MaxReconnectInterval())
	}
	if opts.KeepAlive() != 30*time.Second {
		t.Errorf("KeepAlive() = %v, want 30s", opts.KeepAlive())
	}
	if !opts.Order() {
		t.Error("Order() = false, want in-order delivery")
	}
	if tls := opts.TLSConfig(); tls == nil || !tls.InsecureSkipVerify {
		t.Error("expected TLS without certificate verification")
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(testPrinter(), config.MQTTConfig{})
	opts := c.client.OptionsReader()

	if !strings.HasPrefix(opts.ClientID(), "bambu-core-") {
		t.Errorf("ClientID() = %q, want bambu-core- prefix", opts.ClientID())
	}
	if opts.KeepAlive() != defaultKeepAlive {
		t.Errorf("KeepAlive() = %v, want %v", opts.KeepAlive(), defaultKeepAlive)
	}

	other := New(testPrinter(), config.MQTTConfig{})
	otherOpts := other.client.OptionsReader()
	if otherOpts.ClientID() == opts.ClientID() {
		t.Error("generated client IDs should differ")
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	c := New(testPrinter(), testConfig())
	if c.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
}

func TestConnect_CancelledContext(t *testing.T) {
	printer := testPrinter()
	printer.Host = "127.0.0.1"
	printer.MQTTPort = 1 // Nothing listens here
	c := New(printer, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Connect(ctx)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Connect() error = %v, want deadline exceeded", err)
	}
}

// =============================================================================
// Disconnected Behaviour Tests
// =============================================================================

func TestPublish_Disconnected(t *testing.T) {
	c := New(testPrinter(), testConfig())

	if err := c.PublishRequest([]byte(`{}`)); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishRequest() error = %v, want ErrNotConnected", err)
	}
	if err := c.PublishString("device/x/request", "{}", 0, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishString() error = %v, want ErrNotConnected", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := New(testPrinter(), testConfig())

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", []byte("x"), 0, ErrInvalidTopic},
		{"invalid qos", "device/x/request", []byte("x"), 3, ErrInvalidQoS},
		{"oversized", "device/x/request", make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := New(testPrinter(), testConfig())
	handler := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 0, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty) error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("device/x/report", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("device/x/report", 0, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil) error = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("device/x/report", 0, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
	if err := c.Unsubscribe("device/x/report"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck(t *testing.T) {
	c := New(testPrinter(), testConfig())

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

// =============================================================================
// Callback Tests
// =============================================================================

func TestCallbacks(t *testing.T) {
	c := New(testPrinter(), testConfig())

	var got []string
	c.SetOnConnecting(func() { got = append(got, "connecting") })
	c.SetOnConnect(func() { got = append(got, "connected") })
	c.SetOnDisconnect(func(err error) { got = append(got, "disconnected: "+err.Error()) })

	c.handleConnecting()
	c.handleConnect()
	c.handleDisconnect(errors.New("EOF"))

	want := []string{"connecting", "connected", "disconnected: EOF"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("callbacks = %v, want %v", got, want)
	}

	c.connMu.RLock()
	connected := c.connected
	c.connMu.RUnlock()
	if connected {
		t.Error("connected flag still set after disconnect")
	}
}

func TestDisconnect_NeverConnected(t *testing.T) {
	c := New(testPrinter(), testConfig())

	called := false
	c.SetOnDisconnect(func(error) { called = true })

	c.Disconnect(true)
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if called {
		t.Error("disconnect callback fired for a client that never connected")
	}
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestWrapHandler_RecoversPanic(t *testing.T) {
	c := New(testPrinter(), testConfig())
	logger := &recordingLogger{}
	c.SetLogger(logger)

	wrapped := c.wrapHandler(func(string, []byte) error {
		panic("boom")
	})
	wrapped(nil, fakeMessage{topic: "device/x/report"})

	if len(logger.errors) != 1 {
		t.Fatalf("logged errors = %v, want one panic report", logger.errors)
	}
}

func TestWrapHandler_LogsError(t *testing.T) {
	c := New(testPrinter(), testConfig())
	logger := &recordingLogger{}
	c.SetLogger(logger)

	var gotTopic, gotPayload string
	wrapped := c.wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return errors.New("bad payload")
	})
	wrapped(nil, fakeMessage{topic: "device/x/report", payload: []byte(`{"print":{}}`)})

	if gotTopic != "device/x/report" || gotPayload != `{"print":{}}` {
		t.Errorf("handler got (%q, %q)", gotTopic, gotPayload)
	}
	if len(logger.warns) != 1 {
		t.Errorf("logged warnings = %v, want one", logger.warns)
	}
}

func TestWrapHandler_NoLogger(t *testing.T) {
	c := New(testPrinter(), testConfig())

	wrapped := c.wrapHandler(func(string, []byte) error {
		panic("boom")
	})
	// Must not propagate the panic.
	wrapped(nil, fakeMessage{topic: "device/x/report"})
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopics(t *testing.T) {
	topics := Topics{Serial: "01S00C123456789"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"report", topics.Report(), "device/01S00C123456789/report"},
		{"request", topics.Request(), "device/01S00C123456789/request"},
		{"all reports", topics.AllReports(), "device/+/report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	if New(testPrinter(), testConfig()).Topics() != topics {
		t.Error("client topics do not use the printer serial")
	}
}

func TestSerialFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"device/ABC/report", "ABC"},
		{"device/ABC/request", "ABC"},
		{"device/ABC/other", ""},
		{"device//report", ""},
		{"home/ABC/report", ""},
		{"device/ABC/report/extra", ""},
	}

	for _, tt := range tests {
		if got := SerialFromTopic(tt.topic); got != tt.want {
			t.Errorf("SerialFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}
