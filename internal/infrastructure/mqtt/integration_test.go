//go:build integration

package mqtt

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/nerrad567/bambu-core/internal/infrastructure/config"
)

// Integration tests against a real printer on the LAN.
//
// Run with:
//
//	BAMBU_PRINTER_HOST=... BAMBU_PRINTER_SERIAL=... BAMBU_PRINTER_TOKEN=... \
//	  go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationPrinter(t *testing.T) config.PrinterConfig {
	t.Helper()

	host := os.Getenv("BAMBU_PRINTER_HOST")
	serial := os.Getenv("BAMBU_PRINTER_SERIAL")
	token := os.Getenv("BAMBU_PRINTER_TOKEN")
	if host == "" || serial == "" || token == "" {
		t.Skip("BAMBU_PRINTER_HOST, BAMBU_PRINTER_SERIAL and BAMBU_PRINTER_TOKEN are required")
	}

	port := 8883
	if v := os.Getenv("BAMBU_PRINTER_MQTT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}

	return config.PrinterConfig{Host: host, Serial: serial, AccessToken: token, MQTTPort: port}
}

func TestIntegration_ReportAfterPushAll(t *testing.T) {
	c := New(integrationPrinter(t), config.MQTTConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	received := make(chan []byte, 1)
	err := c.Subscribe(c.Topics().Report(), 0, func(_ string, payload []byte) error {
		select {
		case received <- payload:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	pushAll := []byte(`{"pushing":{"sequence_id":"0","command":"pushall"},"user_id":"123456789"}`)
	if err := c.PublishRequest(pushAll); err != nil {
		t.Fatalf("PublishRequest() error = %v", err)
	}

	select {
	case payload := <-received:
		if len(payload) == 0 {
			t.Error("received empty report")
		}
	case <-ctx.Done():
		t.Fatal("no report received")
	}

	if c.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", c.SubscriptionCount())
	}
}

func TestIntegration_DisconnectStopsPublishing(t *testing.T) {
	c := New(integrationPrinter(t), config.MQTTConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	disconnected := make(chan struct{}, 1)
	c.SetOnDisconnect(func(error) { disconnected <- struct{}{} })
	c.Disconnect(false)

	select {
	case <-disconnected:
	case <-ctx.Done():
		t.Fatal("disconnect callback not called")
	}

	if err := c.PublishRequest([]byte(`{}`)); err == nil {
		t.Error("PublishRequest() after Disconnect should fail")
	}
}
