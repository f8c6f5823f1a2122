package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/bambu-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// DefaultUsername is the fixed LAN-mode user on every printer.
	DefaultUsername = "bblp"

	// defaultConnectTimeout bounds a single TCP+TLS+CONNECT attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// Disconnect quiesce periods, in milliseconds.
	gracefulQuiesce = 250
	forcedQuiesce   = 0

	// defaultKeepAlive applies when the config leaves keep_alive at zero.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions creates paho options for the printer's broker.
//
// The broker is the printer itself: ssl://<host>:8883, user bblp and the
// LAN access code as password. It presents a self-signed certificate, so
// verification is disabled. Retry runs from the first attempt, so Connect
// only completes once a handshake succeeds.
func buildClientOptions(printer config.PrinterConfig, cfg config.MQTTConfig, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(fmt.Sprintf("ssl://%s:%d", printer.Host, printer.MQTTPort))
	opts.SetClientID(clientID)
	opts.SetUsername(DefaultUsername)
	opts.SetPassword(printer.AccessToken)

	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(seconds(cfg.Reconnect.Interval, time.Second))
	opts.SetMaxReconnectInterval(seconds(cfg.Reconnect.MaxInterval, 10*time.Second))

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(seconds(cfg.KeepAlive, defaultKeepAlive))

	opts.SetTLSConfig(&tls.Config{
		MinVersion:         tlsMinVersion,
		InsecureSkipVerify: true, //nolint:gosec // Printers ship a self-signed certificate
	})

	return opts
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
