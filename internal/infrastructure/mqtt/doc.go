// Package mqtt provides the telemetry connection to a Bambu Lab printer.
//
// Every printer runs its own MQTT broker on port 8883. This package manages:
//   - A TLS connection to that broker with the LAN access code as password
//   - Automatic reconnection with near-continuous retry
//   - Topic subscriptions that survive reconnects
//   - Publishing commands to the device request topic
//
// # Topics
//
//	device/<serial>/report   telemetry from the printer
//	device/<serial>/request  commands to the printer
//
// # Security Considerations
//
//   - The printer presents a self-signed certificate, so it is not verified
//   - The access code is the only credential; it is never logged
//
// # Usage
//
//	client := mqtt.New(cfg.Printer, cfg.MQTT)
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err := client.Subscribe(client.Topics().Report(), 0,
//	    func(topic string, payload []byte) error {
//	        return handle(payload)
//	    })
package mqtt
