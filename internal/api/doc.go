// Package api implements the HTTP REST API and WebSocket relay for the printer.
//
// This package provides:
//   - Read endpoints for the latest status, device modules and jobs
//   - Command endpoints that encode and publish typed printer commands
//   - HMS description lookups
//   - A WebSocket hub relaying status, job and connection events
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The server sits beside the printer client. Reads are served from the
// client's in-memory view, commands are published through it, and every
// event the client emits is forwarded to WebSocket clients subscribed to
// the event's name.
//
// # Graceful Degradation
//
// The server keeps running while the printer is offline: reads return the
// last known state and commands fail with 503 until the link is back.
package api
