// Package bambu is the client façade for one Bambu Lab printer.
//
// A Client ties the telemetry connection, the job tracker and the file
// transfer service together and exposes them through typed event
// registration:
//
//	connection   connecting, connected, disconnected, subscribed, published
//	telemetry    rawMessage, message, command:<name>, command:push_info:clean
//	state        status, print:start, print:update, print:finish
//
// On every successful handshake the client subscribes to the device report
// topic, then requests the version info and a full state push, without
// waiting for replies in between. Inbound reports are handled one at a time
// in arrival order.
package bambu
