// Package event provides the typed observer registry behind the client's
// public event surface.
//
// Each event family (connection, command, status, job lifecycle) gets its own
// Emitter parameterised by its payload type, while the event names stay the
// strings collaborators already depend on ("print:start", "command:push_status", ...).
//
// Handlers run synchronously on the emitting goroutine: those registered for
// the name first, then catch-all handlers. Registering returns an off
// function that removes the handler.
package event
