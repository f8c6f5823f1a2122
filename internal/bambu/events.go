package bambu

import (
	"github.com/nerrad567/bambu-core/internal/event"
	"github.com/nerrad567/bambu-core/internal/job"
	"github.com/nerrad567/bambu-core/internal/protocol"
	"github.com/nerrad567/bambu-core/internal/status"
)

// ConnectionEvent describes a change on the telemetry link. Topic and
// Payload are set for subscribed and published; Err is set when the
// operation failed or the link dropped unexpectedly.
type ConnectionEvent struct {
	Topic   string
	Payload []byte
	Err     error
}

// RawMessage is an inbound report before decoding.
type RawMessage struct {
	Topic   string
	Payload []byte
}

// OnConnection registers fn for one connection event.
func (c *Client) OnConnection(name event.Name, fn func(ConnectionEvent)) (off func()) {
	return c.connection.On(name, fn)
}

// OnAnyConnection registers fn for every connection event.
func (c *Client) OnAnyConnection(fn func(event.Name, ConnectionEvent)) (off func()) {
	return c.connection.OnAny(fn)
}

// OnRawMessage registers fn for every inbound report, decodable or not.
func (c *Client) OnRawMessage(fn func(RawMessage)) (off func()) {
	return c.raw.On(event.RawMessage, fn)
}

// OnMessage registers fn for every decoded report.
func (c *Client) OnMessage(fn func(*protocol.Message)) (off func()) {
	return c.messages.On(event.Message, fn)
}

// OnCommand registers fn for command:<name>. Narrow the message with its
// PushStatus, GetVersion, PushInfo or PrintResult method.
func (c *Client) OnCommand(name string, fn func(*protocol.Message)) (off func()) {
	return c.commands.On(event.Command(name), fn)
}

// OnAnyCommand registers fn for every command event.
func (c *Client) OnAnyCommand(fn func(event.Name, *protocol.Message)) (off func()) {
	return c.commands.OnAny(fn)
}

// OnPushInfo registers fn for command:push_info:clean.
func (c *Client) OnPushInfo(fn func(protocol.CleanPushInfo)) (off func()) {
	return c.pushInfo.On(event.PushInfoClean, fn)
}

// OnStatus registers fn for every published status.
func (c *Client) OnStatus(fn func(status.Status)) (off func()) {
	return c.tracker.OnStatusChange(fn)
}

// OnJob registers fn for print:start, print:update or print:finish.
func (c *Client) OnJob(name event.Name, fn func(*job.Job)) (off func()) {
	return c.tracker.OnJob(name, fn)
}

// OnAnyJob registers fn for every job lifecycle event.
func (c *Client) OnAnyJob(fn func(event.Name, *job.Job)) (off func()) {
	return c.tracker.OnAnyJob(fn)
}
