package bambu

import (
	"context"

	"github.com/nerrad567/bambu-core/internal/event"
	"github.com/nerrad567/bambu-core/internal/protocol"
)

// handle decodes one report and fans it out. Undecodable reports are
// dropped after the raw event; they never stop delivery.
func (c *Client) handle(topic string, payload []byte) error {
	if t, ok := c.logger.(tracer); ok {
		t.Trace("report received", "topic", topic, "payload", string(payload))
	}
	c.raw.Emit(event.RawMessage, RawMessage{Topic: topic, Payload: payload})

	msg, err := protocol.Decode(payload)
	if err != nil {
		c.logger.Debug("dropping undecodable report", "topic", topic, "error", err)
		return nil
	}
	c.messages.Emit(event.Message, msg)

	if !msg.Known() || msg.Command == "" {
		return nil
	}

	switch msg.Kind() {
	case protocol.KindGetVersion:
		c.onGetVersion(msg)
	case protocol.KindPushStatus:
		c.onPushStatus(msg)
	case protocol.KindPushInfo:
		c.onPushInfo(msg)
	default:
		c.commands.Emit(event.Command(msg.Command), msg)
	}
	return nil
}

func (c *Client) onGetVersion(msg *protocol.Message) {
	v, err := msg.GetVersion()
	if err != nil {
		c.logger.Debug("malformed get_version", "error", err)
	} else {
		c.mu.Lock()
		c.device = v
		c.mu.Unlock()
		c.logger.Debug("device info received", "modules", len(v.Module))
	}
	c.commands.Emit(event.Command(msg.Command), msg)
}

func (c *Client) onPushStatus(msg *protocol.Message) {
	c.commands.Emit(event.Command(msg.Command), msg)

	raw, err := msg.PushStatus()
	if err != nil {
		c.logger.Debug("malformed push_status", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
	defer cancel()
	c.tracker.OnStatus(ctx, raw)
}

func (c *Client) onPushInfo(msg *protocol.Message) {
	c.commands.Emit(event.Command(msg.Command), msg)

	info, err := msg.PushInfo()
	if err != nil {
		c.logger.Debug("malformed push_info", "error", err)
		return
	}
	clean, ok := info.Clean()
	if !ok {
		return
	}
	c.pushInfo.Emit(event.PushInfoClean, clean)
	c.tracker.OnPushInfo(clean)
}
