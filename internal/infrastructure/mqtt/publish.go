package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outbound commands. Requests to the printer are small
// JSON documents; anything near this size is a bug.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic. It fails immediately with ErrNotConnected
// while the link is down; nothing is queued for later.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString publishes a string payload.
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRequest publishes a command to the device's request topic at the
// configured QoS. Commands are never retained.
func (c *Client) PublishRequest(payload []byte) error {
	return c.Publish(c.topics.Request(), payload, c.qos, false)
}
