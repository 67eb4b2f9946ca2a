package mqtt

import (
	"encoding/json"
	"fmt"
)

// maxPayloadSize caps a single message at 1MB, the common broker default.
// Browse results for large installations are the biggest payloads.
const maxPayloadSize = 1 << 20

// Publish sends payload on topic and waits for the broker acknowledgement.
//
// Retain state topics (Topics.State, Topics.SystemStatus) so late subscribers
// see the current value; never retain messagebox requests or replies.
//
// Parameters:
//   - topic: destination, e.g. Topics{}.MessageboxRequest("iot.0", "browse")
//   - payload: message body, at most 1MB
//   - qos: 0, 1 or 2
//   - retained: whether the broker keeps the message for new subscribers
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected or ErrPublishFailed
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// PublishJSON marshals v and publishes it with the configured QoS.
func (c *Client) PublishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshalling payload: %w", ErrPublishFailed, err)
	}
	return c.Publish(topic, payload, byte(c.cfg.QoS), retained)
}
