package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// maxPayloadSize caps MQTT payloads at 1MB, aligning with typical
// broker limits.
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// QoS levels: 0 at most once, 1 at least once, 2 exactly once.
// Retained messages are stored by the broker and delivered to new
// subscribers; use them for state topics, not events.
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

// PublishJSON marshals a value and publishes it with the configured
// default QoS.
func (c *Client) PublishJSON(topic string, value any, retained bool) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: marshalling payload: %w", ErrPublishFailed, err)
	}
	return c.Publish(topic, payload, byte(c.cfg.QoS), retained)
}

// SessionStatusEvent is the retained per-session pairing state.
type SessionStatusEvent struct {
	Session    string    `json:"session"`
	Role       string    `json:"role"`
	Connected  bool      `json:"connected"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ActionTriggeredEvent announces an action completing on a display.
type ActionTriggeredEvent struct {
	Session    string    `json:"session"`
	ActionID   string    `json:"action_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SessionsClearedEvent announces an admin clear-all.
type SessionsClearedEvent struct {
	Count      int       `json:"count"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PublishSessionStatus publishes a session's pairing state change.
func (c *Client) PublishSessionStatus(session, role string, connected bool) error {
	return c.PublishJSON(Topics{}.SessionStatus(session), SessionStatusEvent{
		Session:    session,
		Role:       role,
		Connected:  connected,
		OccurredAt: time.Now().UTC(),
	}, true)
}

// PublishActionTriggered publishes an action completion event.
func (c *Client) PublishActionTriggered(session, actionID string) error {
	return c.PublishJSON(Topics{}.ActionTriggered(session), ActionTriggeredEvent{
		Session:    session,
		ActionID:   actionID,
		OccurredAt: time.Now().UTC(),
	}, false)
}

// PublishSessionsCleared publishes a clear-all event.
func (c *Client) PublishSessionsCleared(count int) error {
	return c.PublishJSON(Topics{}.SessionsCleared(), SessionsClearedEvent{
		Count:      count,
		OccurredAt: time.Now().UTC(),
	}, false)
}
