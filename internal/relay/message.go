package relay

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types exchanged over a relay channel.
const (
	// Inbound, either role.
	TypeJoin = "join"

	// Controller → display commands.
	TypeReceiveURL    = "receive-url"
	TypeExecuteScript = "execute-script"
	TypeSimulateClick = "simulate-click"
	TypeSendActions   = "send-actions"

	// Display → controller events.
	TypeLogMessage        = "log-message"
	TypeDisplayDimensions = "display-dimensions"
	TypeActionTriggered   = "action-triggered"

	// Relay → peer notifications.
	TypeJoinAccepted     = "join-accepted"
	TypeJoinRejected     = "join-rejected"
	TypePeerConnected    = "peer-connected"
	TypePeerDisconnected = "peer-disconnected"
	TypeResetServer      = "reset-server"
	TypeResetClient      = "reset-client"
	TypeActionsUpdated   = "actions-updated"
	TypeError            = "error"
)

// Message is the envelope carried over every relay channel. Payload
// stays raw until the type is known, so the relay can forward peer
// traffic without decoding it.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage builds an envelope with a marshalled payload. A nil
// payload yields an envelope with no payload field.
func NewMessage(msgType string, payload any) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshalling %s payload: %w", msgType, err)
	}
	msg.Payload = data
	return msg, nil
}

// mustMessage is NewMessage for relay-built payloads that cannot fail.
func mustMessage(msgType string, payload any) Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// JoinPayload is sent by a peer to claim a role in a session.
type JoinPayload struct {
	Role    string `json:"role"`
	Session string `json:"session"`
}

// JoinResultPayload accompanies join-accepted and join-rejected.
type JoinResultPayload struct {
	Session string `json:"session"`
	Role    string `json:"role"`
	Reason  string `json:"reason,omitempty"`
}

// PeerPayload accompanies peer-connected and peer-disconnected.
type PeerPayload struct {
	Session string `json:"session"`
	Role    string `json:"role"`
}

// URLPayload accompanies receive-url.
type URLPayload struct {
	URL string `json:"url"`
}

// ScriptPayload accompanies execute-script.
type ScriptPayload struct {
	Code string `json:"code"`
}

// ClickPayload accompanies simulate-click.
type ClickPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// LogPayload accompanies log-message.
type LogPayload struct {
	Level     string    `json:"level"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// DimensionsPayload accompanies display-dimensions.
type DimensionsPayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TriggeredPayload accompanies action-triggered.
type TriggeredPayload struct {
	ActionID  string    `json:"action_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorPayload accompanies error.
type ErrorPayload struct {
	Message string `json:"message"`
}

// commandTypes are forwarded controller → display only.
var commandTypes = map[string]struct{}{
	TypeReceiveURL:    {},
	TypeExecuteScript: {},
	TypeSimulateClick: {},
	TypeSendActions:   {},
}

// eventTypes are forwarded display → controller only.
var eventTypes = map[string]struct{}{
	TypeLogMessage:        {},
	TypeDisplayDimensions: {},
	TypeActionTriggered:   {},
}

// IsCommand reports whether a message type is a controller command.
func IsCommand(msgType string) bool {
	_, ok := commandTypes[msgType]
	return ok
}

// IsEvent reports whether a message type is a display event.
func IsEvent(msgType string) bool {
	_, ok := eventTypes[msgType]
	return ok
}
