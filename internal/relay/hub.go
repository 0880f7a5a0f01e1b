package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/farsign/farsign-core/internal/session"
)

// Logger defines the logging interface used by the Hub.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EventSink receives relay lifecycle events for external publication
// (integration bus, telemetry). All methods are best-effort from the
// hub's perspective; implementations must not block and must not call
// back into the hub.
type EventSink interface {
	SessionJoined(key string, role session.Role)
	SessionPeerLost(key string, role session.Role)
	ActionTriggered(sessionKey, actionID string)
	DisplayDimensions(sessionKey string, width, height int)
	SessionsCleared(count int)
}

// noopSink discards all events.
type noopSink struct{}

func (noopSink) SessionJoined(string, session.Role)   {}
func (noopSink) SessionPeerLost(string, session.Role) {}
func (noopSink) ActionTriggered(string, string)       {}
func (noopSink) DisplayDimensions(string, int, int)   {}
func (noopSink) SessionsCleared(int)                  {}

// defaultGracePeriod bounds the pause between the clear-all broadcast
// and session removal.
const defaultGracePeriod = 500 * time.Millisecond

// Hub pairs controller and display channels through the session
// registry and forwards messages between them.
//
// The registry holds channel IDs; the hub owns the only map from ID to
// live Channel. Join, forward, and disconnect for the same session key
// may arrive concurrently from different connections; every binding
// decision happens inside the registry's lock, and the hub resolves
// IDs to channels only afterwards.
//
// All public methods are thread-safe.
type Hub struct {
	registry *session.Registry
	logger   Logger
	sink     EventSink
	grace    time.Duration

	mu       sync.RWMutex
	channels map[string]Channel
}

// NewHub creates a hub over a session registry.
func NewHub(registry *session.Registry, logger Logger) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Hub{
		registry: registry,
		logger:   logger,
		sink:     noopSink{},
		grace:    defaultGracePeriod,
		channels: make(map[string]Channel),
	}
}

// SetEventSink sets the external event sink.
func (h *Hub) SetEventSink(sink EventSink) {
	if sink == nil {
		sink = noopSink{}
	}
	h.sink = sink
}

// SetGracePeriod overrides the clear-all grace period.
func (h *Hub) SetGracePeriod(d time.Duration) {
	if d >= 0 {
		h.grace = d
	}
}

// Register tracks a newly connected channel. The channel holds no role
// until it joins a session.
func (h *Hub) Register(ch Channel) {
	h.mu.Lock()
	h.channels[ch.ID()] = ch
	count := len(h.channels)
	h.mu.Unlock()
	h.logger.Debug("channel connected", "channel_id", ch.ID(), "channels", count)
}

// ChannelCount returns the number of connected channels.
func (h *Hub) ChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// HandleMessage processes one inbound message from a channel: a join
// claims a role, anything else is forwarded to the bound peer.
func (h *Hub) HandleMessage(ch Channel, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(ch, "invalid JSON message")
		return
	}

	if msg.Type == TypeJoin {
		h.handleJoin(ch, msg)
		return
	}
	h.forward(ch, msg)
}

// handleJoin binds a channel to a role in a session. Display joins
// create the session if needed; controller joins require a session to
// already exist. Rebinding after a reconnect is the same operation.
func (h *Hub) handleJoin(ch Channel, msg Message) {
	var join JoinPayload
	if err := json.Unmarshal(msg.Payload, &join); err != nil {
		h.sendError(ch, "invalid join payload")
		return
	}
	key := session.Normalize(join.Session)

	switch session.Role(join.Role) {
	case session.RoleDisplay:
		if err := h.registry.BindDisplay(key, session.ChannelID(ch.ID())); err != nil {
			h.send(ch, mustMessage(TypeJoinRejected, JoinResultPayload{
				Session: key, Role: join.Role, Reason: err.Error(),
			}))
			return
		}
		h.send(ch, mustMessage(TypeJoinAccepted, JoinResultPayload{Session: key, Role: join.Role}))
		h.logger.Info("display joined", "session", key, "channel_id", ch.ID())

		// A controller that joined first learns the display arrived
		// without polling.
		if ctrlID, ok := h.registry.ControllerChannel(key); ok {
			h.sendToID(string(ctrlID), mustMessage(TypePeerConnected, PeerPayload{
				Session: key, Role: string(session.RoleDisplay),
			}))
		}
		h.sink.SessionJoined(key, session.RoleDisplay)

	case session.RoleController:
		if err := h.registry.BindController(key, session.ChannelID(ch.ID())); err != nil {
			// Unknown session: no display has ever joined this key.
			h.send(ch, mustMessage(TypeJoinRejected, JoinResultPayload{
				Session: key, Role: join.Role, Reason: "session not found",
			}))
			h.logger.Debug("controller join rejected", "session", key, "error", err)
			return
		}
		h.send(ch, mustMessage(TypeJoinAccepted, JoinResultPayload{Session: key, Role: join.Role}))
		h.logger.Info("controller joined", "session", key, "channel_id", ch.ID())

		if _, ok := h.registry.DisplayChannel(key); ok {
			h.send(ch, mustMessage(TypePeerConnected, PeerPayload{
				Session: key, Role: string(session.RoleDisplay),
			}))
		}
		h.sink.SessionJoined(key, session.RoleController)

	default:
		h.sendError(ch, "unknown role: "+join.Role)
	}
}

// forward routes a message from a joined channel to its bound peer.
// Commands flow controller → display, events display → controller; a
// message with no bound target is dropped with a warning, never an
// error to the sender.
func (h *Hub) forward(ch Channel, msg Message) {
	snap, role, ok := h.registry.FindByChannel(session.ChannelID(ch.ID()))
	if !ok {
		h.sendError(ch, "not joined to a session")
		return
	}

	var targetID session.ChannelID
	var bound bool
	switch {
	case role == session.RoleController && IsCommand(msg.Type):
		targetID, bound = h.registry.DisplayChannel(snap.Key)
	case role == session.RoleDisplay && IsEvent(msg.Type):
		targetID, bound = h.registry.ControllerChannel(snap.Key)
	default:
		h.sendError(ch, "message type not allowed for role: "+msg.Type)
		return
	}

	if !bound {
		h.logger.Warn("forward with no bound peer",
			"session", snap.Key, "from_role", role, "type", msg.Type)
		return
	}

	h.registry.Touch(snap.Key)
	h.observe(snap.Key, msg)
	h.sendToID(string(targetID), msg)
}

// observe feeds selected forwarded traffic to the event sink.
func (h *Hub) observe(key string, msg Message) {
	switch msg.Type {
	case TypeActionTriggered:
		var p TriggeredPayload
		if err := json.Unmarshal(msg.Payload, &p); err == nil {
			h.sink.ActionTriggered(key, p.ActionID)
		}
	case TypeDisplayDimensions:
		var p DimensionsPayload
		if err := json.Unmarshal(msg.Payload, &p); err == nil {
			h.sink.DisplayDimensions(key, p.Width, p.Height)
		}
	}
}

// Disconnect handles a channel closing. The registry removes only
// bindings that still point at this exact channel, so a connection
// superseded by a reconnect produces no notifications.
func (h *Hub) Disconnect(ch Channel) {
	h.mu.Lock()
	delete(h.channels, ch.ID())
	count := len(h.channels)
	h.mu.Unlock()

	removed := h.registry.Unbind(session.ChannelID(ch.ID()))
	for _, u := range removed {
		h.logger.Info("peer disconnected",
			"session", u.Key, "role", u.Role, "channel_id", ch.ID())
		h.notifyPeerLost(u.Key, u.Role)
		h.sink.SessionPeerLost(u.Key, u.Role)
	}
	h.logger.Debug("channel closed", "channel_id", ch.ID(), "channels", count)
}

// notifyPeerLost tells the surviving role its peer dropped.
func (h *Hub) notifyPeerLost(key string, lost session.Role) {
	msg := mustMessage(TypePeerDisconnected, PeerPayload{Session: key, Role: string(lost)})

	var survivorID session.ChannelID
	var bound bool
	if lost == session.RoleDisplay {
		survivorID, bound = h.registry.ControllerChannel(key)
	} else {
		survivorID, bound = h.registry.DisplayChannel(key)
	}
	if bound {
		h.sendToID(string(survivorID), msg)
	}
}

// NotifyActionsUpdated tells a session's display its action list
// changed. Returns false if no display is bound.
func (h *Hub) NotifyActionsUpdated(key string) bool {
	displayID, ok := h.registry.DisplayChannel(session.Normalize(key))
	if !ok {
		return false
	}
	h.sendToID(string(displayID), Message{Type: TypeActionsUpdated})
	return true
}

// ClearAll broadcasts reset notifications to every bound peer, waits a
// single bounded grace period for them to react, then drops every
// session. Returns the number of sessions removed.
//
// Each notification is independently best-effort so one unreachable
// peer cannot stall the rest.
func (h *Hub) ClearAll() int {
	resetServer := Message{Type: TypeResetServer}
	resetClient := Message{Type: TypeResetClient}

	for _, snap := range h.registry.ListAll() {
		if ctrlID, ok := h.registry.ControllerChannel(snap.Key); ok {
			h.sendToID(string(ctrlID), resetServer)
		}
		if dispID, ok := h.registry.DisplayChannel(snap.Key); ok {
			h.sendToID(string(dispID), resetClient)
		}
	}

	if h.grace > 0 {
		time.Sleep(h.grace)
	}

	count := h.registry.Count()
	h.registry.ClearAll()
	h.logger.Info("all sessions cleared", "count", count)
	h.sink.SessionsCleared(count)
	return count
}

// send delivers a message directly to a channel, logging failures.
func (h *Hub) send(ch Channel, msg Message) {
	if err := ch.Send(msg); err != nil {
		h.logger.Warn("send failed", "channel_id", ch.ID(), "type", msg.Type, "error", err)
	}
}

// sendToID resolves a channel ID and delivers a message, logging when
// the channel is gone or the send fails.
func (h *Hub) sendToID(id string, msg Message) {
	h.mu.RLock()
	ch, ok := h.channels[id]
	h.mu.RUnlock()

	if !ok {
		h.logger.Warn("send to unknown channel", "channel_id", id, "type", msg.Type)
		return
	}
	h.send(ch, msg)
}

// sendError reports a protocol error back to the sender.
func (h *Hub) sendError(ch Channel, text string) {
	h.send(ch, mustMessage(TypeError, ErrorPayload{Message: text}))
}
