package session

import "time"

// Role identifies which side of a session a channel is bound to.
type Role string

const (
	RoleController Role = "controller"
	RoleDisplay    Role = "display"
)

// ChannelID is the ephemeral identity of one live connection. The
// registry only ever holds channel IDs, never the channels themselves;
// the transport owns channel lifetimes.
type ChannelID string

// Session is the pairing unit identified by a normalised client name.
// At most one controller and one display channel are bound at a time;
// binding a new channel for a role replaces the previous pointer.
type Session struct {
	Key          string
	Controller   ChannelID // empty when unbound
	Display      ChannelID // empty when unbound
	CreatedAt    time.Time
	LastActivity time.Time
}

// IsControllerConnected reports whether a controller channel is bound.
func (s *Session) IsControllerConnected() bool {
	return s.Controller != ""
}

// IsDisplayConnected reports whether a display channel is bound.
func (s *Session) IsDisplayConnected() bool {
	return s.Display != ""
}

// Snapshot is a read-only view of a session exposed to the admin API.
type Snapshot struct {
	Key                 string    `json:"key"`
	ControllerConnected bool      `json:"controller_connected"`
	DisplayConnected    bool      `json:"display_connected"`
	CreatedAt           time.Time `json:"created_at"`
	LastActivity        time.Time `json:"last_activity"`
}

// Snapshot returns a copy-safe view of the session.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Key:                 s.Key,
		ControllerConnected: s.IsControllerConnected(),
		DisplayConnected:    s.IsDisplayConnected(),
		CreatedAt:           s.CreatedAt,
		LastActivity:        s.LastActivity,
	}
}

// Unbound records one binding removed by Unbind: which session and
// role the departing channel held.
type Unbound struct {
	Key  string
	Role Role
}
