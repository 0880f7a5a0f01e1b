package relay

// Channel is one live duplex connection bound to at most one role in
// one session. The transport owns the channel's lifetime; the hub and
// registry only ever hold its ID.
type Channel interface {
	// ID returns the channel's unique ephemeral identity.
	ID() string

	// Send queues a message to the peer. Implementations must not
	// block on a slow peer.
	Send(msg Message) error

	// Close tears the connection down. Safe to call repeatedly.
	Close()
}
