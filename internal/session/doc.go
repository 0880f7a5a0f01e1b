// Package session provides the in-memory session registry for the
// pairing relay.
//
// A session pairs at most one controller and one display channel under
// a normalised client name. The registry holds only channel IDs as
// back-references; the transport owns the channels themselves, which
// keeps reverse lookup O(1)-cheap without tying channel lifetimes to
// the registry.
//
// State is intentionally not persisted: sessions exist for the lifetime
// of the server process and are removed only by an explicit clear-all.
package session
