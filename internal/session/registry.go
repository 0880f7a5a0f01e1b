package session

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry is the in-memory session store.
//
// Keys are normalised (case-folded, trimmed) before every lookup, so
// "Lobby " and "lobby" address the same session. All methods are safe
// for concurrent use; controller-join, display-join, and disconnect for
// the same key can arrive from different connections at the same moment.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Normalize returns the canonical form of a session key.
func Normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// GetOrCreate returns the session for key, creating it if absent.
// Concurrent calls for the same normalised key all observe the single
// record created by whichever caller won the write lock.
func (r *Registry) GetOrCreate(key string) (Snapshot, error) {
	k := Normalize(key)
	if k == "" {
		return Snapshot{}, ErrEmptyKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.getOrCreateLocked(k)
	return s.Snapshot(), nil
}

// getOrCreateLocked inserts a session if absent. Callers hold r.mu.
func (r *Registry) getOrCreateLocked(k string) *Session {
	if s, ok := r.sessions[k]; ok {
		return s
	}
	now := time.Now().UTC()
	s := &Session{
		Key:          k,
		CreatedAt:    now,
		LastActivity: now,
	}
	r.sessions[k] = s
	return s
}

// Get looks up a session without creating it. Used by the existence
// probe, which must never create a session as a side effect.
func (r *Registry) Get(key string) (Snapshot, bool) {
	k := Normalize(key)

	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[k]
	if !ok {
		return Snapshot{}, false
	}
	return s.Snapshot(), true
}

// BindController binds a controller channel to an existing session.
// Returns ErrNotFound if the session does not exist; a controller can
// only target a session a display has created. A previous controller
// binding is silently replaced.
func (r *Registry) BindController(key string, ch ChannelID) error {
	k := Normalize(key)
	if k == "" {
		return ErrEmptyKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[k]
	if !ok {
		return ErrNotFound
	}
	s.Controller = ch
	s.LastActivity = time.Now().UTC()
	return nil
}

// BindDisplay binds a display channel, creating the session if needed.
// A display may come online before any controller has ever joined.
func (r *Registry) BindDisplay(key string, ch ChannelID) error {
	k := Normalize(key)
	if k == "" {
		return ErrEmptyKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.getOrCreateLocked(k)
	s.Display = ch
	s.LastActivity = time.Now().UTC()
	return nil
}

// Touch updates LastActivity for a session. No-op if the key is unknown.
func (r *Registry) Touch(key string) {
	k := Normalize(key)

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[k]; ok {
		s.LastActivity = time.Now().UTC()
	}
}

// Unbind removes every role pointer equal to ch and reports what was
// removed. A channel superseded by a newer bind no longer matches any
// pointer, so its disconnect removes nothing — this is what suppresses
// false peer-disconnected notifications after a reconnect race.
// Safe to call for channels that were never bound.
func (r *Registry) Unbind(ch ChannelID) []Unbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []Unbound
	for _, s := range r.sessions {
		if s.Controller == ch {
			s.Controller = ""
			removed = append(removed, Unbound{Key: s.Key, Role: RoleController})
		}
		if s.Display == ch {
			s.Display = ""
			removed = append(removed, Unbound{Key: s.Key, Role: RoleDisplay})
		}
	}
	return removed
}

// FindByChannel returns the session and role currently bound to ch.
func (r *Registry) FindByChannel(ch ChannelID) (Snapshot, Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if s.Controller == ch {
			return s.Snapshot(), RoleController, true
		}
		if s.Display == ch {
			return s.Snapshot(), RoleDisplay, true
		}
	}
	return Snapshot{}, "", false
}

// ControllerChannel returns the controller channel bound to key.
func (r *Registry) ControllerChannel(key string) (ChannelID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[Normalize(key)]
	if !ok || s.Controller == "" {
		return "", false
	}
	return s.Controller, true
}

// DisplayChannel returns the display channel bound to key.
func (r *Registry) DisplayChannel(key string) (ChannelID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[Normalize(key)]
	if !ok || s.Display == "" {
		return "", false
	}
	return s.Display, true
}

// ListAll returns snapshots of every session ordered by last activity,
// most recent first.
func (r *Registry) ListAll() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshots = append(snapshots, s.Snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].LastActivity.After(snapshots[j].LastActivity)
	})
	return snapshots
}

// Count returns the number of sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ClearAll drops every session. Only the explicit reset command calls
// this; there is no per-session expiry.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*Session)
}
