package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxQueryParamLen limits path and query parameter length to prevent DoS
// via oversized URL components.
const maxQueryParamLen = 100

// handleListSessions returns all known sessions, most recently active first.
func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := s.sessions.ListAll()
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}

// handleResetSessions broadcasts reset notifications to every connected
// peer and drops all session state.
func (s *Server) handleResetSessions(w http.ResponseWriter, _ *http.Request) {
	cleared := s.hub.ClearAll()
	writeJSON(w, http.StatusOK, map[string]any{"cleared": cleared})
}

// handleDisplayPresence reports whether a display is connected for the
// given session. It never creates the session as a side effect.
func (s *Server) handleDisplayPresence(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" || len(key) > maxQueryParamLen {
		writeBadRequest(w, "invalid session key")
		return
	}

	snap, ok := s.sessions.Get(key)
	if !ok {
		writeNotFound(w, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session":           snap.Key,
		"display_connected": snap.DisplayConnected,
	})
}

// handleListSessionActions returns all actions belonging to a session.
func (s *Server) handleListSessionActions(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" || len(key) > maxQueryParamLen {
		writeBadRequest(w, "invalid session key")
		return
	}

	actions, err := s.actions.ListForSession(r.Context(), key)
	if err != nil {
		writeInternalError(w, "failed to list actions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"actions": actions, "count": len(actions)})
}
