package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farsign/farsign-core/internal/action"
)

// handleListActions returns actions, optionally filtered by session.
//
// Query parameters:
//   - session: filter by session key
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if key := r.URL.Query().Get("session"); key != "" {
		if len(key) > maxQueryParamLen {
			writeBadRequest(w, "session exceeds maximum length")
			return
		}
		actions, err := s.actions.ListForSession(ctx, key)
		if err != nil {
			writeInternalError(w, "failed to list actions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"actions": actions, "count": len(actions)})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": s.actions.Count()})
}

// handleGetAction returns a single action by ID.
func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid action ID")
		return
	}

	def, err := s.actions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, action.ErrNotFound) {
			writeNotFound(w, "action not found")
			return
		}
		writeInternalError(w, "failed to get action")
		return
	}

	writeJSON(w, http.StatusOK, def)
}

// handleCreateAction creates a new action definition.
func (s *Server) handleCreateAction(w http.ResponseWriter, r *http.Request) {
	var def action.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.actions.Create(r.Context(), &def); err != nil {
		if isValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, action.ErrExists) {
			writeConflict(w, err.Error())
			return
		}
		writeInternalError(w, "failed to create action")
		return
	}

	writeJSON(w, http.StatusCreated, def)
}

// handleUpdateAction replaces an existing action definition.
func (s *Server) handleUpdateAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid action ID")
		return
	}

	var def action.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	def.ID = id

	if err := s.actions.Update(r.Context(), &def); err != nil {
		if isValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, action.ErrNotFound) {
			writeNotFound(w, "action not found")
			return
		}
		writeInternalError(w, "failed to update action")
		return
	}

	writeJSON(w, http.StatusOK, def)
}

// handleDeleteAction removes an action definition.
func (s *Server) handleDeleteAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid action ID")
		return
	}

	if err := s.actions.Delete(r.Context(), id); err != nil {
		if errors.Is(err, action.ErrNotFound) {
			writeNotFound(w, "action not found")
			return
		}
		writeInternalError(w, "failed to delete action")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handlePushAction asks the relay to notify the action's display that its
// action set has changed. The display responds by re-fetching its actions.
func (s *Server) handlePushAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid action ID")
		return
	}

	def, err := s.actions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, action.ErrNotFound) {
			writeNotFound(w, "action not found")
			return
		}
		writeInternalError(w, "failed to get action")
		return
	}

	delivered := s.hub.NotifyActionsUpdated(def.SessionKey)
	writeJSON(w, http.StatusOK, map[string]any{
		"session":   def.SessionKey,
		"delivered": delivered,
	})
}

// isValidationError reports whether err is any of the action validation
// sentinels.
func isValidationError(err error) bool {
	return errors.Is(err, action.ErrInvalid) ||
		errors.Is(err, action.ErrInvalidStep) ||
		errors.Is(err, action.ErrInvalidTrigger) ||
		errors.Is(err, action.ErrInvalidEffect)
}
