package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Session administration
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/reset", s.handleResetSessions)
			r.Get("/{key}/display", s.handleDisplayPresence)
			r.Get("/{key}/actions", s.handleListSessionActions)
		})

		// Action directory
		r.Route("/actions", func(r chi.Router) {
			r.Get("/", s.handleListActions)
			r.Post("/", s.handleCreateAction)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAction)
				r.Put("/", s.handleUpdateAction)
				r.Delete("/", s.handleDeleteAction)
				r.Post("/push", s.handlePushAction)
			})
		})

		// WebSocket relay endpoint
		r.Get(s.websocketPath(), s.handleWebSocket)
	})

	return r
}

// websocketPath returns the configured WebSocket route, defaulting to /ws.
func (s *Server) websocketPath() string {
	if s.wsCfg.Path != "" {
		return s.wsCfg.Path
	}
	return "/ws"
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"sessions": s.sessions.Count(),
		"channels": s.hub.ChannelCount(),
	})
}
