package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/farsign/farsign-core/internal/relay"
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// handleWebSocket upgrades the HTTP connection and hands it to the relay
// hub as an unbound channel. The peer declares its role and session with
// a join message; until then the channel cannot forward anything.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed",
			"error", err,
			"remote", r.RemoteAddr,
		)
		return
	}

	ch := relay.NewWSChannel(conn, s.hub, s.wsCfg, s.logger)
	s.logger.Debug("websocket channel opened",
		"channel", ch.ID(),
		"remote", r.RemoteAddr,
	)
}
