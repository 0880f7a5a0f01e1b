package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/farsign/farsign-core/internal/infrastructure/config"
)

// ErrChannelClosed is returned by Send after the channel shut down.
var ErrChannelClosed = errors.New("relay: channel closed")

// WSChannel is a Channel backed by a gorilla WebSocket connection.
// One read pump and one write pump service the connection; outbound
// messages go through a buffered channel so a slow peer never blocks
// the hub.
type WSChannel struct {
	id     string
	conn   *websocket.Conn
	hub    *Hub
	cfg    config.WebSocketConfig
	logger Logger

	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

// NewWSChannel wraps an upgraded connection, registers it with the hub,
// and starts its pumps.
func NewWSChannel(conn *websocket.Conn, hub *Hub, cfg config.WebSocketConfig, logger Logger) *WSChannel {
	if logger == nil {
		logger = noopLogger{}
	}
	c := &WSChannel{
		id:     uuid.NewString(),
		conn:   conn,
		hub:    hub,
		cfg:    cfg,
		logger: logger,
		send:   make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
	}

	hub.Register(c)
	go c.writePump()
	go c.readPump()
	return c
}

// ID returns the channel's unique identity.
func (c *WSChannel) ID() string {
	return c.id
}

// Send queues a message for the peer. A full buffer drops the message
// with a warning rather than blocking the caller.
func (c *WSChannel) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("send buffer full, message dropped", "channel_id", c.id, "type", msg.Type)
		return nil
	}
}

// Close tears the connection down. Safe to call repeatedly.
func (c *WSChannel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump reads messages from the connection and feeds them to the
// hub. It owns disconnect handling: when the read loop exits for any
// reason, the hub unbinds this channel.
func (c *WSChannel) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.Close()
	}()

	c.conn.SetReadLimit(int64(c.cfg.MaxMessageSize))
	pingInterval := time.Duration(c.cfg.PingInterval) * time.Second
	pongWait := time.Duration(c.cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "channel_id", c.id, "error", err)
			} else {
				c.logger.Debug("websocket closed", "channel_id", c.id, "error", err)
			}
			return
		}
		// Any peer message resets the read deadline (keeps connection
		// alive even if the peer doesn't answer protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.hub.HandleMessage(c, data)
	}
}

// writePump writes queued messages and periodic pings to the
// connection.
func (c *WSChannel) writePump() {
	pingInterval := time.Duration(c.cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	writeWait := time.Duration(c.cfg.PongTimeout) * time.Second

	for {
		select {
		case data := <-c.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			//nolint:errcheck // Best-effort close message
			c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}
