package display

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/farsign/farsign-core/internal/action"
	"github.com/farsign/farsign-core/internal/engine"
	"github.com/farsign/farsign-core/internal/relay"
	"github.com/farsign/farsign-core/internal/session"
)

// Conn is one live connection to the relay, abstracted so tests can
// script the server side.
type Conn interface {
	// ReadMessage blocks until a message arrives or the connection
	// fails.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one message to the relay.
	WriteMessage(data []byte) error

	// Close tears the connection down.
	Close() error
}

// Dialer establishes connections to the relay.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// wsConn adapts a gorilla connection to Conn.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.conn.ReadMessage()
	return data, err
}

func (w *wsConn) WriteMessage(data []byte) error {
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// wsDialer dials the relay over WebSocket.
type wsDialer struct{}

// NewDialer returns the production WebSocket dialer.
func NewDialer() Dialer {
	return wsDialer{}
}

func (wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialling relay: %w", err)
	}
	return &wsConn{conn: conn}, nil
}

// Surface is the rendering environment the client drives: the engine's
// effect target plus the viewport queries the relay protocol needs.
type Surface interface {
	engine.Environment

	// Dimensions returns the current viewport size in pixels.
	Dimensions() (width, height int)
}

// ActionSource supplies the client's current action list, typically
// the relay server's action directory fetched over HTTP.
type ActionSource interface {
	Fetch(ctx context.Context, sessionKey string) ([]action.Definition, error)
}

// Logger defines the logging interface used by the Client.
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

// defaultReconnectInterval paces reconnect attempts to the relay.
const defaultReconnectInterval = 3 * time.Second

// Options configures a Client.
type Options struct {
	// URL is the relay's WebSocket endpoint.
	URL string

	// SessionKey names the session to join as the display.
	SessionKey string

	// ReconnectInterval is the pause between reconnect attempts.
	// Zero means the default.
	ReconnectInterval time.Duration

	// Dialer overrides the transport; nil means WebSocket.
	Dialer Dialer

	// Logger is optional.
	Logger Logger
}

// Client is the display-side peer: it joins its session on the relay,
// routes incoming commands to the surface, hosts the automation
// engine, and reports engine progress back to the controller.
//
// The relay's automatic-reconnect contract is implemented here: every
// new connection re-issues the join with the same session key.
type Client struct {
	url        string
	sessionKey string
	reconnect  time.Duration
	dialer     Dialer
	logger     Logger

	surface Surface
	source  ActionSource
	engine  *engine.Engine

	mu   sync.Mutex
	conn Conn
}

// NewClient creates a display client. The engine must already be bound
// to the same surface.
func NewClient(opts Options, surface Surface, source ActionSource, eng *engine.Engine) *Client {
	if opts.Dialer == nil {
		opts.Dialer = NewDialer()
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = defaultReconnectInterval
	}

	c := &Client{
		url:        opts.URL,
		sessionKey: session.Normalize(opts.SessionKey),
		reconnect:  opts.ReconnectInterval,
		dialer:     opts.Dialer,
		logger:     opts.Logger,
		surface:    surface,
		source:     source,
		engine:     eng,
	}
	eng.SetReporter(c)
	return c
}

// Run connects to the relay and services the session until the context
// is cancelled, reconnecting after failures.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.runOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("relay connection lost", "error", err)
		}

		c.engine.Disable()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnect):
		}
	}
}

// runOnce dials, joins, and services one connection to exhaustion.
func (c *Client) runOnce(ctx context.Context) error {
	conn, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		return err
	}
	c.setConn(conn)
	defer func() {
		c.setConn(nil)
		conn.Close()
	}()

	if err := c.sendMessage(relay.TypeJoin, relay.JoinPayload{
		Role:    string(session.RoleDisplay),
		Session: c.sessionKey,
	}); err != nil {
		return err
	}

	// Stop reading when the context ends; closing unblocks ReadMessage.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if done := c.handleMessage(ctx, data); done {
			return nil
		}
	}
}

// handleMessage routes one relay message. Returns true when the
// connection should be dropped deliberately (reset).
func (c *Client) handleMessage(ctx context.Context, data []byte) bool {
	var msg relay.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("invalid relay message", "error", err)
		return false
	}

	switch msg.Type {
	case relay.TypeJoinAccepted:
		c.logger.Info("joined session", "session", c.sessionKey)
		c.reportDimensions()
		c.reloadActions(ctx)

	case relay.TypeJoinRejected:
		c.logger.Error("join rejected", "session", c.sessionKey)

	case relay.TypeReceiveURL:
		var p relay.URLPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.logger.Warn("invalid receive-url payload", "error", err)
			return false
		}
		if err := c.surface.Navigate(p.URL); err != nil {
			c.sendLog("error", "navigate failed: "+err.Error())
			return false
		}
		c.engine.NotifyChange()

	case relay.TypeExecuteScript:
		var p relay.ScriptPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.logger.Warn("invalid execute-script payload", "error", err)
			return false
		}
		if err := c.surface.RunScript(p.Code); err != nil {
			c.sendLog("error", "script failed: "+err.Error())
		}

	case relay.TypeSimulateClick:
		var p relay.ClickPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.logger.Warn("invalid simulate-click payload", "error", err)
			return false
		}
		if err := c.surface.Click(p.X, p.Y); err != nil {
			c.sendLog("error", "click failed: "+err.Error())
		}

	case relay.TypeSendActions, relay.TypeActionsUpdated:
		c.reloadActions(ctx)

	case relay.TypeResetClient:
		c.logger.Info("reset requested, dropping connection")
		c.engine.Disable()
		return true

	case relay.TypePeerConnected, relay.TypePeerDisconnected:
		c.logger.Debug("peer state changed", "type", msg.Type)

	case relay.TypeError:
		var p relay.ErrorPayload
		//nolint:errcheck // Best-effort decode for logging
		json.Unmarshal(msg.Payload, &p)
		c.logger.Warn("relay error", "message", p.Message)

	default:
		c.logger.Debug("unhandled relay message", "type", msg.Type)
	}
	return false
}

// reloadActions fetches the session's action list and loads it into
// the engine. A fetch failure keeps the currently loaded set.
func (c *Client) reloadActions(ctx context.Context) {
	defs, err := c.source.Fetch(ctx, c.sessionKey)
	if err != nil {
		c.logger.Error("action fetch failed", "error", err)
		return
	}
	c.engine.Load(defs)
	c.logger.Info("actions loaded", "count", len(defs))
}

// NotifyChange forwards a surface change notification to the engine.
// The hosting environment calls this on DOM mutations and page loads.
func (c *Client) NotifyChange() {
	c.engine.NotifyChange()
}

// ActionTriggered implements engine.Reporter: completed actions are
// announced to the controller.
func (c *Client) ActionTriggered(actionID string, at time.Time) {
	if err := c.sendMessage(relay.TypeActionTriggered, relay.TriggeredPayload{
		ActionID:  actionID,
		Timestamp: at,
	}); err != nil {
		c.logger.Warn("action-triggered report failed", "action_id", actionID, "error", err)
	}
}

// StepDone implements engine.Reporter: step outcomes reach the
// controller as log lines.
func (c *Client) StepDone(actionID string, index int, outcome engine.Outcome) {
	c.sendLog("debug", fmt.Sprintf("action %s step %d %s", actionID, index, outcome))
}

// reportDimensions sends the current viewport size to the controller.
func (c *Client) reportDimensions() {
	w, h := c.surface.Dimensions()
	if err := c.sendMessage(relay.TypeDisplayDimensions, relay.DimensionsPayload{
		Width:  w,
		Height: h,
	}); err != nil {
		c.logger.Warn("dimensions report failed", "error", err)
	}
}

// sendLog forwards a log line to the controller.
func (c *Client) sendLog(level, text string) {
	//nolint:errcheck // Log forwarding is best-effort
	c.sendMessage(relay.TypeLogMessage, relay.LogPayload{
		Level:     level,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

// sendMessage marshals and writes one envelope to the current
// connection.
func (c *Client) sendMessage(msgType string, payload any) error {
	msg, err := relay.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("display: not connected")
	}
	return conn.WriteMessage(data)
}

func (c *Client) setConn(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}
