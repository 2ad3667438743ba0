package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/satriahrh/cocoa-chat/domain"
	"github.com/satriahrh/cocoa-chat/utils/log"
	"go.uber.org/zap"
)

// SubmitFunc forwards a submit frame to the session the client is bound to.
type SubmitFunc func(ctx context.Context, text string) (bool, error)

type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	submit    SubmitFunc
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closed    bool

	stateMu     sync.Mutex
	lastVersion int64
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// NewClient creates a new WebSocket client bound to one session
func NewClient(conn *websocket.Conn, sessionID string, submit SubmitFunc) *Client {
	ctx := log.WithSessionID(context.Background(), sessionID)
	ctx, cancel := context.WithCancel(ctx)
	return &Client{
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: sessionID,
		submit:    submit,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *Client) Run() {
	c.conn.SetCloseHandler(func(code int, text string) error {
		log.WithCtx(c.ctx).Debug("WebSocket connection closed", zap.Int("code", code), zap.String("text", text))
		c.Close()
		return nil
	})

	// Handle incoming pong messages - update read deadline
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readPump()
	go c.writePump()
}

// Close gracefully closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.cancel()
	c.conn.Close()
	close(c.send)
}

// IsClosed returns true if the client connection is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Context returns the client's context
func (c *Client) Context() context.Context {
	return c.ctx
}

func (c *Client) SessionID() string {
	return c.sessionID
}

// readPump handles incoming WebSocket messages
func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithCtx(c.ctx).Error("WebSocket error", zap.Error(err))
			}
			return
		}

		c.handleFrame(message)
	}
}

func (c *Client) handleFrame(message []byte) {
	var frame Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.sendError("bad_frame", "Frame is not valid JSON", err.Error())
		return
	}

	switch frame.Type {
	case FrameSubmit:
		accepted, err := c.submit(c.ctx, frame.Text)
		if err != nil {
			c.sendError("submit_failed", "Submission failed", err.Error())
			return
		}
		c.sendFrame(Frame{
			Type:      FrameAck,
			SessionID: c.sessionID,
			Timestamp: time.Now().UTC(),
			Accepted:  accepted,
		})
	default:
		c.sendError("unknown_type", "Unknown frame type", frame.Type)
	}
}

// writePump handles outgoing WebSocket messages and keepalive pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.WithCtx(c.ctx).Debug("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.WithCtx(c.ctx).Debug("Failed to send ping", zap.Error(err))
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// SendMessage queues a message for the client. A client whose buffer is
// full is too slow to keep up and gets disconnected.
func (c *Client) SendMessage(message []byte) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return websocket.ErrCloseSent
	}

	select {
	case c.send <- message:
		c.mu.RUnlock()
		return nil
	default:
		c.mu.RUnlock()
		c.Close()
		return websocket.ErrCloseSent
	}
}

// SendState queues a state frame unless the client already received the
// same or a newer snapshot of its session.
func (c *Client) SendState(state domain.SessionState) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if state.Version <= c.lastVersion {
		log.WithCtx(c.ctx).Debug("Dropped stale snapshot",
			zap.Int64("version", state.Version), zap.Int64("last_version", c.lastVersion))
		return nil
	}

	payload, err := json.Marshal(stateFrame(state))
	if err != nil {
		return err
	}
	if err := c.SendMessage(payload); err != nil {
		return err
	}
	c.lastVersion = state.Version
	return nil
}

func (c *Client) sendFrame(frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.WithCtx(c.ctx).Error("Failed to marshal frame", zap.Error(err))
		return
	}
	if err := c.SendMessage(payload); err != nil {
		log.WithCtx(c.ctx).Debug("Dropped frame", zap.String("type", frame.Type), zap.Error(err))
	}
}

func (c *Client) sendError(code, message, details string) {
	c.sendFrame(Frame{
		Type:      FrameError,
		SessionID: c.sessionID,
		Timestamp: time.Now().UTC(),
		Error:     &ErrorResponse{Code: code, Message: message, Details: details},
	})
}
