package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"insightdocs-be/internal/constant"
	"insightdocs-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
	inboundBuffer  = 64
)

var (
	ErrClientClosed   = errors.New("websocket client closed")
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// Conn is the part of *websocket.Conn the client uses.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is a middleman between the websocket connection and a chat session.
// Inbound frames are handled one at a time on their own goroutine so the read
// pump keeps answering pings during long turns.
type Client struct {
	conn    Conn
	send    chan []byte
	inbound chan []byte

	mu     sync.Mutex
	closed bool

	logger logger.ILogger
}

func NewClient(conn Conn, log logger.ILogger) *Client {
	return &Client{
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		inbound: make(chan []byte, inboundBuffer),
		logger:  log,
	}
}

// Send queues one JSON frame. It fails once the client is closed.
func (c *Client) Send(frame interface{}) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Serve runs the pumps and blocks until the peer goes away. Frames already
// queued keep being handled after Serve returns.
func (c *Client) Serve(ctx context.Context, handle func(ctx context.Context, raw []byte)) {
	go c.writePump()
	go c.process(ctx, handle)
	c.readPump()
}

func (c *Client) process(ctx context.Context, handle func(ctx context.Context, raw []byte)) {
	for raw := range c.inbound {
		handle(ctx, raw)
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump pumps frames from the websocket connection to the processor.
func (c *Client) readPump() {
	defer func() {
		close(c.inbound)
		c.shutdown()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WS_CLIENT", "Unexpected close", map[string]interface{}{"error": err.Error()})
			}
			return
		}
		c.enqueue(message)
	}
}

// enqueue hands a frame to the processor. Typing frames are dropped while the
// queue is full; any other frame waits, and the read deadline is pushed out
// meanwhile because pongs are not read until it is queued.
func (c *Client) enqueue(message []byte) {
	select {
	case c.inbound <- message:
		return
	default:
	}

	if isTypingFrame(message) {
		c.logger.Debug("WS_CLIENT", "Inbound queue full, typing frame dropped", nil)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		select {
		case c.inbound <- message:
			return
		case <-ticker.C:
			_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		}
	}
}

func isTypingFrame(raw []byte) bool {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return false
	}
	return head.Type == constant.FrameTypeTyping
}

// writePump pumps queued frames to the websocket connection, one frame per
// message, and pings the peer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("WS_CLIENT", "Write failed", map[string]interface{}{"error": err.Error()})
				c.shutdown()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		}
	}
}
