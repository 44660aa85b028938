package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/contest-engine/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
	maxFrameSize   = 8192
)

// Client is one websocket connection and the user that opened it. It lives
// exactly as long as the connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	user *models.User
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient binds an upgraded connection to its authenticated user
func NewClient(hub *Hub, conn *websocket.Conn, user *models.User) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		user: user,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// Serve registers the client and pumps frames until the connection closes
func (c *Client) Serve(ctx context.Context) {
	c.hub.register(c)
	defer c.hub.unregister(c)
	defer c.close()

	c.sendFrame(Frame{Type: FrameConnected, Message: "Connected to support chat"})

	go c.writePump()
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("chat read error", "user_id", c.user.ID, "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendFrame(Frame{Type: FrameError, Message: "invalid frame"})
			continue
		}

		switch frame.Type {
		case FrameSendMessage:
			if _, err := c.hub.Post(ctx, c.user, frame.Message); err != nil {
				slog.Debug("chat message rejected", "user_id", c.user.ID, "error", err)
				c.sendFrame(Frame{Type: FrameError, Message: err.Error()})
			}
		default:
			c.sendFrame(Frame{Type: FrameError, Message: "unknown frame type"})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Client) sendFrame(f Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.enqueue(payload)
}

// enqueue reports false when the client's buffer is full
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		// unblocks readPump
		c.conn.SetReadDeadline(time.Now())
	})
}
