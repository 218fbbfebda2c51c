package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/cricscore/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// Client is one websocket subscriber of a single match.
type Client struct {
	ID      string
	MatchID string
	Send    chan Message

	conn   *websocket.Conn
	hub    unregisterer
	logger logger.Logger
}

type unregisterer interface {
	Unregister(c *Client)
}

// NewClient wraps conn as a subscriber of matchID.
func NewClient(id, matchID string, conn *websocket.Conn, hub unregisterer) *Client {
	return &Client{
		ID:      id,
		MatchID: matchID,
		Send:    make(chan Message, sendBufferSize),
		conn:    conn,
		hub:     hub,
		logger:  logger.Get().Named("ws-client"),
	}
}

// ReadPump discards client frames and keeps the connection alive with pongs.
// It returns when the peer goes away and unregisters the client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug(ctx, "unexpected close", logger.String("client_id", c.ID), logger.Error(err))
			}
			return
		}
	}
}

// WritePump writes queued messages and pings until Send is closed.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug(ctx, "write failed", logger.String("client_id", c.ID), logger.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues msg without blocking. It reports false when the client's
// buffer is full.
func (c *Client) TrySend(msg Message) bool {
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}
