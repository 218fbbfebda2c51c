package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/okian/cricscore/pkg/logger"
)

// Handler upgrades HTTP requests into match subscriptions.
type Handler struct {
	hub      *Hub
	ctx      context.Context
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewHandler creates a handler whose connections live until ctx is done.
// checkOrigin may be nil to accept every origin.
func NewHandler(ctx context.Context, hub *Hub, checkOrigin func(r *http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		hub: hub,
		ctx: ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.Get().Named("ws"),
	}
}

// Serve upgrades the request and subscribes the connection to matchID.
// The client is registered before snapshot is called, so a change applied
// while the snapshot is built is broadcast to it afterwards. The snapshot is
// written first, before any broadcast.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, matchID string, snapshot func() (any, error)) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := NewClient(uuid.NewString(), matchID, conn, h.hub)
	if !h.hub.Register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}

	initial, err := snapshot()
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err = conn.WriteJSON(Message{Type: MessageTypeSnapshot, MatchID: matchID, Payload: initial, Timestamp: time.Now()})
	}
	if err != nil {
		h.logger.Warn(r.Context(), "live snapshot failed", logger.String("match_id", matchID), logger.Error(err))
		h.hub.Unregister(c)
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "snapshot failed"))
		_ = conn.Close()
		return
	}

	go c.WritePump(h.ctx)
	go c.ReadPump(h.ctx)

	h.logger.Debug(r.Context(), "live client connected",
		logger.String("client_id", c.ID),
		logger.String("match_id", matchID),
	)
}
