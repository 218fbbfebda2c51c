package ws

import (
	"context"
	"sync"

	"github.com/okian/cricscore/pkg/logger"
	"github.com/okian/cricscore/pkg/metrics"
)

const broadcastBufferSize = 256

// Hub tracks subscribers per match and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // match id -> clients

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	logger logger.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		broadcast:  make(chan Message, broadcastBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("ws-hub"),
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			h.fanOut(ctx, msg)
		}
	}
}

// Register adds c. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues msg for the subscribers of msg.MatchID. The message is
// dropped if the hub is backed up or stopped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- msg:
	default:
		metrics.RecordLiveMessageDropped()
		h.logger.Warn(context.Background(), "broadcast buffer full, dropping message", logger.String("match_id", msg.MatchID))
	}
}

// ClientCount returns subscribers of matchID, or of every match when
// matchID is empty.
func (h *Hub) ClientCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if matchID != "" {
		return len(h.clients[matchID])
	}
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.MatchID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.MatchID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	metrics.UpdateLiveClients(h.ClientCount(""))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.MatchID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.Send)
			if len(set) == 0 {
				delete(h.clients, c.MatchID)
			}
		}
	}
	h.mu.Unlock()
	metrics.UpdateLiveClients(h.ClientCount(""))
}

func (h *Hub) fanOut(ctx context.Context, msg Message) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[msg.MatchID]))
	for c := range h.clients[msg.MatchID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.TrySend(msg) {
			metrics.RecordLiveMessageDropped()
			h.logger.Warn(ctx, "client too slow, disconnecting", logger.String("client_id", c.ID))
			h.remove(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.clients {
		for c := range set {
			close(c.Send)
		}
		delete(h.clients, id)
	}
	metrics.UpdateLiveClients(0)
}
