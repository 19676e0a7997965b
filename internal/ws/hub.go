// Package ws pushes list snapshots to connected dashboards so every open tab
// renders the same state without polling the console itself.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub fans snapshot payloads out to all connected clients. Slow clients are
// dropped rather than allowed to stall the broadcast.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*connection]struct{}
	last    []byte
	closed  bool
	onCount func(delta int)
}

type HubConfig struct {
	Logger *slog.Logger

	// OnClientCount receives +1/-1 on connect/disconnect (metrics gauge).
	OnClientCount func(delta int)
}

func NewHub(cfg HubConfig) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	onCount := cfg.OnClientCount
	if onCount == nil {
		onCount = func(int) {}
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*connection]struct{}),
		onCount: onCount,
	}
}

// Broadcast serializes the payload once and queues it to every client. The
// payload is also retained so new connections immediately receive the current
// state.
func (h *Hub) Broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("snapshot marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Send buffer full; the client is not keeping up.
			h.dropLocked(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown closes every connection and rejects new ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) register(c *connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		// Never blocks: the send buffer is empty on a fresh connection.
		c.send <- h.last
	}
	h.onCount(1)
	return true
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *connection) {
	delete(h.clients, c)
	close(c.send)
	h.onCount(-1)
}
