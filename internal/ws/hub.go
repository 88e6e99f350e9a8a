// Package ws delivers transaction change events to connected clients.
// Delivery is best effort and fire-and-forget: a failed or slow
// listener never affects the mutation that produced the event, and
// consumers treat events as a signal to re-fetch, not as the payload
// of record.
package ws

import (
	"encoding/json"
	"sync"

	"finance_ledger/internal/logger"
)

// Envelope is the wire format of one notification.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run owns the client set. Start once at process start.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			logger.Debug("ws client connected", "user_id", c.UserID)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
			}
			h.mu.Unlock()
			logger.Debug("ws client disconnected", "user_id", c.UserID)
		}
	}
}

// Broadcast sends the event to every connected client. Clients whose
// send buffer is full are skipped; the TTL-bounded read path covers
// anything they miss.
func (h *Hub) Broadcast(event string, payload any) {
	raw, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		logger.Error("ws payload marshal failed", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.Send <- raw:
		default:
			logger.Warn("ws client too slow, event dropped", "user_id", c.UserID, "event", event)
		}
	}
}
