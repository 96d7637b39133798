// Package websocket pushes live pipeline events (readings, status
// changes) to connected dashboard clients.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"HomeMonitorAPI/internal/logger"
)

// Event is the envelope every broadcast frame uses.
type Event struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// Hub fans broadcast frames out to every registered client. Slow
// clients get dropped rather than backing up the pipeline.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	log        *logger.Logger
	mu         sync.RWMutex
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("WebSocket client connected: %s (total: %d)", client.id, count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("WebSocket client disconnected: %s (total: %d)", client.id, count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client can't keep up; drop it.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent wraps a payload in the event envelope and queues it for
// every connected client. Safe to call when nobody is connected.
func (h *Hub) BroadcastEvent(event string, payload any) {
	data, err := json.Marshal(Event{
		Type:      event,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		h.log.Error("Failed to encode websocket event %s: %v", event, err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("WebSocket broadcast queue full, dropping %s event", event)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
