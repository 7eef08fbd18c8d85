// Package live pushes console state to browsers over websockets.
package live

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Envelope is the frame sent to every client.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub tracks connected clients and fans messages out to all of them.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then disconnects
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.ID] = c
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("op=ws_connect client=%s clients=%d", c.ID, n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.ID]; ok {
				delete(h.clients, c.ID)
				c.closeSend()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("op=ws_disconnect client=%s clients=%d", c.ID, n)

		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				delete(h.clients, id)
				c.closeSend()
			}
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast sends one envelope to every connected client. A client whose
// buffer is full is disconnected rather than allowed to stall the others.
func (h *Hub) Broadcast(msgType string, data any) {
	b, err := json.Marshal(Envelope{Type: msgType, Data: data})
	if err != nil {
		log.Printf("op=ws_broadcast type=%s marshal: %v", msgType, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- b:
		default:
			delete(h.clients, id)
			c.closeSend()
			log.Printf("op=ws_broadcast client=%s buffer full, disconnecting", id)
		}
	}
}

// deliver queues b for a single client.
func (h *Hub) deliver(c *Client, b []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		log.Printf("op=ws_send client=%s buffer full, message dropped", c.ID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
