package web

import (
	"sync"

	"github.com/google/uuid"
)

// Hub manages SSE client connections and broadcasts events.
// It runs an event loop in a separate goroutine.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event

	done     chan struct{}
	stopOnce sync.Once
}

// Client is one connected SSE stream.
type Client struct {
	id     string
	events chan *Event
}

// NewHub creates a new SSE hub. Call Run to start the event loop.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event, 64),
		done:       make(chan struct{}),
	}
}

// Run processes register, unregister and broadcast operations until Stop
// is called. Run it in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.events)
			}
			h.clients = make(map[*Client]struct{})
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			h.mu.Unlock()
		case event := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.events <- event:
				default:
					// buffer full, drop for this client
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop closes every client and ends Run. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a client. It returns false if the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues e for every connected client. It returns immediately
// once the hub has stopped.
func (h *Hub) Broadcast(e *Event) {
	select {
	case h.broadcast <- e:
	case <-h.done:
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewClient creates a client with a random id and the given buffer size.
func NewClient(buffer int) *Client {
	if buffer < 1 {
		buffer = 64
	}
	return &Client{
		id:     uuid.NewString(),
		events: make(chan *Event, buffer),
	}
}

// ID returns the client's id
func (c *Client) ID() string {
	return c.id
}
