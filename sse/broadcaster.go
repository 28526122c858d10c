package sse

import (
	"sync"
	"time"
)

// Broadcaster manages SSE connections and broadcasts messages to all clients.
type Broadcaster struct {
	clients map[chan string]bool
	mu      sync.Mutex
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[chan string]bool),
	}
}

// Register adds a new client to the broadcaster.
func (b *Broadcaster) Register(client chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = true
}

// Unregister removes a client and closes its channel. Safe to call after the
// client was already evicted by Broadcast.
func (b *Broadcaster) Unregister(client chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
	}
}

// Broadcast sends a message to all registered clients. A client that does
// not accept the message within a second is dropped.
func (b *Broadcaster) Broadcast(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for client := range b.clients {
		select {
		case client <- message:
		case <-time.After(1 * time.Second):
			delete(b.clients, client)
			close(client)
		}
	}
}

// Dashboard fans out refresh events to connected staff dashboards.
var Dashboard = NewBroadcaster()
