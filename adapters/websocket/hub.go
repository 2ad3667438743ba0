package websocket

import (
	"fmt"
	"sync"

	"github.com/satriahrh/cocoa-chat/domain"
	"github.com/satriahrh/cocoa-chat/utils/log"
	"go.uber.org/zap"
)

// Hub tracks connected clients. A session may have several clients, for
// example two browser tabs.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	log.WithCtx(client.ctx).Debug("New client registered")
}

// Unregister removes a client from the hub and closes it
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if ok {
		client.Close()
		log.WithCtx(client.ctx).Debug("Client unregistered")
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(message []byte) {
	for _, client := range h.snapshot() {
		if !client.IsClosed() {
			client.SendMessage(message)
		}
	}
}

// SendState delivers state to every client bound to its session
func (h *Hub) SendState(state domain.SessionState) error {
	sent := 0
	for _, client := range h.snapshot() {
		if client.SessionID() != state.SessionID || client.IsClosed() {
			continue
		}
		if err := client.SendState(state); err != nil {
			log.WithCtx(client.ctx).Debug("Failed to deliver to client", zap.Error(err))
			continue
		}
		sent++
	}
	if sent == 0 {
		return fmt.Errorf("no client connected for session %s", state.SessionID)
	}
	return nil
}

// IsSessionConnected checks if any client is bound to sessionID
func (h *Hub) IsSessionConnected(sessionID string) bool {
	for _, client := range h.snapshot() {
		if client.SessionID() == sessionID && !client.IsClosed() {
			return true
		}
	}
	return false
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}
