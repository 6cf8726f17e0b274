package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"peercall-backend/internal/domain"
	"peercall-backend/pkg/logger"
	"peercall-backend/pkg/metrics"
)

// Hub tracks every open WebSocket connection by connection id and
// delivers outbound events to them. It implements the coordinator's
// gateway: Send targets one connection, Broadcast reaches all.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	metrics *metrics.Metrics
}

// NewHub creates an empty hub
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		metrics: m,
	}
}

// Send marshals the event once and queues it on the target connection.
// A missing connection returns ErrConnGone; a full outbound buffer
// drops the frame rather than blocking the caller.
func (h *Hub) Send(connectionID string, event domain.ServerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connectionID]
	if !ok {
		return domain.ErrConnGone
	}
	client.enqueue(payload, event.Event)
	return nil
}

// Broadcast queues the event on every open connection
func (h *Hub) Broadcast(event domain.ServerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("broadcast marshal failed",
			zap.String("event", event.Event),
			zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		client.enqueue(payload, event.Event)
	}
}

// Count returns the number of open connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll drains the hub during shutdown. Closing each send channel
// makes the write pump deliver a close frame and exit, which unwinds
// the rest of the connection teardown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.send)
	}
	h.metrics.SetWebSocketConnections(0)
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.connID] = client
	h.metrics.SetWebSocketConnections(len(h.clients))
}

// remove drops the client from the hub and closes its send channel.
// The write lock excludes concurrent enqueues, so the close cannot
// race a send. Returns false if the client was already gone.
func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.clients[client.connID]
	if !ok || current != client {
		return false
	}
	delete(h.clients, client.connID)
	close(client.send)
	h.metrics.SetWebSocketConnections(len(h.clients))
	return true
}
