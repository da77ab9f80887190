package notifications

import (
	"context"
	"errors"
	"sync"

	"forgedb/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerMod = 500
	maxTotalConns  = 10000
)

// ErrHubClosed is returned by Register after Shutdown.
var ErrHubClosed = errors.New("hub is shut down")

// Hub tracks WebSocket clients by the mod they are watching.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	closed     bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*Client]struct{})}
}

// Register adds a connection watching modID. Returns an error when limits are exceeded.
func (h *Hub) Register(modID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[modID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[modID] = m
	}
	if len(m) >= maxConnsPerMod {
		return nil, errors.New("mod connection limit reached")
	}

	client := newClient(h, conn, modID)
	m[client] = struct{}{}
	h.totalConns++
	observability.LiveConnections.Inc()
	return client, nil
}

// UnregisterClient removes the client and closes its send channel.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.ModID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	close(client.Send)
	h.totalConns--
	observability.LiveConnections.Dec()
	if len(m) == 0 {
		delete(h.conns, client.ModID)
	}
}

// Broadcast queues message for every client watching modID.
func (h *Hub) Broadcast(modID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[modID] {
		c.TrySend(message)
	}
}

// ClientCount returns the number of clients watching modID.
func (h *Hub) ClientCount(modID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[modID])
}

// StartWiring forwards every event received by n's subscriber to local clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(modID string, payload []byte) {
		h.Broadcast(modID, payload)
	})
}

// Shutdown closes every client's send channel; each WritePump then sends a
// going-away close frame and closes its connection.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	goingAway := websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
	for _, clients := range h.conns {
		for client := range clients {
			client.closeFrame = goingAway
			close(client.Send)
			observability.LiveConnections.Dec()
		}
	}
	h.conns = make(map[string]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
