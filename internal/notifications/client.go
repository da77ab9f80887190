package notifications

import (
	"time"

	"forgedb/internal/middleware"
	"forgedb/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Viewers only send control frames.
	maxMessageSize = 1024

	sendBuffer = 64
)

// Client is one WebSocket connection watching a single mod. WritePump is the
// only goroutine that writes to Conn.
type Client struct {
	hub   *Hub
	Conn  *websocket.Conn
	Send  chan []byte
	ModID string

	// written by WritePump once Send is closed; set before the close
	closeFrame []byte
}

func newClient(hub *Hub, conn *websocket.Conn, modID string) *Client {
	return &Client{
		hub:   hub,
		Conn:  conn,
		ModID: modID,
		Send:  make(chan []byte, sendBuffer),
	}
}

// ReadPump drains the connection until it closes, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("live connection closed unexpectedly", "mod_id", c.ModID, "error", err)
			}
			return
		}
	}
}

// WritePump forwards queued events to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				frame := c.closeFrame
				if frame == nil {
					frame = []byte{}
				}
				_ = c.Conn.WriteMessage(websocket.CloseMessage, frame)
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking; it is dropped when the buffer is full.
func (c *Client) TrySend(message []byte) {
	defer func() {
		// Send may already be closed by UnregisterClient
		_ = recover()
	}()

	select {
	case c.Send <- message:
	default:
		observability.LiveDrops.Inc()
		middleware.Logger.Warn("live client buffer full, dropped event", "mod_id", c.ModID)
	}
}
