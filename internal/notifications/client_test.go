package notifications

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveHub exposes hub at /ws/:id on a random local port.
func serveHub(t *testing.T, hub *Hub) string {
	t.Helper()
	app := fiber.New()
	app.Get("/ws/:id", websocket.New(func(conn *websocket.Conn) {
		client, err := hub.Register(conn.Params("id"), conn)
		if err != nil {
			return
		}
		go client.WritePump()
		client.ReadPump()
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

func TestHub_ShutdownWithLiveWritePump(t *testing.T) {
	hub := NewHub()
	addr := serveHub(t, hub)

	conn, _, err := gorilla.DefaultDialer.Dial("ws://"+addr+"/ws/mod-1", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount("mod-1") == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.Broadcast("mod-1", []byte(`{"type":"review.created"}`))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"review.created"}`, string(msg))

	require.NoError(t, hub.Shutdown(context.Background()))

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, gorilla.IsCloseError(err, gorilla.CloseGoingAway), "got %v", err)
	assert.Equal(t, 0, hub.ClientCount("mod-1"))
}
