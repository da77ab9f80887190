package server

import (
	"forgedb/internal/middleware"
	"forgedb/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// LiveUpdatesUpgrade rejects live-update requests before the WebSocket
// upgrade: the feature must be on, the request must be an upgrade and the mod must exist.
func (s *Server) LiveUpdatesUpgrade(c *fiber.Ctx) error {
	if s.hub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Live updates are disabled",
		})
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if _, err := s.content.Mods().GetByID(c.UserContext(), c.Params("id")); err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.Next()
}

// ModUpdatesHandler streams review events of one mod to the client.
// @Summary Live review events for a mod
// @Description WebSocket. Messages are JSON events: review.created, review.deleted, review.reactions.
// @Tags mods
// @Param id path string true "Mod ID"
// @Success 101
// @Router /ws/mods/{id} [get]
func (s *Server) ModUpdatesHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		modID := conn.Params("id")

		client, err := s.hub.Register(modID, conn)
		if err != nil {
			middleware.Logger.Warn("live update registration refused", "mod_id", modID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
