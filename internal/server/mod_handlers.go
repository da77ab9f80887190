package server

import (
	"forgedb/internal/models"
	"forgedb/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMods handles GET /api/mods
// @Summary List mods
// @Tags mods
// @Produce json
// @Success 200 {object} object{mods=[]models.Mod}
// @Router /mods [get]
func (s *Server) GetMods(c *fiber.Ctx) error {
	mods, err := s.modService.ListMods(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(fiber.Map{"mods": mods})
}

// CreateMod handles POST /api/mods
// @Summary Create a mod
// @Description Admin only. The banner must be hosted on an allowed image host.
// @Tags mods
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{name=string,description=string,bannerUrl=string} true "Mod"
// @Success 201 {object} object{message=string,mod=models.Mod}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /mods [post]
func (s *Server) CreateMod(c *fiber.Ctx) error {
	var in service.CreateModInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	in.UserID = currentUserID(c)

	mod, err := s.modService.CreateMod(c.UserContext(), in)
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Mod created successfully",
		"mod":     mod,
	})
}

// GetMod handles GET /api/mods/:id
// @Summary Mod detail with reviews and statistics
// @Tags mods
// @Produce json
// @Param id path string true "Mod ID"
// @Success 200 {object} models.ModDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /mods/{id} [get]
func (s *Server) GetMod(c *fiber.Ctx) error {
	detail, err := s.modService.GetModDetail(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(detail)
}
