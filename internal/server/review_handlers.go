package server

import (
	"forgedb/internal/models"
	"forgedb/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyReviews handles GET /api/reviews
// @Summary Reviews written by the caller
// @Tags reviews
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{reviews=[]models.Review}
// @Failure 401 {object} models.ErrorResponse
// @Router /reviews [get]
func (s *Server) GetMyReviews(c *fiber.Ctx) error {
	reviews, err := s.reviewService.ListUserReviews(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(fiber.Map{"reviews": reviews})
}

// CreateReview handles POST /api/reviews
// @Summary Submit a compatibility review
// @Tags reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.CreateReviewInput true "Review"
// @Success 201 {object} object{message=string,review=models.Review}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /reviews [post]
func (s *Server) CreateReview(c *fiber.Ctx) error {
	var in service.CreateReviewInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	in.UserID = currentUserID(c)

	review, err := s.reviewService.CreateReview(c.UserContext(), in)
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Review created successfully",
		"review":  review,
	})
}

// GetReview handles GET /api/reviews/:id
// @Summary Review with its author
// @Tags reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} models.Review
// @Failure 404 {object} models.ErrorResponse
// @Router /reviews/{id} [get]
func (s *Server) GetReview(c *fiber.Ctx) error {
	review, err := s.reviewService.GetReview(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(review)
}

// ToggleReaction handles PUT /api/reviews/:id
// @Summary Toggle a like or dislike
// @Description Repeating the current reaction removes it; the other reaction switches it.
// @Tags reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param request body object{type=string} true "like or dislike"
// @Success 200 {object} object{message=string,review=models.Review}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /reviews/{id} [put]
func (s *Server) ToggleReaction(c *fiber.Ctx) error {
	var req struct {
		Type models.ReactionType `json:"type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	review, err := s.reviewService.ToggleReaction(c.UserContext(), service.ToggleReactionInput{
		UserID:   currentUserID(c),
		ReviewID: c.Params("id"),
		Type:     req.Type,
	})
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(fiber.Map{
		"message": "Reaction updated",
		"review":  review,
	})
}

// DeleteReview handles DELETE /api/reviews/:id
// @Summary Delete a review
// @Tags reviews
// @Security BearerAuth
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /reviews/{id} [delete]
func (s *Server) DeleteReview(c *fiber.Ctx) error {
	err := s.reviewService.DeleteReview(c.UserContext(), service.DeleteReviewInput{
		UserID:   currentUserID(c),
		ReviewID: c.Params("id"),
	})
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(fiber.Map{"message": "Review deleted successfully"})
}
