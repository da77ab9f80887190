package server

import (
	"time"

	"forgedb/internal/middleware"
	"forgedb/internal/models"
	"forgedb/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/auth/register
// @Summary Register an account
// @Description Creates an unverified account and emails a 6-digit verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string,hcaptchaToken=string} true "Registration"
// @Success 200 {object} object{message=string,email=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Email         string `json:"email"`
		Password      string `json:"password"`
		HCaptchaToken string `json:"hcaptchaToken"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		HCaptchaToken: req.HCaptchaToken,
		RemoteIP:      c.IP(),
	})
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}

	message := "Verification code sent"
	if user.IsVerified {
		message = "Account created"
	}
	return c.JSON(fiber.Map{
		"message": message,
		"email":   user.Email,
	})
}

// Verify handles POST /api/auth/verify and POST /api/verify
// @Summary Verify an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,code=string} true "Verification code"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/verify [post]
func (s *Server) Verify(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if _, err := s.authService.Verify(c.UserContext(), req.Email, req.Code); err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(fiber.Map{"message": "Account verified"})
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}

	token, err := middleware.IssueToken(s.config.JWTSecret, user.ID, middleware.SessionClaims{
		Email:   user.Email,
		Name:    user.DisplayName(),
		Image:   user.Avatar,
		IsAdmin: user.IsAdmin,
	}, time.Now())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout
// @Summary Revoke the current token
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.revokeToken(c); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}
