package server

import (
	"fmt"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.authService.SessionToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, token, err := s.authService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// RequestPasswordReset handles POST /api/auth/reset-request. The response is
// always 202 so the endpoint cannot reveal which emails have accounts.
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	accepted := func() error {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "If that email is registered, a reset link has been sent",
		})
	}

	user, err := s.userRepo.GetByEmail(c.UserContext(), req.Email)
	if err != nil || user == nil {
		if err != nil {
			middleware.Logger.ErrorContext(c.UserContext(), "reset request lookup failed",
				slog.String("error", err.Error()))
		}
		return accepted()
	}

	token, err := s.authService.IssueResetToken(user)
	if err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "reset token issue failed",
			slog.String("error", err.Error()))
		return accepted()
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.config.BaseURL, token)
	body := fmt.Sprintf("To reset your password, visit the following link:\n\n%s\n\n"+
		"If you did not make this request, simply ignore this email.", resetURL)
	if err := s.mailer.Send(c.UserContext(), user.Email, "Password Reset Request", body); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "reset mail delivery failed",
			slog.String("error", err.Error()))
	}

	return accepted()
}

// ResetPassword handles POST /api/auth/reset-password
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if _, err := s.authService.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Password has been updated",
	})
}
