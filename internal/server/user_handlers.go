package server

import (
	"io"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userRepo.GetByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me. The request is multipart so an
// avatar can be uploaded alongside the text fields; plain JSON works too when
// no file is attached.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := currentUserID(c)

	input := service.UpdateProfileInput{UserID: userID}

	contentType := c.Get(fiber.HeaderContentType)
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		input.Username = c.FormValue("username")
		input.Email = c.FormValue("email")

		if file, err := c.FormFile("avatar"); err == nil && file != nil {
			src, err := file.Open()
			if err != nil {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("Unable to read uploaded file"))
			}
			content, err := io.ReadAll(src)
			_ = src.Close()
			if err != nil {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("Unable to read uploaded file"))
			}

			filename, err := s.avatarService.Store(content)
			if err != nil {
				return respondServiceError(c, err)
			}
			input.Avatar = filename
		}
	} else {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		input.Username = req.Username
		input.Email = req.Email
	}

	// Remember the avatar being replaced so it can be cleaned up on success.
	previousAvatar := ""
	if input.Avatar != "" {
		if current, err := s.userRepo.GetByID(c.UserContext(), userID); err == nil {
			previousAvatar = current.Avatar
		}
	}

	user, err := s.authService.UpdateProfile(c.UserContext(), input)
	if err != nil {
		// The update failed; the freshly stored file would be orphaned.
		if input.Avatar != "" {
			s.avatarService.Remove(input.Avatar)
		}
		return respondServiceError(c, err)
	}

	if input.Avatar != "" && previousAvatar != "" && previousAvatar != input.Avatar {
		s.avatarService.Remove(previousAvatar)
	}

	return c.JSON(user)
}
