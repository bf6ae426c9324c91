package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newProfileApp(t *testing.T, s *Server, userID uint) (*fiber.App, string) {
	t.Helper()
	app := fiber.New()

	protected := app.Group("", s.AuthRequired())
	protected.Get("/users/me", s.GetMyProfile)
	protected.Put("/users/me", s.UpdateMyProfile)

	token, err := s.authService.SessionToken(&models.User{ID: userID, Username: "tester"})
	require.NoError(t, err)
	return app, token
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 120, G: 90, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestGetMyProfile(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByID", mock.Anything, uint(1)).
		Return(&models.User{ID: 1, Username: "tester", Email: "t@example.com"}, nil)

	s := newTestServer(mockRepo, nil)
	app, token := newProfileApp(t, s, 1)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "tester", body["username"])
	assert.NotContains(t, body, "password", "password hash must never be serialized")
}

func TestUpdateMyProfileJSON(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByID", mock.Anything, uint(1)).
		Return(&models.User{ID: 1, Username: "tester", Email: "t@example.com"}, nil)
	mockRepo.On("GetByUsername", mock.Anything, "renamed").Return(nil, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Username == "renamed"
	})).Return(nil)

	s := newTestServer(mockRepo, nil)
	app, token := newProfileApp(t, s, 1)

	req := jsonRequest(t, http.MethodPut, "/users/me", map[string]string{"username": "renamed"})
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mockRepo.AssertExpectations(t)
}

func TestUpdateMyProfileWithAvatar(t *testing.T) {
	stored := &models.User{ID: 1, Username: "tester", Email: "t@example.com", Avatar: models.DefaultAvatar}

	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByID", mock.Anything, uint(1)).Return(stored, nil)
	var saved *models.User
	mockRepo.On("Update", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*models.User)
	}).Return(nil)

	s := newTestServer(mockRepo, nil)
	uploadDir := t.TempDir()
	s.avatarService = service.NewAvatarService(&config.Config{AvatarUploadDir: uploadDir})
	app, token := newProfileApp(t, s, 1)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("avatar", "upload.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t, 300, 300))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPut, "/users/me", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotNil(t, saved)
	assert.NotEqual(t, models.DefaultAvatar, saved.Avatar)
	assert.NotEqual(t, "upload.png", saved.Avatar, "client filename is never reused")

	_, err = os.Stat(filepath.Join(uploadDir, saved.Avatar))
	assert.NoError(t, err, "the stored thumbnail exists on disk")
}

func TestUpdateMyProfileRejectsBadAvatar(t *testing.T) {
	mockRepo := new(MockUserRepository)

	s := newTestServer(mockRepo, nil)
	uploadDir := t.TempDir()
	s.avatarService = service.NewAvatarService(&config.Config{AvatarUploadDir: uploadDir})
	app, token := newProfileApp(t, s, 1)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("avatar", "evil.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("this is not an image"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPut, "/users/me", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
