package service

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	_ "image/gif" // register GIF decoder

	"inkwell/internal/config"
	"inkwell/internal/models"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	DefaultAvatarUploadDir       = "/tmp/inkwell/uploads/avatars"
	DefaultAvatarMaxUploadSizeMB = 5

	// ThumbnailMaxSize bounds both avatar dimensions. Images are shrunk to
	// fit, never upscaled.
	ThumbnailMaxSize = 125

	avatarJPEGQuality = 85
)

// AvatarService stores uploaded profile pictures as fixed-size thumbnails
// under random filenames. The user-supplied name is never used on disk.
type AvatarService struct {
	uploadDir          string
	maxUploadSizeBytes int64
}

// NewAvatarService creates an AvatarService from configuration.
func NewAvatarService(cfg *config.Config) *AvatarService {
	uploadDir := DefaultAvatarUploadDir
	if cfg != nil && cfg.AvatarUploadDir != "" {
		uploadDir = cfg.AvatarUploadDir
	}
	return &AvatarService{
		uploadDir:          uploadDir,
		maxUploadSizeBytes: DefaultAvatarMaxUploadSizeMB * 1024 * 1024,
	}
}

// UploadDir returns the directory avatars are written to.
func (s *AvatarService) UploadDir() string {
	return s.uploadDir
}

// Store decodes the uploaded image, resizes it to the thumbnail bound and
// writes it under a random filename. It returns the filename to record on the
// user. Undecodable input is a validation failure, not a crash.
func (s *AvatarService) Store(content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxUploadSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}

	thumb := resizeToFit(decoded, ThumbnailMaxSize, ThumbnailMaxSize)

	var buf bytes.Buffer
	ext := ".jpg"
	switch format {
	case "png":
		ext = ".png"
		err = png.Encode(&buf, thumb)
	default:
		err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: avatarJPEGQuality})
	}
	if err != nil {
		return "", models.NewInternalError(err)
	}

	filename := uuid.New().String() + ext
	if err := writeBytesToFile(filepath.Join(s.uploadDir, filename), buf.Bytes()); err != nil {
		return "", models.NewInternalError(err)
	}
	return filename, nil
}

// Remove deletes a previously stored avatar. The default placeholder is never
// removed. Missing files are not an error.
func (s *AvatarService) Remove(filename string) {
	if filename == "" || filename == models.DefaultAvatar {
		return
	}
	// Only basenames are stored; reject anything that resolves elsewhere.
	if filepath.Base(filename) != filename {
		return
	}
	_ = os.Remove(filepath.Join(s.uploadDir, filename))
}

// resizeToFit scales src down so both dimensions fit within the given bounds,
// preserving aspect ratio. Images already within bounds are returned as-is.
func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
