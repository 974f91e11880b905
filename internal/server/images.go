package server

import (
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxImageBytes = 5 * 1024 * 1024

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// saveImage persists an uploaded cover or avatar image under the public
// images directory and returns the stored file name.
func (s *Server) saveImage(c *gin.Context, file *multipart.FileHeader) (string, error) {
	if file.Size <= 0 {
		return "", errors.New("image is empty")
	}
	if file.Size > maxImageBytes {
		return "", errors.New("image is too large")
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !imageExtensions[ext] {
		return "", errors.New("unsupported image type")
	}
	dir := filepath.Join(s.cfg.PublicDir, "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	fileName := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(dir, fileName)); err != nil {
		return "", err
	}
	return fileName, nil
}
