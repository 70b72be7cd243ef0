package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTooLarge    = errors.New("image too large")
	ErrBadType     = errors.New("invalid file type, only JPEG, PNG and WebP images are allowed")
	ErrMissingFile = errors.New("no image file provided")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Store writes uploaded disease images to local disk under a single
// directory with collision-resistant names.
type Store struct {
	dir     string
	maxSize int64
}

func NewStore(dir string, maxSizeMB int) *Store {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &Store{
		dir:     dir,
		maxSize: int64(maxSizeMB) << 20,
	}
}

// Save persists the uploaded file as disease-<unixms>-<uuid><ext> and returns
// the stored path.
func (s *Store) Save(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader == nil {
		return "", ErrMissingFile
	}
	if fileHeader.Size > s.maxSize {
		return "", fmt.Errorf("%w: max %d bytes", ErrTooLarge, s.maxSize)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedExtensions[ext] {
		return "", ErrBadType
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir failed: %w", err)
	}

	name := fmt.Sprintf("disease-%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), ext)
	path := filepath.Join(s.dir, name)

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded file failed: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create stored file failed: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write stored file failed: %w", err)
	}
	return path, nil
}

// Remove deletes a stored file; missing files are not an error.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stored file failed: %w", err)
	}
	return nil
}
