package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge    = errors.New("uploaded file is too large")
	ErrUnsupportedType = errors.New("uploaded file is not a supported image")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Mirror receives a copy of every stored upload.
type Mirror interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
}

// LocalStore writes uploads under dir with random file names.
type LocalStore struct {
	dir      string
	maxBytes int64
	mirror   Mirror
}

// NewLocalStore creates dir when missing. mirror may be nil.
func NewLocalStore(dir string, maxBytes int64, mirror Mirror) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{
		dir:      dir,
		maxBytes: maxBytes,
		mirror:   mirror,
	}, nil
}

// Save stores the uploaded image and returns its slash separated path
// relative to the working directory.
func (s *LocalStore) Save(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return "", ErrFileTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	reader := io.Reader(src)
	if s.maxBytes > 0 {
		reader = io.LimitReader(src, s.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", ErrFileTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	dst := filepath.Join(s.dir, name)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, name, contentType, data); err != nil {
			log.Printf("[storage] failed to mirror %s: %v", name, err)
		}
	}

	return filepath.ToSlash(dst), nil
}

// Remove deletes a previously saved upload. A missing file is not an error.
func (s *LocalStore) Remove(relPath string) error {
	err := os.Remove(filepath.FromSlash(relPath))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove upload: %w", err)
	}
	return nil
}
