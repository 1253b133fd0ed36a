package imagestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/google/uuid"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Store is a write-once blob store on local disk. Every saved image gets
// a collision-resistant random filename preserving the original
// extension and resolves to a public URL.
type Store struct {
	dir           string
	publicBaseURL string
	maxSizeBytes  int64
}

func NewStore(dir, publicBaseURL string, maxSizeMB int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Store{
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxSizeBytes:  int64(maxSizeMB) * 1024 * 1024,
	}, nil
}

// Dir returns the on-disk directory, for static file serving.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the uploaded image and returns its public URL. The
// original filename only contributes its extension.
func (s *Store) Save(r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported image extension %q", ext)
	}

	name := uuid.New().String() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(r, s.maxSizeBytes+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if n > s.maxSizeBytes {
		os.Remove(path)
		return "", fmt.Errorf("image exceeds %d bytes", s.maxSizeBytes)
	}

	url := s.publicBaseURL + "/images/" + name
	log.Infof("Stored image %s (%d bytes)", name, n)
	return url, nil
}
