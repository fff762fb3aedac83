package artwork

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
)

// Storage manages the on-disk artwork tier. One file per key, no size tag in
// the filename; the stored file's pixel width is checked against the
// configured preferred width on access and stale files are removed lazily.
//
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex
}

// NewStorage creates a Storage rooted at basePath, creating the directory if
// needed.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create artwork directory: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// Save stores artwork bytes for a key, replacing any existing file.
func (s *Storage) Save(key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if len(data) == 0 {
		return fmt.Errorf("image data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.Path(key), data, 0644); err != nil {
		return fmt.Errorf("write artwork file: %w", err)
	}
	return nil
}

// Load retrieves artwork bytes for a key.
func (s *Storage) Load(key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artwork not found for %s: %w", key, err)
		}
		return nil, fmt.Errorf("read artwork file: %w", err)
	}
	return data, nil
}

// Exists checks whether a file exists for the key.
func (s *Storage) Exists(key string) bool {
	if key == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(key))
	return err == nil
}

// Delete removes the file for a key. Deleting a missing file is not an error.
func (s *Storage) Delete(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artwork file: %w", err)
	}
	return nil
}

// Width reads only the image header and returns the stored file's pixel
// width. Used for the lazy invalidation check against the preferred width.
func (s *Storage) Width(key string) (int, error) {
	data, err := s.Load(key)
	if err != nil {
		return 0, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode artwork header: %w", err)
	}
	return cfg.Width, nil
}

// Hash computes the SHA256 of the stored file, hex-encoded for ETags.
func (s *Storage) Hash(key string) (string, error) {
	data, err := s.Load(key)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum), nil
}

// Path returns the full filesystem path for a key's artwork file.
func (s *Storage) Path(key string) string {
	return filepath.Join(s.basePath, key+".jpg")
}
