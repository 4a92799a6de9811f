// Package images stores uploaded item photos and computes their BlurHash
// placeholders.
package images

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// URLPrefix is the public path images are served under.
const URLPrefix = "/images/"

// Kinds of stored images.
const (
	KindItem   = "items"
	KindAvatar = "avatars"
	KindIDCard = "id-cards"
)

// ErrNotFound is returned when no image exists for a kind and id.
var ErrNotFound = errors.New("image not found")

var (
	validKinds = map[string]bool{KindItem: true, KindAvatar: true, KindIDCard: true}
	idPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Storage is a filesystem blob store laid out as {base}/{kind}/{id}{ext}.
// Each id holds at most one file.
type Storage struct {
	basePath string
	mu       sync.RWMutex
}

// NewStorage creates the kind directories under basePath.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, errors.New("base path cannot be empty")
	}
	for kind := range validKinds {
		if err := os.MkdirAll(filepath.Join(basePath, kind), 0o755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", kind, err)
		}
	}
	return &Storage{basePath: basePath}, nil
}

// Save writes data for (kind, id), replacing any previous image, and
// returns its public URL.
func (s *Storage) Save(kind, id string, data []byte) (string, error) {
	if err := checkKey(kind, id); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("image data cannot be empty")
	}
	ext, ok := extensions[http.DetectContentType(data)]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", http.DetectContentType(data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.removeLocked(kind, id); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.basePath, kind, id+ext), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return URL(kind, id), nil
}

// Get returns the stored bytes and their content type.
func (s *Storage) Get(kind, id string) ([]byte, string, error) {
	if err := checkKey(kind, id); err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.find(kind, id)
	if err != nil {
		return nil, "", err
	}
	//#nosec G304 -- kind and id are validated
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	return data, http.DetectContentType(data), nil
}

// Delete removes the image for (kind, id). Missing images are not an error.
func (s *Storage) Delete(kind, id string) error {
	if err := checkKey(kind, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(kind, id)
}

// DeleteByURL removes the image a URL returned by Save points to.
func (s *Storage) DeleteByURL(url string) error {
	kind, id, ok := ParseURL(url)
	if !ok {
		return fmt.Errorf("not an image url: %q", url)
	}
	return s.Delete(kind, id)
}

// URL returns the public path of (kind, id).
func URL(kind, id string) string {
	return URLPrefix + kind + "/" + id
}

// ParseURL splits a URL produced by URL into kind and id.
func ParseURL(url string) (kind, id string, ok bool) {
	rest, found := strings.CutPrefix(url, URLPrefix)
	if !found {
		return "", "", false
	}
	kind, id, found = strings.Cut(rest, "/")
	if !found || checkKey(kind, id) != nil {
		return "", "", false
	}
	return kind, id, true
}

func checkKey(kind, id string) error {
	if !validKinds[kind] {
		return fmt.Errorf("unknown image kind %q", kind)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid image id %q", id)
	}
	return nil
}

func (s *Storage) find(kind, id string) (string, error) {
	for _, ext := range extensions {
		path := filepath.Join(s.basePath, kind, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

func (s *Storage) removeLocked(kind, id string) error {
	for _, ext := range extensions {
		err := os.Remove(filepath.Join(s.basePath, kind, id+ext))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete image: %w", err)
		}
	}
	return nil
}
