// Package cache holds the on-disk bucket store and the bounded in-memory
// lookup caches.
package cache

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"

	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/utils"
)

// ImagesBucket holds remote icons keyed by their file name.
const ImagesBucket = "images"

// Store keeps blobs under base/<bucket>/<key>. A Store with an empty base
// caches nothing: every Get misses and every Set is dropped.
type Store struct {
	base string
}

func NewStore(base string) *Store {
	return &Store{base: base}
}

func (s *Store) Base() string {
	return s.base
}

// Get returns the cached bytes. Any failure is a miss.
func (s *Store) Get(bucket, key string) ([]byte, bool) {
	path, ok := s.key(bucket, key)
	if !ok {
		return nil, false
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return b, true
}

func (s *Store) Set(bucket, key string, value []byte) error {
	path, ok := s.key(bucket, key)
	if !ok {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return data.NewIoError(err)
	}
	return data.NewIoError(os.WriteFile(path, value, 0644))
}

// GetImage decodes a cached image. Malformed files count as a miss.
func (s *Store) GetImage(bucket, key string) (image.Image, bool) {
	b, ok := s.Get(bucket, key)
	if !ok {
		return nil, false
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, false
	}
	return img, true
}

// SetImage stores img PNG-encoded regardless of its source format.
func (s *Store) SetImage(bucket, key string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return data.NewIoError(err)
	}
	return s.Set(bucket, key, buf.Bytes())
}

func (s *Store) key(bucket, key string) (string, bool) {
	if s.base == "" {
		return "", false
	}
	return filepath.Join(s.base, utils.SanitizeFilename(bucket), utils.SanitizeFilename(key)), true
}
