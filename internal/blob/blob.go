// Package blob stores binary objects such as profile photos and hands out
// download URLs for them.
package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/packsync/packsync/internal/domain"
)

// Store is the blob storage contract.
type Store interface {
	// Upload writes data under path, replacing any existing object.
	Upload(ctx context.Context, path string, data []byte, contentType string) error

	// DownloadURL returns a URL from which the object at path can be fetched.
	// Returns domain.ErrNotFound if nothing is stored there (where the
	// backend can tell cheaply).
	DownloadURL(ctx context.Context, path string) (string, error)
}

// CleanPath validates an object path: slash-separated, no empty, "." or ".."
// segments, no leading slash.
func CleanPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: blob path is required", domain.ErrValidation)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: invalid blob path %q", domain.ErrValidation, path)
		}
	}
	return path, nil
}

// Object is a blob held by a MemoryStore.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps blobs in memory. Download URLs are baseURL joined with
// the object path.
type MemoryStore struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{baseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string]Object)}
}

func (m *MemoryStore) Upload(_ context.Context, path string, data []byte, contentType string) error {
	if _, err := CleanPath(path); err != nil {
		return fmt.Errorf("blob.MemoryStore.Upload: %w", err)
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.objects[path] = Object{Data: buf, ContentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DownloadURL(_ context.Context, path string) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[path]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("blob.MemoryStore.DownloadURL: %w", domain.ErrNotFound)
	}
	return m.baseURL + "/" + (&url.URL{Path: path}).EscapedPath(), nil
}

// Object returns the stored object at path.
func (m *MemoryStore) Object(path string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[path]
	return o, ok
}
