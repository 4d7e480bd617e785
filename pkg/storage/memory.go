package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryObject is a stored object held by MemoryStorage.
type MemoryObject struct {
	Data        []byte
	ContentType string
}

// MemoryStorage is an in-process Storage used for tests and local runs.
type MemoryStorage struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]MemoryObject
	writes  int
}

// NewMemoryStorage creates an empty MemoryStorage. baseURL prefixes ObjectURL.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string]MemoryObject),
	}
}

// Put seeds an object without counting it as a write.
func (s *MemoryStorage) Put(key string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = MemoryObject{Data: append([]byte(nil), data...), ContentType: contentType}
}

// Write stores content from the reader with the given key.
func (s *MemoryStorage) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = MemoryObject{Data: data, ContentType: contentType}
	s.writes++
	return nil
}

// Read retrieves content for the given key.
func (s *MemoryStorage) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

// ObjectURL returns baseURL/key.
func (s *MemoryStorage) ObjectURL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

// Get returns the object stored at key.
func (s *MemoryStorage) Get(key string) (MemoryObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Keys returns all stored keys in sorted order.
func (s *MemoryStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Writes returns the number of Write calls that succeeded.
func (s *MemoryStorage) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
