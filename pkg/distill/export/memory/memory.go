package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/tendant/content-distill/pkg/distill/export"
)

// Store is an in-memory implementation of export.Store
type Store struct {
	mu           sync.RWMutex
	objects      map[string][]byte
	contentTypes map[string]string
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

// Put stores the content of reader under key
func (s *Store) Put(ctx context.Context, key string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.contentTypes[key] = contentType
	return nil
}

// Get returns the content stored under key
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.objects[key]
	if !exists {
		return nil, export.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the object stored under key
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; !exists {
		return export.ErrObjectNotFound
	}
	delete(s.objects, key)
	delete(s.contentTypes, key)
	return nil
}

// URL is not supported by the in-memory store
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	return "", export.ErrURLUnavailable
}

// ContentType returns the content type recorded for key
func (s *Store) ContentType(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contentTypes[key]
}

// Keys returns the stored keys in sorted order
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
