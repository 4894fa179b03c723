package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// Ensure ObjectStore implements the interface.
var _ driven.ObjectStore = (*ObjectStore)(nil)

// ObjectStore is an in-memory implementation of driven.ObjectStore.
type ObjectStore struct {
	mu      sync.RWMutex
	live    map[string][]byte
	deleted map[string][]byte
}

// NewObjectStore creates a new in-memory object store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		live:    make(map[string][]byte),
		deleted: make(map[string][]byte),
	}
}

// Put writes content under key.
func (s *ObjectStore) Put(_ context.Context, key string, content []byte) error {
	data := make([]byte, len(content))
	copy(data, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[key] = data
	return nil
}

// Read returns the bytes stored under key.
func (s *ObjectStore) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.live[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Exists reports whether key is in the live namespace.
func (s *ObjectStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.live[key]
	return ok, nil
}

// ExistsDeleted reports whether key is in the deleted namespace.
func (s *ObjectStore) ExistsDeleted(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.deleted[key]
	return ok, nil
}

// MoveToDeleted moves key into the deleted namespace.
func (s *ObjectStore) MoveToDeleted(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return move(s.live, s.deleted, key)
}

// MoveFromDeleted moves key back into the live namespace.
func (s *ObjectStore) MoveFromDeleted(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return move(s.deleted, s.live, key)
}

// Delete removes key from the live namespace.
func (s *ObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, key)
	return nil
}

// Drop removes key from both namespaces.
func (s *ObjectStore) Drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, key)
	delete(s.deleted, key)
}

func move(from, to map[string][]byte, key string) error {
	data, ok := from[key]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrObjectNotFound, key)
	}
	to[key] = data
	delete(from, key)
	return nil
}
