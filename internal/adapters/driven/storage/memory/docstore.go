package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// Save stores or updates a document.
func (s *DocumentStore) Save(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// FindByID retrieves a document by ID.
func (s *DocumentStore) FindByID(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// FindByContentHash returns the active document with this content hash.
func (s *DocumentStore) FindByContentHash(_ context.Context, hash string) (*domain.Document, error) {
	return s.find(domain.StatusActive, hash, contentHash)
}

// FindByTextHash returns the active document with this text hash.
func (s *DocumentStore) FindByTextHash(_ context.Context, hash string) (*domain.Document, error) {
	return s.find(domain.StatusActive, hash, textHash)
}

// FindDeletedByContentHash returns a soft-deleted document with this content hash.
func (s *DocumentStore) FindDeletedByContentHash(_ context.Context, hash string) (*domain.Document, error) {
	return s.find(domain.StatusDeleted, hash, contentHash)
}

// FindDeletedByTextHash returns a soft-deleted document with this text hash.
func (s *DocumentStore) FindDeletedByTextHash(_ context.Context, hash string) (*domain.Document, error) {
	return s.find(domain.StatusDeleted, hash, textHash)
}

func contentHash(d *domain.Document) string { return d.ContentHash }
func textHash(d *domain.Document) string { return d.TextHash }

// find returns the oldest document in status whose field equals hash.
// Empty hashes never match.
func (s *DocumentStore) find(
	status domain.DocumentStatus,
	hash string,
	field func(*domain.Document) string,
) (*domain.Document, error) {
	if hash == "" {
		return nil, domain.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Document
	for id := range s.documents {
		doc := s.documents[id]
		if doc.Status != status || field(&doc) != hash {
			continue
		}
		if found == nil || doc.CreatedAt.Before(found.CreatedAt) ||
			(doc.CreatedAt.Equal(found.CreatedAt) && doc.ID < found.ID) {
			found = &doc
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

// SetStatus changes a document's lifecycle status.
func (s *DocumentStore) SetStatus(_ context.Context, id string, status domain.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	doc.Status = status
	doc.UpdatedAt = now
	if status == domain.StatusDeleted {
		doc.DeletedAt = &now
	} else {
		doc.DeletedAt = nil
	}
	s.documents[id] = doc
	return nil
}

// ListDocuments returns documents with the given status, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, status domain.DocumentStatus) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Document
	for id := range s.documents {
		doc := s.documents[id]
		if doc.Status == status {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ReplaceChunks replaces all chunks for a document.
func (s *DocumentStore) ReplaceChunks(_ context.Context, documentID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(chunks) == 0 {
		delete(s.chunks, documentID)
		return nil
	}
	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	s.chunks[documentID] = stored
	return nil
}

// GetChunks retrieves all chunks for a document.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks, ok := s.chunks[documentID]
	if !ok {
		return nil, nil
	}
	result := make([]domain.Chunk, len(chunks))
	copy(result, chunks)
	return result, nil
}

// Delete removes a document and its chunks.
func (s *DocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// CountChunks returns the number of chunks stored for a document.
func (s *DocumentStore) CountChunks(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[documentID]), nil
}
