package driven

import (
	"context"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for metadata storage.
//
// Hash lookups only see active documents. Soft-deleted documents are reached
// through the FindDeleted* methods.
type DocumentStore interface {
	// Save stores or updates a document.
	Save(ctx context.Context, doc *domain.Document) error

	// FindByID retrieves a document by ID regardless of status.
	FindByID(ctx context.Context, id string) (*domain.Document, error)

	// FindByContentHash returns the active document with this content hash.
	FindByContentHash(ctx context.Context, hash string) (*domain.Document, error)

	// FindByTextHash returns the active document with this text hash.
	FindByTextHash(ctx context.Context, hash string) (*domain.Document, error)

	// FindDeletedByContentHash returns a soft-deleted document with this content hash.
	FindDeletedByContentHash(ctx context.Context, hash string) (*domain.Document, error)

	// FindDeletedByTextHash returns a soft-deleted document with this text hash.
	FindDeletedByTextHash(ctx context.Context, hash string) (*domain.Document, error)

	// SetStatus changes a document's lifecycle status.
	SetStatus(ctx context.Context, id string, status domain.DocumentStatus) error

	// ListDocuments returns documents with the given status, newest first.
	ListDocuments(ctx context.Context, status domain.DocumentStatus) ([]domain.Document, error)

	// ReplaceChunks deletes all chunks for a document and inserts the new set.
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// GetChunks retrieves all chunks for a document in index order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// CountChunks returns the number of chunks stored for a document.
	CountChunks(ctx context.Context, documentID string) (int, error)

	// Delete removes a document and its chunks outright. Used to roll back
	// an ingest that failed part way; deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error
}
