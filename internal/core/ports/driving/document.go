package driving

import (
	"context"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

// DocumentService manages the document lifecycle.
type DocumentService interface {
	// Ingest stores a new document, chunks it and indexes its embeddings.
	Ingest(ctx context.Context, content []byte, originalName string, opts IngestOptions) (*IngestResult, error)

	// Reprocess re-chunks a stored document, replacing its chunks and vectors.
	Reprocess(ctx context.Context, documentID string) (*IngestResult, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// Chunks returns a document's chunks in index order.
	Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// List returns documents with the given status.
	List(ctx context.Context, status domain.DocumentStatus) ([]domain.Document, error)

	// Delete soft-deletes a document. Its bytes move to the deleted namespace.
	Delete(ctx context.Context, documentID string) error

	// Restore brings a soft-deleted document back.
	Restore(ctx context.Context, documentID string) (*domain.Document, error)
}

// IngestOptions controls an ingest run.
type IngestOptions struct {
	// SkipEmbeddings stores chunks without embedding them.
	SkipEmbeddings bool
}

// IngestResult reports what an ingest or reprocess run produced.
type IngestResult struct {
	Document   *domain.Document
	ChunkCount int
	Embedding  *domain.EmbeddingSummary
	Warnings   []string
}
