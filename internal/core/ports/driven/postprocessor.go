package driven

import (
	"context"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

// PostProcessor is one step of the chunking pipeline. The first step gets
// nil chunks and builds them from doc.Content; later steps rewrite the
// chunks they are handed.
type PostProcessor interface {
	// Name is the key used in pipeline.processors.
	Name() string

	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns a document into its final, indexed chunks.
// Returned chunks carry doc.ID, are numbered from 0 and are never blank.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
