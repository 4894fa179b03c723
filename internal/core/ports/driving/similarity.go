package driving

import (
	"context"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

// SimilarityChecker answers whether a document, or near-identical content,
// has been seen before.
type SimilarityChecker interface {
	// CheckSimilarity runs the hash checks and, unless skipped, the semantic
	// check for content. The result always carries a status when err is nil.
	CheckSimilarity(ctx context.Context, content []byte, originalName string, opts domain.CheckOptions) (*domain.CheckResult, error)
}
