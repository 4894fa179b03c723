// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

// EmbeddingProvider generates vector embeddings from text.
// This is an optional service - when nil, semantic checks are skipped.
//
// Note: This is separate from VectorIndex which stores and searches vectors.
// EmbeddingProvider generates vectors; VectorIndex stores them.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//
// Failures are reported as *domain.ProviderError so callers can decide
// whether to retry.
type EmbeddingProvider interface {
	// EmbedBatch generates embeddings for texts in one provider call.
	// The returned slice is aligned with texts, regardless of the order
	// the provider responded in.
	EmbedBatch(ctx context.Context, texts []string, cfg domain.EmbeddingConfig) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536, 3072).
	// This is determined by the model and must match VectorIndex configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// MaxInputChars is the longest text accepted in a single input.
	MaxInputChars() int

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
