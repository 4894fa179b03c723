// Package ai provides factory functions for creating embedding and vector
// index adapters from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/embedding"
	ollamaembed "github.com/custodia-labs/sercha-dedup/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-dedup/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dedup/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of semantic stack initialisation.
type InitResult struct {
	EmbeddingProvider driven.EmbeddingProvider
	VectorIndex       driven.VectorIndex
	Warnings          []string // Non-fatal issues that caused fallback.
	FellBack          bool     // True if semantic checks are unavailable.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingProvider != nil {
		r.EmbeddingProvider.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
}

// Initialise builds the vector index and embedding provider for settings.
// local is the index used for the sqlite backend. Failures are recorded as
// warnings and leave the corresponding component nil, which turns semantic
// checks off without failing hash checks.
func Initialise(ctx context.Context, settings *domain.AppSettings, local driven.VectorIndex) *InitResult {
	result := &InitResult{}

	idx, err := CreateVectorIndex(ctx, settings.VectorIndex, local)
	if err != nil {
		result.warn("%v", err)
	}
	result.VectorIndex = idx

	provider, err := CreateAndValidateEmbeddingProvider(&settings.Embedding)
	if err != nil {
		result.warn("%v", err)
	}
	result.EmbeddingProvider = provider

	if provider != nil && settings.VectorIndex.Backend == domain.VectorBackendPgvector &&
		provider.Dimensions() != settings.VectorIndex.Dimensions {
		result.warn("embedding model %s produces %d dimensions but vector_index.dimensions is %d",
			provider.ModelName(), provider.Dimensions(), settings.VectorIndex.Dimensions)
	}

	result.FellBack = result.EmbeddingProvider == nil || result.VectorIndex == nil
	return result
}

func (r *InitResult) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("%s", msg)
	r.Warnings = append(r.Warnings, msg)
}

// CreateVectorIndex creates the vector index selected by settings.
func CreateVectorIndex(
	ctx context.Context,
	settings domain.VectorIndexSettings,
	local driven.VectorIndex,
) (driven.VectorIndex, error) {
	switch settings.Backend {
	case domain.VectorBackendSQLite, "":
		if local == nil {
			return nil, fmt.Errorf("%w: no local index", domain.ErrVectorIndexUnavailable)
		}
		return local, nil

	case domain.VectorBackendMemory:
		return memory.NewVectorIndex(), nil

	case domain.VectorBackendPgvector:
		idx, err := pgvector.New(ctx, pgvector.Config{
			DSN:        settings.DSN,
			Table:      settings.Table,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		return idx, nil

	default:
		return nil, fmt.Errorf("%w: unsupported backend %q", domain.ErrVectorIndexUnavailable, settings.Backend)
	}
}

// CreateAndValidateEmbeddingProvider creates an embedding provider and validates connectivity.
// Returns the provider if successful, or an error with guidance.
func CreateAndValidateEmbeddingProvider(settings *domain.EmbeddingSettings) (driven.EmbeddingProvider, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	provider, err := CreateEmbeddingProvider(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-dedup settings set-embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	if provider == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := provider.Ping(ctx); err != nil {
		provider.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'sercha-dedup settings set-embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return provider, nil
}

// CreateEmbeddingProvider creates the appropriate embedding provider based on settings.
// Returns nil if the provider is not configured. A positive
// RequestsPerSecond wraps the provider in a rate limiter.
func CreateEmbeddingProvider(settings *domain.EmbeddingSettings) (driven.EmbeddingProvider, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var provider driven.EmbeddingProvider
	switch settings.Provider {
	case domain.AIProviderOllama:
		provider = createOllamaEmbedding(settings)

	case domain.AIProviderOpenAI:
		svc, err := createOpenAIEmbedding(settings)
		if err != nil {
			return nil, err
		}
		provider = svc

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}

	if settings.RequestsPerSecond > 0 {
		provider = embedding.NewRateLimited(provider, settings.RequestsPerSecond, 1)
	}
	return provider, nil
}

// createOllamaEmbedding creates an Ollama embedding provider.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) *ollamaembed.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding provider.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (*openaiembed.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}
