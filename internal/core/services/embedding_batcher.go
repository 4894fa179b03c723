package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dedup/internal/logger"
)

const (
	embedMaxAttempts = 3
	embedBaseDelay   = 200 * time.Millisecond
)

// EmbeddingBatcher turns texts into vectors with bounded provider calls.
// A failed batch marks only its own texts failed; later batches still run.
type EmbeddingBatcher struct {
	provider    driven.EmbeddingProvider
	maxAttempts int
	baseDelay   time.Duration
}

// BatcherOption configures an EmbeddingBatcher.
type BatcherOption func(*EmbeddingBatcher)

// WithRetry sets the attempt count and the first backoff delay.
// The delay doubles after every failed attempt.
func WithRetry(attempts int, baseDelay time.Duration) BatcherOption {
	return func(b *EmbeddingBatcher) {
		if attempts > 0 {
			b.maxAttempts = attempts
		}
		if baseDelay >= 0 {
			b.baseDelay = baseDelay
		}
	}
}

// NewEmbeddingBatcher creates a batcher over provider.
func NewEmbeddingBatcher(provider driven.EmbeddingProvider, opts ...BatcherOption) *EmbeddingBatcher {
	b := &EmbeddingBatcher{
		provider:    provider,
		maxAttempts: embedMaxAttempts,
		baseDelay:   embedBaseDelay,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Embed converts texts into vectors aligned index-for-index with texts.
//
// Texts that are blank or longer than the provider accepts are failed
// before any call. Valid texts are sent in batches of cfg.BatchSize, one
// provider call per batch. When ctx is cancelled between batches the
// partial result is returned together with ctx.Err().
func (b *EmbeddingBatcher) Embed(ctx context.Context, texts []string, cfg domain.EmbeddingConfig) (*domain.EmbeddingBatchResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = domain.DefaultEmbeddingBatchSize
	}

	result := &domain.EmbeddingBatchResult{
		Vectors:         make([][]float32, len(texts)),
		TotalEmbeddings: len(texts),
	}
	fail := func(index int, err error) {
		result.Errors = append(result.Errors, domain.EmbeddingError{Index: index, Err: err})
		result.FailedCount++
	}

	maxChars := b.provider.MaxInputChars()
	valid := make([]int, 0, len(texts))
	for i, text := range texts {
		switch {
		case strings.TrimSpace(text) == "":
			fail(i, domain.NewValidationError("text", "must not be empty"))
		case maxChars > 0 && utf8.RuneCountInString(text) > maxChars:
			fail(i, domain.NewValidationError("text", fmt.Sprintf("exceeds %d characters", maxChars)))
		default:
			valid = append(valid, i)
		}
	}

	for start := 0; start < len(valid); start += batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := min(start+batchSize, len(valid))
		indexes := valid[start:end]
		batch := make([]string, len(indexes))
		for j, i := range indexes {
			batch[j] = texts[i]
		}

		vectors, err := b.embedWithRetry(ctx, batch, cfg)
		if err == nil {
			err = checkVectors(vectors, len(batch), cfg.Dimensions)
		}
		if err != nil {
			logger.Warn("embedding batch %d-%d failed: %v", indexes[0], indexes[len(indexes)-1], err)
			for _, i := range indexes {
				fail(i, err)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			continue
		}

		for j, i := range indexes {
			result.Vectors[i] = vectors[j]
		}
		result.SuccessfulCount += len(indexes)
	}

	logger.Debug("embedded %d/%d texts (%d failed)", result.SuccessfulCount, result.TotalEmbeddings, result.FailedCount)
	return result, nil
}

// embedWithRetry calls the provider with exponential backoff.
// Only retryable provider errors are retried.
func (b *EmbeddingBatcher) embedWithRetry(ctx context.Context, texts []string, cfg domain.EmbeddingConfig) ([][]float32, error) {
	delay := b.baseDelay
	var lastErr error
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		vectors, err := b.provider.EmbedBatch(ctx, texts, cfg)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !domain.IsRetryable(err) || attempt == b.maxAttempts {
			break
		}

		wait := delay
		var pe *domain.ProviderError
		if errors.As(err, &pe) && pe.RetryAfter > 0 {
			wait = max(wait, time.Duration(pe.RetryAfter)*time.Second)
		}
		logger.Debug("embedding attempt %d failed, retrying in %s: %v", attempt, wait, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
			delay *= 2
		}
	}
	return nil, lastErr
}

// checkVectors verifies the provider returned one non-empty vector per text,
// all of the same size.
func checkVectors(vectors [][]float32, want, dimensions int) error {
	if len(vectors) != want {
		return domain.NewProviderError(domain.ProviderValidation, 0,
			fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), want))
	}
	if dimensions == 0 && len(vectors) > 0 {
		dimensions = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dimensions {
			return domain.NewProviderError(domain.ProviderValidation, 0,
				fmt.Errorf("vector %d has %d dimensions, want %d", i, len(v), dimensions))
		}
	}
	return nil
}
