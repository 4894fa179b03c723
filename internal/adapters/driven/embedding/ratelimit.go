package embedding

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dedup/internal/logger"
)

// Ensure RateLimited implements the interface.
var _ driven.EmbeddingProvider = (*RateLimited)(nil)

// RateLimited throttles EmbedBatch calls with a token bucket. After a
// rate_limit error carrying Retry-After, further calls wait until the
// advised time has passed.
type RateLimited struct {
	next    driven.EmbeddingProvider
	limiter *rate.Limiter

	mu         sync.Mutex
	blockUntil time.Time
}

// NewRateLimited wraps next with a limiter allowing rps calls per second
// and bursts of burst calls. A non-positive rps leaves calls unthrottled.
func NewRateLimited(next driven.EmbeddingProvider, rps float64, burst int) *RateLimited {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// EmbedBatch waits for a token, then delegates.
func (r *RateLimited) EmbedBatch(ctx context.Context, texts []string, cfg domain.EmbeddingConfig) ([][]float32, error) {
	if err := r.waitBlocked(ctx); err != nil {
		return nil, err
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vectors, err := r.next.EmbedBatch(ctx, texts, cfg)

	var perr *domain.ProviderError
	if errors.As(err, &perr) && perr.Kind == domain.ProviderRateLimit && perr.RetryAfter > 0 {
		r.block(time.Duration(perr.RetryAfter) * time.Second)
		logger.Warn("embedding provider rate limited, pausing %ds", perr.RetryAfter)
	}
	return vectors, err
}

func (r *RateLimited) block(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until := time.Now().Add(d)
	if until.After(r.blockUntil) {
		r.blockUntil = until
	}
}

func (r *RateLimited) waitBlocked(ctx context.Context) error {
	r.mu.Lock()
	wait := time.Until(r.blockUntil)
	r.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Dimensions delegates to the wrapped provider.
func (r *RateLimited) Dimensions() int { return r.next.Dimensions() }

// ModelName delegates to the wrapped provider.
func (r *RateLimited) ModelName() string { return r.next.ModelName() }

// MaxInputChars delegates to the wrapped provider.
func (r *RateLimited) MaxInputChars() int { return r.next.MaxInputChars() }

// Ping delegates without consuming a token.
func (r *RateLimited) Ping(ctx context.Context) error { return r.next.Ping(ctx) }

// Close closes the wrapped provider.
func (r *RateLimited) Close() error { return r.next.Close() }
