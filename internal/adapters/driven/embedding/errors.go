// Package embedding holds helpers shared by the embedding provider adapters
// and a rate-limiting decorator for any driven.EmbeddingProvider.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

// maxErrorBody caps how much of an error response is quoted.
const maxErrorBody = 512

// StatusError converts a non-2xx HTTP response into a *domain.ProviderError.
func StatusError(provider string, resp *http.Response, body []byte) *domain.ProviderError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	perr := domain.NewProviderError(
		domain.ProviderErrorKindForStatus(resp.StatusCode),
		resp.StatusCode,
		fmt.Errorf("%s: %s", provider, msg),
	)
	perr.RetryAfter = RetryAfter(resp.Header.Get("Retry-After"), time.Now())
	return perr
}

// TransportError classifies a failure to complete an HTTP round trip.
// Cancellation is returned unchanged so callers can stop promptly.
func TransportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewProviderError(domain.ProviderTransient, 0, fmt.Errorf("%s: send request: %w", provider, err))
}

// RetryAfter parses a Retry-After header in either delta-seconds or
// HTTP-date form. Returns 0 when absent or unparseable.
func RetryAfter(header string, now time.Time) int {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return 0
		}
		return secs
	}
	if at, err := http.ParseTime(header); err == nil {
		secs := int(at.Sub(now).Round(time.Second) / time.Second)
		if secs < 0 {
			return 0
		}
		return secs
	}
	return 0
}
