package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// sampleText is embedded once to confirm the model answers and to read its
// vector size.
const sampleText = "sercha-dedup connectivity check"

// ConfigValidator checks embedding settings against the live provider.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator with the default ping timeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// ValidateEmbedding pings the provider, embeds a sample text and compares the
// returned vector size with the configured dimensions. Unconfigured
// settings are not an error.
func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	provider, err := CreateEmbeddingProvider(settings)
	if err != nil {
		return err
	}
	if provider == nil {
		return nil
	}
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	if err := provider.Ping(ctx); err != nil {
		return err
	}

	vectors, err := provider.EmbedBatch(ctx, []string{sampleText}, settings.Config())
	if err != nil {
		return fmt.Errorf("embed sample with %s: %w", provider.ModelName(), err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return fmt.Errorf("%w: model %s returned no vector", domain.ErrProvider, provider.ModelName())
	}
	if settings.Dimensions > 0 && len(vectors[0]) != settings.Dimensions {
		return domain.NewValidationError("embedding.dimensions",
			fmt.Sprintf("model %s returns %d dimensions, configured %d",
				provider.ModelName(), len(vectors[0]), settings.Dimensions))
	}
	return nil
}
