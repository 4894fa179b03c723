package driven

import "github.com/custodia-labs/sercha-dedup/internal/core/domain"

// AIConfigValidator checks embedding settings against the live provider
// before they are relied on for semantic checks.
type AIConfigValidator interface {
	// ValidateEmbedding confirms the provider answers and that its vectors
	// match the configured dimensions. Unconfigured settings return nil.
	ValidateEmbedding(settings *domain.EmbeddingSettings) error
}
