package domain

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available embedding providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's default vector size.
	Dimensions int

	// BatchSize is the number of texts per provider call.
	BatchSize int

	// RequestsPerSecond throttles provider calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// Config returns the per-run embedding configuration.
func (e EmbeddingSettings) Config() EmbeddingConfig {
	return EmbeddingConfig{
		Model:      e.Model,
		Dimensions: e.Dimensions,
		BatchSize:  e.BatchSize,
	}
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendSQLite stores vectors next to the document metadata and
	// scans them with cosine similarity.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendPgvector uses PostgreSQL with the pgvector extension.
	VectorBackendPgvector VectorBackend = "pgvector"

	// VectorBackendMemory keeps vectors in process memory.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendPgvector, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendSQLite:
		return "SQLite (local, exhaustive scan)"
	case VectorBackendPgvector:
		return "PostgreSQL + pgvector"
	case VectorBackendMemory:
		return "In-memory (not persisted)"
	default:
		return unknownDescription
	}
}

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	// Backend selects the implementation.
	Backend VectorBackend

	// DSN is the connection string for pgvector.
	DSN string

	// Table is the pgvector table name.
	Table string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// SimilaritySettings holds the default check options.
type SimilaritySettings struct {
	Threshold         float64
	MaxCandidates     int
	SearchLimit       int
	SearchConcurrency int
}

// StorageSettings locates local data.
type StorageSettings struct {
	// DataDir holds the metadata database and the object store.
	// Empty means ~/.sercha-dedup/data.
	DataDir string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Chunking holds chunker settings.
	Chunking ChunkingConfig

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// VectorIndex holds vector index settings.
	VectorIndex VectorIndexSettings

	// Similarity holds default check options.
	Similarity SimilaritySettings

	// Storage holds local storage settings.
	Storage StorageSettings
}

// CheckOptions returns check options seeded from the similarity settings.
func (s AppSettings) CheckOptions() CheckOptions {
	return CheckOptions{
		SimilarityThreshold: s.Similarity.Threshold,
		MaxCandidates:       s.Similarity.MaxCandidates,
		SearchLimit:         s.Similarity.SearchLimit,
		SearchConcurrency:   s.Similarity.SearchConcurrency,
	}.WithDefaults()
}

// PipelineConfig returns the post-processor configuration for the chunking settings.
func (s AppSettings) PipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"max_chunk_size":     s.Chunking.MaxChunkSize,
				"overlap":            s.Chunking.Overlap,
				"min_chunk_size":     s.Chunking.MinChunkSize,
				"respect_paragraphs": s.Chunking.RespectParagraphs,
				"respect_sentences":  s.Chunking.RespectSentences,
			},
		},
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// Embedding is left unconfigured; semantic checks are skipped until a
// provider is set.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking:  DefaultChunkingConfig(),
		Embedding: EmbeddingSettings{BatchSize: DefaultEmbeddingBatchSize},
		VectorIndex: VectorIndexSettings{
			Backend:    VectorBackendSQLite,
			Table:      "chunk_embeddings",
			Dimensions: 768, // nomic-embed-text default
		},
		Similarity: SimilaritySettings{
			Threshold:         DefaultSimilarityThreshold,
			MaxCandidates:     DefaultMaxCandidates,
			SearchLimit:       DefaultSearchLimit,
			SearchConcurrency: DefaultSearchConcurrency,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllVectorBackends returns all available vector backends.
func AllVectorBackends() []VectorBackend {
	return []VectorBackend{
		VectorBackendSQLite,
		VectorBackendPgvector,
		VectorBackendMemory,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return DefaultAppSettings().PipelineConfig()
}
