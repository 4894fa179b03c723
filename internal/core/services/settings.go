package services

import (
	"fmt"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkMaxSize           = "chunking.max_chunk_size"
	keyChunkOverlap           = "chunking.overlap"
	keyChunkMinSize           = "chunking.min_chunk_size"
	keyChunkRespectParagraphs = "chunking.respect_paragraphs"
	keyChunkRespectSentences  = "chunking.respect_sentences"
	keyEmbedProvider          = "embedding.provider"
	keyEmbedModel             = "embedding.model"
	keyEmbedBaseURL           = "embedding.base_url"
	keyEmbedAPIKey            = "embedding.api_key"
	keyEmbedDimensions        = "embedding.dimensions"
	keyEmbedBatchSize         = "embedding.batch_size"
	keyEmbedRPS               = "embedding.requests_per_second"
	keyVectorBackend          = "vector_index.backend"
	keyVectorDSN              = "vector_index.dsn"
	keyVectorTable            = "vector_index.table"
	keyVectorDims             = "vector_index.dimensions"
	keySimThreshold           = "similarity.threshold"
	keySimMaxCandidates       = "similarity.max_candidates"
	keySimSearchLimit         = "similarity.search_limit"
	keySimSearchConcurrency   = "similarity.search_concurrency"
	keyStorageDataDir         = "storage.data_dir"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingConfig{
			MaxChunkSize:      s.getInt(keyChunkMaxSize, defaults.Chunking.MaxChunkSize),
			Overlap:           s.getIntAllowZero(keyChunkOverlap, defaults.Chunking.Overlap),
			MinChunkSize:      s.getInt(keyChunkMinSize, defaults.Chunking.MinChunkSize),
			RespectParagraphs: s.getBool(keyChunkRespectParagraphs, defaults.Chunking.RespectParagraphs),
			RespectSentences:  s.getBool(keyChunkRespectSentences, defaults.Chunking.RespectSentences),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.configStore.GetInt(keyEmbedDimensions),
			BatchSize:         s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		VectorIndex: domain.VectorIndexSettings{
			Backend:    s.getBackend(defaults.VectorIndex.Backend),
			DSN:        s.configStore.GetString(keyVectorDSN),
			Table:      s.getString(keyVectorTable, defaults.VectorIndex.Table),
			Dimensions: s.getInt(keyVectorDims, defaults.VectorIndex.Dimensions),
		},
		Similarity: domain.SimilaritySettings{
			Threshold:         s.getFloat(keySimThreshold, defaults.Similarity.Threshold),
			MaxCandidates:     s.getInt(keySimMaxCandidates, defaults.Similarity.MaxCandidates),
			SearchLimit:       s.getInt(keySimSearchLimit, defaults.Similarity.SearchLimit),
			SearchConcurrency: s.getInt(keySimSearchConcurrency, defaults.Similarity.SearchConcurrency),
		},
		Storage: domain.StorageSettings{
			DataDir: s.configStore.GetString(keyStorageDataDir),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyChunkMaxSize, settings.Chunking.MaxChunkSize},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyChunkMinSize, settings.Chunking.MinChunkSize},
		{keyChunkRespectParagraphs, settings.Chunking.RespectParagraphs},
		{keyChunkRespectSentences, settings.Chunking.RespectSentences},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyVectorBackend, settings.VectorIndex.Backend.String()},
		{keyVectorDSN, settings.VectorIndex.DSN},
		{keyVectorTable, settings.VectorIndex.Table},
		{keyVectorDims, settings.VectorIndex.Dimensions},
		{keySimThreshold, settings.Similarity.Threshold},
		{keySimMaxCandidates, settings.Similarity.MaxCandidates},
		{keySimSearchLimit, settings.Similarity.SearchLimit},
		{keySimSearchConcurrency, settings.Similarity.SearchConcurrency},
		{keyStorageDataDir, settings.Storage.DataDir},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		defaults := domain.DefaultEmbeddingModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.Embedding.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetChunking updates the chunking configuration.
func (s *SettingsService) SetChunking(cfg domain.ChunkingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Chunking = cfg
	return s.Save(settings)
}

// SetVectorBackend selects the vector index backend.
func (s *SettingsService) SetVectorBackend(backend domain.VectorBackend, dsn string) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid vector backend: %s", backend)
	}
	if backend == domain.VectorBackendPgvector && dsn == "" {
		return fmt.Errorf("DSN required for %s", backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.VectorIndex.Backend = backend
	settings.VectorIndex.DSN = dsn
	return s.Save(settings)
}

// Validate checks if current settings are consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if err := settings.Chunking.Validate(); err != nil {
		return err
	}
	if err := settings.Embedding.Config().Validate(); err != nil {
		return err
	}
	if err := settings.CheckOptions().Validate(); err != nil {
		return err
	}
	if settings.VectorIndex.Backend == domain.VectorBackendPgvector && settings.VectorIndex.DSN == "" {
		return domain.NewValidationError("vector_index.dsn", "required for pgvector")
	}
	if settings.Embedding.Provider != "" && !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not fully configured", settings.Embedding.Provider.Description())
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// GetPipelineConfig returns the post-processor pipeline configuration
// for the current chunking settings.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	settings, err := s.Get()
	if err != nil {
		return domain.DefaultPipelineConfig()
	}
	cfg := settings.PipelineConfig()

	// Allow an explicit processor list in config
	if processors := s.configStore.GetStringSlice("pipeline.processors"); len(processors) > 0 {
		cfg.Processors = processors
	}
	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero treats an explicit zero as a value, not as unset.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	val := s.configStore.GetString(keyVectorBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.VectorBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
