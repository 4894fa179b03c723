package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

type mockAIValidator struct {
	err    error
	called bool
}

func (m *mockAIValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	m.called = true
	return m.err
}

func TestSettingsService_Get_Defaults(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := svc.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Chunking, settings.Chunking)
	assert.Equal(t, defaults.Similarity, settings.Similarity)
	assert.Equal(t, domain.VectorBackendSQLite, settings.VectorIndex.Backend)
	assert.Equal(t, "chunk_embeddings", settings.VectorIndex.Table)
	assert.Equal(t, domain.DefaultEmbeddingBatchSize, settings.Embedding.BatchSize)
	assert.Empty(t, settings.Embedding.Provider)
}

func TestSettingsService_SaveAndGet(t *testing.T) {
	store := memory.NewConfigStore()
	svc := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Chunking.MaxChunkSize = 500
	settings.Chunking.Overlap = 0
	settings.Chunking.RespectSentences = false
	settings.Embedding = domain.EmbeddingSettings{
		Provider:          domain.AIProviderOpenAI,
		Model:             "text-embedding-3-large",
		APIKey:            "sk-test",
		Dimensions:        256,
		BatchSize:         50,
		RequestsPerSecond: 2.5,
	}
	settings.VectorIndex.Backend = domain.VectorBackendPgvector
	settings.VectorIndex.DSN = "postgres://localhost/dedup"
	settings.Similarity.Threshold = 0.85
	settings.Similarity.SearchConcurrency = 8
	settings.Storage.DataDir = "/var/lib/dedup"

	require.NoError(t, svc.Save(&settings))

	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)
	assert.Equal(t, "sk-test", store.GetString("embedding.api_key"))
}

func TestSettingsService_Save_KeepsStoredAPIKey(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.api_key", "sk-existing")
	svc := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	require.NoError(t, svc.Save(&settings))
	assert.Equal(t, "sk-existing", store.GetString("embedding.api_key"))
}

func TestSettingsService_Get_InvalidEnumsFallBack(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "unknown")
	_ = store.Set("vector_index.backend", "faiss")
	svc := NewSettingsService(store, nil)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Empty(t, settings.Embedding.Provider)
	assert.Equal(t, domain.VectorBackendSQLite, settings.VectorIndex.Backend)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  domain.AIProvider
		model     string
		apiKey    string
		wantErr   bool
		wantModel string
		wantURL   string
	}{
		{name: "ollama default model", provider: domain.AIProviderOllama,
			wantModel: "nomic-embed-text", wantURL: "http://localhost:11434"},
		{name: "openai explicit model", provider: domain.AIProviderOpenAI, model: "text-embedding-3-large",
			apiKey: "sk-x", wantModel: "text-embedding-3-large"},
		{name: "openai without key", provider: domain.AIProviderOpenAI, wantErr: true},
		{name: "invalid provider", provider: "nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSettingsService(memory.NewConfigStore(), nil)

			err := svc.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			settings, err := svc.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
			assert.True(t, settings.Embedding.IsConfigured())
		})
	}
}

func TestSettingsService_SetChunking(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	cfg := domain.ChunkingConfig{MaxChunkSize: 400, Overlap: 40, MinChunkSize: 20, RespectParagraphs: true}
	require.NoError(t, svc.SetChunking(cfg))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, cfg, settings.Chunking)

	err = svc.SetChunking(domain.ChunkingConfig{MaxChunkSize: 100, Overlap: 100, MinChunkSize: 10})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSettingsService_SetVectorBackend(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Error(t, svc.SetVectorBackend("faiss", ""))
	assert.Error(t, svc.SetVectorBackend(domain.VectorBackendPgvector, ""))

	require.NoError(t, svc.SetVectorBackend(domain.VectorBackendPgvector, "postgres://db"))
	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.VectorBackendPgvector, settings.VectorIndex.Backend)
	assert.Equal(t, "postgres://db", settings.VectorIndex.DSN)
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		svc := NewSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, svc.Validate())
	})

	t.Run("bad chunking", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("chunking.max_chunk_size", 100)
		_ = store.Set("chunking.overlap", 150)
		svc := NewSettingsService(store, nil)
		assert.ErrorIs(t, svc.Validate(), domain.ErrValidation)
	})

	t.Run("bad threshold", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("similarity.threshold", 1.2)
		svc := NewSettingsService(store, nil)
		assert.ErrorIs(t, svc.Validate(), domain.ErrValidation)
	})

	t.Run("pgvector without dsn", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("vector_index.backend", "pgvector")
		svc := NewSettingsService(store, nil)
		assert.ErrorIs(t, svc.Validate(), domain.ErrValidation)
	})

	t.Run("openai without key", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("embedding.provider", "openai")
		svc := NewSettingsService(store, nil)
		assert.Error(t, svc.Validate())
	})
}

func TestSettingsService_ValidateEmbeddingConfig(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)
	assert.NoError(t, svc.ValidateEmbeddingConfig())

	validator := &mockAIValidator{err: errBoom}
	svc = NewSettingsService(memory.NewConfigStore(), validator)
	assert.ErrorIs(t, svc.ValidateEmbeddingConfig(), errBoom)
	assert.True(t, validator.called)
}

func TestSettingsService_GetPipelineConfig(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("chunking.max_chunk_size", 300)
	svc := NewSettingsService(store, nil)

	cfg := svc.GetPipelineConfig()
	assert.Equal(t, []string{"chunker"}, cfg.Processors)
	assert.Equal(t, 300, cfg.GetProcessorConfig("chunker")["max_chunk_size"])

	_ = store.Set("pipeline.processors", []string{"chunker", "custom"})
	cfg = svc.GetPipelineConfig()
	assert.Equal(t, []string{"chunker", "custom"}, cfg.Processors)
}

func TestSettingsService_GetDefaults(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), svc.GetDefaults())
}
