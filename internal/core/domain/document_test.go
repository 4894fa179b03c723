package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentStatus(t *testing.T) {
	assert.True(t, StatusActive.IsValid())
	assert.True(t, StatusDeleted.IsValid())
	assert.False(t, DocumentStatus("archived").IsValid())
	assert.False(t, DocumentStatus("").IsValid())
	assert.Equal(t, "active", StatusActive.String())
}

func TestDocument_Fingerprint(t *testing.T) {
	doc := &Document{ContentHash: "abc", TextHash: "def"}
	assert.Equal(t, DocumentFingerprint{FileHash: "abc", TextHash: "def"}, doc.Fingerprint())
}

func TestDocument_IsActive(t *testing.T) {
	assert.True(t, (&Document{Status: StatusActive}).IsActive())
	assert.False(t, (&Document{Status: StatusDeleted}).IsActive())
	assert.False(t, (&Document{}).IsActive())
}

// TestDocument_JSON checks that extracted text stays out of serialised output
func TestDocument_JSON(t *testing.T) {
	deleted := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := Document{
		ID:           "doc-1",
		Title:        "Report",
		OriginalName: "report.txt",
		MIMEType:     "text/plain",
		Size:         42,
		ContentHash:  "abc",
		Status:       StatusDeleted,
		StorageKey:   "doc-1/report.txt",
		Content:      "secret body text",
		DeletedAt:    &deleted,
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "doc-1", fields["id"])
	assert.Equal(t, "deleted", fields["status"])
	assert.Equal(t, "report.txt", fields["original_name"])
	assert.NotContains(t, fields, "content")
	assert.NotContains(t, fields, "text_hash")
	assert.Contains(t, fields, "deleted_at")
	assert.NotContains(t, string(data), "secret body text")
}

func TestChunkType_String(t *testing.T) {
	assert.Equal(t, "paragraph", ChunkParagraph.String())
	assert.Equal(t, "sentence_group", ChunkSentenceGroup.String())
	assert.Equal(t, "word_group", ChunkWordGroup.String())
}

func TestDefaultChunkingConfig(t *testing.T) {
	cfg := DefaultChunkingConfig()

	assert.Equal(t, 1000, cfg.MaxChunkSize)
	assert.Equal(t, 200, cfg.Overlap)
	assert.Equal(t, 50, cfg.MinChunkSize)
	assert.True(t, cfg.RespectParagraphs)
	assert.True(t, cfg.RespectSentences)
	assert.NoError(t, cfg.Validate())
}

func TestChunkingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*ChunkingConfig)
		field   string
		wantErr bool
	}{
		{name: "defaults", modify: func(*ChunkingConfig) {}},
		{name: "zero overlap", modify: func(c *ChunkingConfig) { c.Overlap = 0 }},
		{name: "min equals max", modify: func(c *ChunkingConfig) { c.MinChunkSize = c.MaxChunkSize }},
		{name: "zero max", modify: func(c *ChunkingConfig) { c.MaxChunkSize = 0 }, field: "max_chunk_size", wantErr: true},
		{name: "negative overlap", modify: func(c *ChunkingConfig) { c.Overlap = -1 }, field: "overlap", wantErr: true},
		{name: "overlap equals max", modify: func(c *ChunkingConfig) { c.Overlap = c.MaxChunkSize }, field: "overlap", wantErr: true},
		{name: "zero min", modify: func(c *ChunkingConfig) { c.MinChunkSize = 0 }, field: "min_chunk_size", wantErr: true},
		{name: "min above max", modify: func(c *ChunkingConfig) {
			c.MaxChunkSize = 300
			c.Overlap = 10
			c.MinChunkSize = 301
		}, field: "min_chunk_size", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultChunkingConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestEmbeddingConfig_Validate(t *testing.T) {
	assert.NoError(t, EmbeddingConfig{}.Validate())
	assert.NoError(t, EmbeddingConfig{BatchSize: MaxEmbeddingBatchSize}.Validate())
	assert.ErrorIs(t, EmbeddingConfig{BatchSize: MaxEmbeddingBatchSize + 1}.Validate(), ErrValidation)
	assert.ErrorIs(t, EmbeddingConfig{BatchSize: -1}.Validate(), ErrValidation)
	assert.ErrorIs(t, EmbeddingConfig{Dimensions: -1}.Validate(), ErrValidation)
}

func TestEmbeddingBatchResult_Summary(t *testing.T) {
	result := &EmbeddingBatchResult{TotalEmbeddings: 5, SuccessfulCount: 3, FailedCount: 2}
	assert.Equal(t, &EmbeddingSummary{Total: 5, Successful: 3, Failed: 2}, result.Summary())
}
