package domain

import "time"

// ChunkType records which splitting strategy produced a chunk.
type ChunkType string

const (
	// ChunkParagraph is a whole paragraph that fit within the size limit.
	ChunkParagraph ChunkType = "paragraph"

	// ChunkSentenceGroup is a run of consecutive sentences.
	ChunkSentenceGroup ChunkType = "sentence_group"

	// ChunkWordGroup is a run of whitespace-separated words, used when a
	// paragraph or sentence cannot be split on sentence boundaries.
	ChunkWordGroup ChunkType = "word_group"
)

// String returns the string representation.
func (t ChunkType) String() string {
	return string(t)
}

// Chunk represents a bounded span of a document's text.
// It is the unit of embedding and retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk, including any overlap
	// prefix carried over from the previous chunk.
	Content string

	// Index is the ordinal position within the document.
	Index int

	// Type is the splitting strategy that produced the chunk.
	Type ChunkType

	// Embedding is the vector representation, when one was produced.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the chunk was produced.
	CreatedAt time.Time
}

// Default chunking values.
const (
	DefaultMaxChunkSize = 1000
	DefaultChunkOverlap = 200
	DefaultMinChunkSize = 50
)

// ChunkingConfig controls how text is split into chunks.
// Sizes are measured in characters.
type ChunkingConfig struct {
	// MaxChunkSize is the upper bound for a chunk before overlap is added.
	MaxChunkSize int

	// Overlap is the approximate character budget carried from one chunk
	// into the next. It is converted to a word count (Overlap/10).
	Overlap int

	// MinChunkSize drops paragraphs shorter than this.
	MinChunkSize int

	// RespectParagraphs splits on blank lines before anything else.
	RespectParagraphs bool

	// RespectSentences packs whole sentences before falling back to words.
	RespectSentences bool
}

// DefaultChunkingConfig returns the chunking defaults.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		MaxChunkSize:      DefaultMaxChunkSize,
		Overlap:           DefaultChunkOverlap,
		MinChunkSize:      DefaultMinChunkSize,
		RespectParagraphs: true,
		RespectSentences:  true,
	}
}

// Validate checks the size relationships between fields.
func (c ChunkingConfig) Validate() error {
	if c.MaxChunkSize <= 0 {
		return NewValidationError("max_chunk_size", "must be greater than zero")
	}
	if c.Overlap < 0 {
		return NewValidationError("overlap", "must not be negative")
	}
	if c.Overlap >= c.MaxChunkSize {
		return NewValidationError("overlap", "must be smaller than max_chunk_size")
	}
	if c.MinChunkSize <= 0 {
		return NewValidationError("min_chunk_size", "must be greater than zero")
	}
	if c.MinChunkSize > c.MaxChunkSize {
		return NewValidationError("min_chunk_size", "must not exceed max_chunk_size")
	}
	return nil
}

// ChunkStats summarises a chunking run. Sizes are measured over the final
// chunk contents; ActualOverlapPercentage is derived from the config.
type ChunkStats struct {
	AverageChunkSize        float64
	MinChunkSize            int
	MaxChunkSize            int
	ActualOverlapPercentage float64
}
