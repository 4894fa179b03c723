package domain

// Embedding batch limits.
const (
	DefaultEmbeddingBatchSize = 100
	MaxEmbeddingBatchSize     = 2048
)

// EmbeddingConfig selects the model and batching for an embedding run.
type EmbeddingConfig struct {
	// Model is the provider model name. Empty uses the provider default.
	Model string

	// Dimensions is the expected vector size. Zero uses the provider default.
	Dimensions int

	// BatchSize is the number of texts per provider call (max 2048).
	BatchSize int
}

// Validate checks the batch size bound.
func (c EmbeddingConfig) Validate() error {
	if c.BatchSize < 0 || c.BatchSize > MaxEmbeddingBatchSize {
		return NewValidationError("batch_size", "must be between 1 and 2048")
	}
	if c.Dimensions < 0 {
		return NewValidationError("dimensions", "must not be negative")
	}
	return nil
}

// EmbeddingError records a failure for one input text.
type EmbeddingError struct {
	Index int
	Err   error
}

// EmbeddingBatchResult is aligned index-for-index with the input texts.
// Vectors[i] is nil when text i failed.
type EmbeddingBatchResult struct {
	Vectors         [][]float32
	TotalEmbeddings int
	SuccessfulCount int
	FailedCount     int
	Errors          []EmbeddingError
}

// Summary returns the counts without the vectors.
func (r *EmbeddingBatchResult) Summary() *EmbeddingSummary {
	return &EmbeddingSummary{
		Total:      r.TotalEmbeddings,
		Successful: r.SuccessfulCount,
		Failed:     r.FailedCount,
	}
}
