package driven

import "context"

// VectorIndex provides semantic similarity search over chunk embeddings.
type VectorIndex interface {
	// Upsert inserts or replaces the vector for a chunk.
	Upsert(ctx context.Context, record VectorRecord) error

	// Search finds the nearest chunks to the query vector.
	// Hits are ordered by descending score and all have Score >= opts.MinScore.
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]VectorHit, error)

	// DeleteDocument removes every vector belonging to a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// Close releases resources.
	Close() error
}

// VectorRecord is one stored chunk embedding.
type VectorRecord struct {
	ChunkID    string
	DocumentID string
	Vector     []float32
}

// SearchOptions bounds a nearest-neighbour search.
type SearchOptions struct {
	// Limit is the maximum number of hits.
	Limit int

	// MinScore drops hits scoring below it.
	MinScore float64

	// ExcludeIDs lists document IDs to leave out of the results.
	ExcludeIDs []string
}

// Excludes reports whether documentID is excluded.
func (o SearchOptions) Excludes(documentID string) bool {
	for _, id := range o.ExcludeIDs {
		if id == documentID {
			return true
		}
	}
	return false
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID is the matched chunk's document.
	DocumentID string

	// Score is the cosine similarity clamped to [0, 1].
	Score float64
}
