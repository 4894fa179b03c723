package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/vector"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory implementation of driven.VectorIndex using
// brute-force cosine similarity.
type VectorIndex struct {
	mu      sync.RWMutex
	records map[string]driven.VectorRecord
}

// NewVectorIndex creates a new in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		records: make(map[string]driven.VectorRecord),
	}
}

// Upsert inserts or replaces the vector for a chunk.
func (v *VectorIndex) Upsert(_ context.Context, record driven.VectorRecord) error {
	vec := make([]float32, len(record.Vector))
	copy(vec, record.Vector)
	record.Vector = vec

	v.mu.Lock()
	defer v.mu.Unlock()
	v.records[record.ChunkID] = record
	return nil
}

// Search finds the nearest chunks to the query vector.
func (v *VectorIndex) Search(ctx context.Context, query []float32, opts driven.SearchOptions) ([]driven.VectorHit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(v.records))
	for _, rec := range v.records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:    rec.ChunkID,
			DocumentID: rec.DocumentID,
			Score:      vector.Cosine(query, rec.Vector),
		})
	}
	return vector.TopK(hits, opts), nil
}

// DeleteDocument removes every vector belonging to a document.
func (v *VectorIndex) DeleteDocument(_ context.Context, documentID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, rec := range v.records {
		if rec.DocumentID == documentID {
			delete(v.records, id)
		}
	}
	return nil
}

// Len returns the number of stored vectors.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records)
}

// Close is a no-op for the memory index.
func (v *VectorIndex) Close() error {
	return nil
}
