package sqlite

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/vector"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex by scanning every stored
// vector. It suits local corpora of up to a few hundred thousand chunks;
// larger deployments should use the pgvector backend.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Upsert inserts or replaces the vector for a chunk.
func (v *vectorIndex) Upsert(ctx context.Context, record driven.VectorRecord) error {
	if len(record.Vector) == 0 {
		return fmt.Errorf("upserting vector %s: empty vector", record.ChunkID)
	}
	_, err := v.store.db.ExecContext(ctx, `
		INSERT INTO chunk_vectors (chunk_id, document_id, dimensions, vector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			document_id = excluded.document_id,
			dimensions = excluded.dimensions,
			vector = excluded.vector
	`, record.ChunkID, record.DocumentID, len(record.Vector), float32SliceToBytes(record.Vector))
	if err != nil {
		return fmt.Errorf("upserting vector: %w", err)
	}
	return nil
}

// Search scores every vector of the query's dimension and returns the
// best matches.
func (v *vectorIndex) Search(ctx context.Context, query []float32, opts driven.SearchOptions) ([]driven.VectorHit, error) {
	rows, err := v.store.db.QueryContext(ctx, `
		SELECT chunk_id, document_id, vector FROM chunk_vectors WHERE dimensions = ?
	`, len(query))
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var hit driven.VectorHit
		var blob []byte
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		hit.Score = vector.Cosine(query, bytesToFloat32Slice(blob))
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	return vector.TopK(hits, opts), nil
}

// DeleteDocument removes every vector belonging to a document.
func (v *vectorIndex) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := v.store.db.ExecContext(ctx, "DELETE FROM chunk_vectors WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	return nil
}

// Close is a no-op; the Store owns the connection.
func (v *vectorIndex) Close() error {
	return nil
}
