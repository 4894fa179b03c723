// Package pgvector provides a VectorIndex backed by PostgreSQL with the
// pgvector extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/vector"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// Defaults applied by New.
const (
	DefaultTable      = "chunk_embeddings"
	DefaultDimensions = 768
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Config configures the index.
type Config struct {
	// DSN is a PostgreSQL connection string.
	DSN string

	// Table holds one row per chunk vector.
	Table string

	// Dimensions is the column width of the vector type.
	Dimensions int
}

// Index implements driven.VectorIndex on a pgxpool connection pool.
type Index struct {
	pool       *pgxpool.Pool
	table      string
	dimensions int
}

var _ driven.VectorIndex = (*Index)(nil)

// New connects to PostgreSQL and creates the table and its HNSW index
// when they do not exist.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.DSN == "" {
		return nil, errors.New("pgvector: DSN is required")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !tableNamePattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("pgvector: invalid table name %q", cfg.Table)
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgvector: connecting: %w", err)
	}

	idx := &Index{
		pool:       pool,
		table:      pgx.Identifier{cfg.Table}.Sanitize(),
		dimensions: cfg.Dimensions,
	}
	if err := idx.initialise(ctx, cfg.Table); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) initialise(ctx context.Context, rawTable string) error {
	if _, err := i.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: creating extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chunk_id    TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			embedding   vector(%d) NOT NULL
		)`, i.table, i.dimensions)
	if _, err := i.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("pgvector: creating table: %w", err)
	}

	createDocIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (document_id)`,
		pgx.Identifier{rawTable + "_document_idx"}.Sanitize(), i.table)
	if _, err := i.pool.Exec(ctx, createDocIndex); err != nil {
		return fmt.Errorf("pgvector: creating document index: %w", err)
	}

	createVecIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
		pgx.Identifier{rawTable + "_embedding_idx"}.Sanitize(), i.table)
	if _, err := i.pool.Exec(ctx, createVecIndex); err != nil {
		return fmt.Errorf("pgvector: creating vector index: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the vector for a chunk.
func (i *Index) Upsert(ctx context.Context, record driven.VectorRecord) error {
	if len(record.Vector) != i.dimensions {
		return fmt.Errorf("pgvector: vector for %s has %d dimensions, index expects %d",
			record.ChunkID, len(record.Vector), i.dimensions)
	}
	stmt := fmt.Sprintf(`
		INSERT INTO %s (chunk_id, document_id, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			embedding = EXCLUDED.embedding`, i.table)
	if _, err := i.pool.Exec(ctx, stmt, record.ChunkID, record.DocumentID, pgv.NewVector(record.Vector)); err != nil {
		return fmt.Errorf("pgvector: upserting %s: %w", record.ChunkID, err)
	}
	return nil
}

// Search orders by cosine distance and converts distance to a similarity
// in [0, 1].
func (i *Index) Search(ctx context.Context, query []float32, opts driven.SearchOptions) ([]driven.VectorHit, error) {
	if len(query) != i.dimensions {
		return nil, fmt.Errorf("pgvector: query has %d dimensions, index expects %d", len(query), i.dimensions)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	excluded := opts.ExcludeIDs
	if excluded == nil {
		excluded = []string{}
	}

	stmt := fmt.Sprintf(`
		SELECT chunk_id, document_id, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE NOT (document_id = ANY($2))
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1, chunk_id
		LIMIT $4`, i.table)

	rows, err := i.pool.Query(ctx, stmt, pgv.NewVector(query), excluded, opts.MinScore, limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector: searching: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var hit driven.VectorHit
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &hit.Score); err != nil {
			return nil, fmt.Errorf("pgvector: scanning hit: %w", err)
		}
		hit.Score = vector.Clamp(hit.Score)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: iterating hits: %w", err)
	}
	return hits, nil
}

// DeleteDocument removes every vector belonging to a document.
func (i *Index) DeleteDocument(ctx context.Context, documentID string) error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, i.table)
	if _, err := i.pool.Exec(ctx, stmt, documentID); err != nil {
		return fmt.Errorf("pgvector: deleting %s: %w", documentID, err)
	}
	return nil
}

// Close releases the connection pool.
func (i *Index) Close() error {
	if i.pool != nil {
		i.pool.Close()
	}
	return nil
}
