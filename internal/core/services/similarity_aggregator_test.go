package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

// seedDocument stores an active document with n chunks.
func seedDocument(t *testing.T, store *memory.DocumentStore, id, title string, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &domain.Document{
		ID:          id,
		Title:       title,
		ContentHash: "hash-" + id,
		Status:      domain.StatusActive,
		CreatedAt:   time.Now(),
	}))
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{ID: fmt.Sprintf("%s-c%d", id, i), DocumentID: id, Index: i, Content: "chunk"}
	}
	require.NoError(t, store.ReplaceChunks(ctx, id, chunks))
}

func hitsFor(documentID string, n int, score float64) []domain.ChunkHit {
	hits := make([]domain.ChunkHit, n)
	for i := range hits {
		hits[i] = domain.ChunkHit{
			QueryIndex: i,
			ChunkID:    fmt.Sprintf("%s-c%d", documentID, i),
			DocumentID: documentID,
			Score:      score,
		}
	}
	return hits
}

func TestScore(t *testing.T) {
	tests := []struct {
		name             string
		scores           []float64
		matched, total   int
		wantAvg, wantCov float64
		wantFinal        float64
	}{
		{"partial coverage", []float64{0.9, 0.9, 0.9}, 3, 10, 0.9, 0.3, 0.27},
		{"high coverage", []float64{0.8, 0.8, 0.8, 0.8, 0.8, 0.8, 0.8, 0.8, 0.8}, 9, 10, 0.8, 0.9, 0.72},
		{"coverage clamped", []float64{1, 1, 1}, 3, 2, 1, 1, 1},
		{"zero total", []float64{0.5}, 1, 0, 0.5, 1, 0.5},
		{"scores clamped", []float64{1.5, 1.5}, 2, 2, 1, 1, 1},
		{"no scores", nil, 0, 5, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Score("doc", tt.scores, tt.matched, tt.total)
			assert.InDelta(t, tt.wantAvg, c.AvgSimilarity, 1e-9)
			assert.InDelta(t, tt.wantCov, c.Coverage, 1e-9)
			assert.InDelta(t, tt.wantFinal, c.FinalScore, 1e-9)
			assert.LessOrEqual(t, c.FinalScore, c.AvgSimilarity)
			assert.GreaterOrEqual(t, c.Coverage, 0.0)
			assert.LessOrEqual(t, c.Coverage, 1.0)
		})
	}
}

func TestSimilarityAggregator_ThresholdAndRanking(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocument(t, store, "doc-a", "Partial", 10)
	seedDocument(t, store, "doc-b", "Mostly", 10)
	agg := NewSimilarityAggregator(store)

	hits := append(hitsFor("doc-a", 3, 0.9), hitsFor("doc-b", 9, 0.8)...)
	candidates, err := agg.Aggregate(context.Background(), hits, 0.7, 10)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "doc-b", candidates[0].DocumentID)
	assert.Equal(t, "Mostly", candidates[0].Title)
	assert.InDelta(t, 0.72, candidates[0].FinalScore, 1e-9)
	assert.Equal(t, 9, candidates[0].MatchedChunks)
	assert.Equal(t, 10, candidates[0].TotalChunks)
}

func TestSimilarityAggregator_SortsAndTruncates(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocument(t, store, "doc-a", "A", 2)
	seedDocument(t, store, "doc-b", "B", 2)
	seedDocument(t, store, "doc-c", "C", 2)
	agg := NewSimilarityAggregator(store)

	var hits []domain.ChunkHit
	hits = append(hits, hitsFor("doc-c", 2, 0.8)...)
	hits = append(hits, hitsFor("doc-a", 2, 0.9)...)
	hits = append(hits, hitsFor("doc-b", 2, 0.9)...)

	candidates, err := agg.Aggregate(context.Background(), hits, 0.5, 2)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	// Equal scores break ties by document ID.
	assert.Equal(t, "doc-a", candidates[0].DocumentID)
	assert.Equal(t, "doc-b", candidates[1].DocumentID)
}

func TestSimilarityAggregator_CountsRepeatedHits(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocument(t, store, "doc-a", "A", 4)
	agg := NewSimilarityAggregator(store)

	// Two query chunks hit the same target chunk.
	hits := []domain.ChunkHit{
		{QueryIndex: 0, ChunkID: "doc-a-c0", DocumentID: "doc-a", Score: 0.9},
		{QueryIndex: 1, ChunkID: "doc-a-c0", DocumentID: "doc-a", Score: 0.9},
	}
	candidates, err := agg.Aggregate(context.Background(), hits, 0.1, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 2, candidates[0].MatchedChunks)
	assert.InDelta(t, 0.5, candidates[0].Coverage, 1e-9)
}

func TestSimilarityAggregator_DropsUnknownDocuments(t *testing.T) {
	store := memory.NewDocumentStore()
	agg := NewSimilarityAggregator(store)

	candidates, err := agg.Aggregate(context.Background(), hitsFor("ghost", 1, 0.9), 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSimilarityAggregator_DropsDeletedDocuments(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocument(t, store, "doc-a", "Live", 2)
	seedDocument(t, store, "doc-b", "Gone", 2)
	require.NoError(t, store.SetStatus(context.Background(), "doc-b", domain.StatusDeleted))
	agg := NewSimilarityAggregator(store)

	// Vectors of doc-b are still in the index and score perfectly.
	hits := append(hitsFor("doc-b", 2, 1.0), hitsFor("doc-a", 2, 0.8)...)
	candidates, err := agg.Aggregate(context.Background(), hits, 0.1, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "doc-a", candidates[0].DocumentID)
	assert.Equal(t, "Live", candidates[0].Title)
}

func TestSimilarityAggregator_CountChunksFailure(t *testing.T) {
	inner := memory.NewDocumentStore()
	seedDocument(t, inner, "doc-a", "A", 1)
	store := &failingDocStore{DocumentStore: inner, countErr: errBoom}
	agg := NewSimilarityAggregator(store)

	_, err := agg.Aggregate(context.Background(), hitsFor("doc-a", 1, 0.9), 0.5, 10)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, errBoom)
}

func TestSimilarityAggregator_NoHits(t *testing.T) {
	agg := NewSimilarityAggregator(memory.NewDocumentStore())
	candidates, err := agg.Aggregate(context.Background(), nil, 0.7, 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
