package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// SimilarityAggregator turns per-chunk nearest-neighbour hits into
// per-document scores.
type SimilarityAggregator struct {
	docStore driven.DocumentStore
}

// NewSimilarityAggregator creates an aggregator that reads chunk counts
// from docStore.
func NewSimilarityAggregator(docStore driven.DocumentStore) *SimilarityAggregator {
	return &SimilarityAggregator{docStore: docStore}
}

// Aggregate groups hits by document, scores each active document and
// returns those with FinalScore >= threshold, best first, at most
// maxCandidates. Hits on deleted or unknown documents are dropped.
//
// Every hit counts as a matched chunk, so a target chunk hit by several
// query chunks is counted several times. Coverage is clamped to 1.
func (a *SimilarityAggregator) Aggregate(
	ctx context.Context,
	hits []domain.ChunkHit,
	threshold float64,
	maxCandidates int,
) ([]domain.SimilarityCandidate, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	scores := make(map[string][]float64)
	for _, hit := range hits {
		scores[hit.DocumentID] = append(scores[hit.DocumentID], hit.Score)
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	candidates := make([]domain.SimilarityCandidate, 0, len(ids))
	for _, id := range ids {
		// The index can lag behind the store; only active documents compete.
		doc, err := a.docStore.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("%w: get document %s: %w", domain.ErrPersistence, id, err)
		}
		if !doc.IsActive() {
			continue
		}
		total, err := a.docStore.CountChunks(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: count chunks for %s: %w", domain.ErrPersistence, id, err)
		}
		c := Score(id, scores[id], len(scores[id]), total)
		c.Title = doc.Title
		if c.FinalScore >= threshold {
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FinalScore != candidates[j].FinalScore {
			return candidates[i].FinalScore > candidates[j].FinalScore
		}
		return candidates[i].DocumentID < candidates[j].DocumentID
	})
	if maxCandidates > 0 && len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	return candidates, nil
}

// Score computes a candidate from its hit scores.
//
//	avg      = mean(scores)            clamped to [0,1]
//	coverage = matched / max(total,1)  clamped to [0,1]
//	final    = avg * coverage          clamped to [0,1]
func Score(documentID string, scores []float64, matched, total int) domain.SimilarityCandidate {
	var sum float64
	for _, s := range scores {
		sum += s
	}
	avg := 0.0
	if len(scores) > 0 {
		avg = clamp01(sum / float64(len(scores)))
	}
	coverage := clamp01(float64(matched) / float64(max(total, 1)))

	return domain.SimilarityCandidate{
		DocumentID:    documentID,
		MatchedChunks: matched,
		TotalChunks:   total,
		AvgSimilarity: avg,
		Coverage:      coverage,
		FinalScore:    clamp01(avg * coverage),
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
