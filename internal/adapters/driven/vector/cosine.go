// Package vector holds helpers shared by the exhaustive-scan vector indexes.
package vector

import (
	"math"
	"sort"

	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// Cosine returns the cosine similarity of a and b clamped to [0, 1].
// Mismatched lengths and zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return Clamp(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Clamp bounds a similarity score to [0, 1].
func Clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

// TopK filters hits by opts and returns the best opts.Limit by descending
// score, ties broken by chunk ID.
func TopK(hits []driven.VectorHit, opts driven.SearchOptions) []driven.VectorHit {
	kept := hits[:0]
	for _, h := range hits {
		if h.Score < opts.MinScore || opts.Excludes(h.DocumentID) {
			continue
		}
		kept = append(kept, h)
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].ChunkID < kept[j].ChunkID
	})
	if opts.Limit > 0 && len(kept) > opts.Limit {
		kept = kept[:opts.Limit]
	}
	return kept
}
