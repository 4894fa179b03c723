package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-dedup/internal/fingerprint"
	"github.com/custodia-labs/sercha-dedup/internal/logger"
)

// Ensure SimilarityService implements the interface.
var _ driving.SimilarityChecker = (*SimilarityService)(nil)

// defaultSearchTimeout bounds a single nearest-neighbour search.
const defaultSearchTimeout = 10 * time.Second

// SimilarityService decides whether content duplicates a stored document.
//
// States are visited in order, each at most once:
//
//	START -> CHECK_BINARY_HASH -> CHECK_TEXT_HASH -> CHECK_SEMANTIC -> DECISION
//
// with RESTORE entered from either hash check when a soft-deleted match is
// found and AutoRestore is set.
type SimilarityService struct {
	docStore    driven.DocumentStore
	extractors  driven.ExtractorRegistry
	pipeline    driven.PostProcessorPipeline
	vectorIndex driven.VectorIndex
	batcher     *EmbeddingBatcher
	aggregator  *SimilarityAggregator
	lifecycle   lifecycle

	embeddingCfg  domain.EmbeddingConfig
	searchTimeout time.Duration
}

// SimilarityOption configures a SimilarityService.
type SimilarityOption func(*SimilarityService)

// WithSearchTimeout bounds each per-chunk search.
func WithSearchTimeout(d time.Duration) SimilarityOption {
	return func(s *SimilarityService) {
		if d > 0 {
			s.searchTimeout = d
		}
	}
}

// WithBatcher replaces the embedding batcher, e.g. to change retry timing.
func WithBatcher(b *EmbeddingBatcher) SimilarityOption {
	return func(s *SimilarityService) {
		s.batcher = b
	}
}

// NewSimilarityService creates a similarity service.
// The embedding provider and vector index are optional - if either is nil,
// semantic checks are skipped with a warning.
func NewSimilarityService(
	docStore driven.DocumentStore,
	objects driven.ObjectStore,
	extractors driven.ExtractorRegistry,
	pipeline driven.PostProcessorPipeline,
	provider driven.EmbeddingProvider,
	vectorIndex driven.VectorIndex,
	embeddingCfg domain.EmbeddingConfig,
	opts ...SimilarityOption,
) *SimilarityService {
	s := &SimilarityService{
		docStore:      docStore,
		extractors:    extractors,
		pipeline:      pipeline,
		vectorIndex:   vectorIndex,
		aggregator:    NewSimilarityAggregator(docStore),
		lifecycle:     lifecycle{docStore: docStore, objects: objects, vectorIndex: vectorIndex},
		embeddingCfg:  embeddingCfg,
		searchTimeout: defaultSearchTimeout,
	}
	if provider != nil {
		s.batcher = NewEmbeddingBatcher(provider)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckSimilarity runs the duplicate checks for content.
//
// Extraction, embedding and per-chunk search failures are recorded as
// warnings on the result. Persistence failures and restore inconsistencies
// are returned as errors. If ctx is cancelled during the semantic check the
// hash-stage result is returned together with the error.
func (s *SimilarityService) CheckSimilarity(
	ctx context.Context,
	content []byte,
	originalName string,
	opts domain.CheckOptions,
) (*domain.CheckResult, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, domain.NewValidationError("content", "must not be empty")
	}

	res := &domain.CheckResult{Stages: []domain.CheckStage{domain.StageStart}}
	logger.Section("Similarity check: " + originalName)
	defer logger.Timed("similarity check")()

	// Binary hash
	res.Stages = append(res.Stages, domain.StageCheckBinaryHash)
	res.Fingerprint.FileHash = fingerprint.ContentHash(content)
	logger.Debug("content hash %s", res.Fingerprint.FileHash)

	match, err := findOptional(ctx, s.docStore.FindByContentHash, res.Fingerprint.FileHash)
	if err != nil {
		return nil, fmt.Errorf("find by content hash: %w", err)
	}
	if match != nil {
		return decide(res, domain.CheckExactMatch, match), nil
	}
	if opts.AutoRestore {
		deleted, err := findOptional(ctx, s.docStore.FindDeletedByContentHash, res.Fingerprint.FileHash)
		if err != nil {
			return nil, fmt.Errorf("find deleted by content hash: %w", err)
		}
		if deleted != nil {
			return s.restore(ctx, res, deleted)
		}
	}

	// Text extraction only affects the text hash and semantic stages.
	mimeType := s.extractors.DetectMIMEType(originalName, content)
	extracted, err := s.extractors.Extract(ctx, content, mimeType)
	if err != nil {
		warn(res, "text extraction failed (%s): %v", mimeType, err)
		return decide(res, domain.CheckNoMatch, nil), nil
	}
	if strings.TrimSpace(extracted.Content) == "" {
		warn(res, "no text extracted (%s)", mimeType)
		return decide(res, domain.CheckNoMatch, nil), nil
	}

	// Text hash
	res.Stages = append(res.Stages, domain.StageCheckTextHash)
	res.Fingerprint.TextHash = fingerprint.TextHash(extracted.Content)
	logger.Debug("text hash %s", res.Fingerprint.TextHash)

	match, err = findOptional(ctx, s.docStore.FindByTextHash, res.Fingerprint.TextHash)
	if err != nil {
		return nil, fmt.Errorf("find by text hash: %w", err)
	}
	if match != nil {
		return decide(res, domain.CheckTextHashMatch, match), nil
	}
	if opts.AutoRestore {
		deleted, err := findOptional(ctx, s.docStore.FindDeletedByTextHash, res.Fingerprint.TextHash)
		if err != nil {
			return nil, fmt.Errorf("find deleted by text hash: %w", err)
		}
		if deleted != nil {
			return s.restore(ctx, res, deleted)
		}
	}

	if opts.SkipEmbeddings {
		logger.Debug("semantic check skipped by caller")
		return decide(res, domain.CheckNoMatch, nil), nil
	}
	if s.batcher == nil {
		warn(res, "semantic check skipped: %v", domain.ErrEmbeddingUnavailable)
		return decide(res, domain.CheckNoMatch, nil), nil
	}
	if s.vectorIndex == nil {
		warn(res, "semantic check skipped: %v", domain.ErrVectorIndexUnavailable)
		return decide(res, domain.CheckNoMatch, nil), nil
	}

	// Semantic
	res.Stages = append(res.Stages, domain.StageCheckSemantic)
	candidates, err := s.semantic(ctx, res, extracted.Content, opts)
	if err != nil {
		if ctx.Err() != nil {
			decide(res, domain.CheckNoMatch, nil)
			return res, fmt.Errorf("semantic check: %w", err)
		}
		return nil, fmt.Errorf("semantic check: %w", err)
	}
	if len(candidates) == 0 {
		return decide(res, domain.CheckNoMatch, nil), nil
	}
	res.Candidates = candidates
	return decide(res, domain.CheckCandidates, nil), nil
}

// semantic chunks and embeds text, searches every chunk and aggregates
// the hits into candidates.
func (s *SimilarityService) semantic(
	ctx context.Context,
	res *domain.CheckResult,
	text string,
	opts domain.CheckOptions,
) ([]domain.SimilarityCandidate, error) {
	chunks, err := s.pipeline.Process(ctx, &domain.Document{Content: text})
	if err != nil {
		if errors.Is(err, domain.ErrNoText) || errors.Is(err, domain.ErrNoChunksProduced) {
			warn(res, "chunking produced nothing: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("chunk text: %w", err)
	}
	if len(chunks) == 0 {
		warn(res, "chunking produced nothing")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	batch, err := s.batcher.Embed(ctx, texts, s.embeddingCfg)
	if batch != nil {
		res.Embedding = batch.Summary()
	}
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if batch.FailedCount > 0 {
		warn(res, "%d of %d chunk embeddings failed", batch.FailedCount, batch.TotalEmbeddings)
	}

	hits, err := s.search(ctx, res, batch.Vectors, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("%d chunk hits from %d query chunks", len(hits), batch.SuccessfulCount)

	return s.aggregator.Aggregate(ctx, hits, opts.SimilarityThreshold, opts.MaxCandidates)
}

// search queries the vector index for every embedded chunk using a bounded
// worker pool. A failed search is recorded as a warning and contributes no
// hits.
func (s *SimilarityService) search(
	ctx context.Context,
	res *domain.CheckResult,
	vectors [][]float32,
	opts domain.CheckOptions,
) ([]domain.ChunkHit, error) {
	minScore := domain.RelaxedThreshold(opts.SimilarityThreshold)
	perChunk := make([][]domain.ChunkHit, len(vectors))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.SearchConcurrency)

	for i, vec := range vectors {
		if vec == nil {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, s.searchTimeout)
			defer cancel()

			found, err := s.vectorIndex.Search(sctx, vec, driven.SearchOptions{
				Limit:    opts.SearchLimit,
				MinScore: minScore,
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				mu.Lock()
				warn(res, "search chunk %d: %v", i, fmt.Errorf("%w: %w", domain.ErrIndex, err))
				mu.Unlock()
				return nil
			}

			hits := make([]domain.ChunkHit, 0, len(found))
			for _, h := range found {
				if h.Score < minScore {
					continue
				}
				hits = append(hits, domain.ChunkHit{
					QueryIndex: i,
					ChunkID:    h.ChunkID,
					DocumentID: h.DocumentID,
					Score:      h.Score,
				})
			}
			perChunk[i] = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var hits []domain.ChunkHit
	for _, h := range perChunk {
		hits = append(hits, h...)
	}
	return hits, nil
}

func (s *SimilarityService) restore(ctx context.Context, res *domain.CheckResult, doc *domain.Document) (*domain.CheckResult, error) {
	res.Stages = append(res.Stages, domain.StageRestore)
	restored, err := s.lifecycle.restore(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return decide(res, domain.CheckRestored, restored), nil
}

// findOptional calls a lookup and maps ErrNotFound to a nil document.
// Any other failure is a persistence error.
func findOptional(
	ctx context.Context,
	find func(context.Context, string) (*domain.Document, error),
	hash string,
) (*domain.Document, error) {
	doc, err := find(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return doc, nil
}

func decide(res *domain.CheckResult, status domain.CheckStatus, doc *domain.Document) *domain.CheckResult {
	res.Stages = append(res.Stages, domain.StageDecision)
	res.Status = status
	res.MatchedDocument = doc
	logger.Info("decision: %s", status)
	return res
}

func warn(res *domain.CheckResult, format string, args ...any) {
	res.Warnings = appendWarning(res.Warnings, format, args...)
}
