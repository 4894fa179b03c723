package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dedup/internal/postprocessors"
	"github.com/custodia-labs/sercha-dedup/internal/postprocessors/chunker"
)

// keywordDims is the vector size produced by mockEmbedder.
const keywordDims = 4

// keywordVector maps a text to a unit vector chosen by its first word, so
// tests can control which chunks are similar.
func keywordVector(text string) []float32 {
	vec := make([]float32, keywordDims)
	first := strings.ToLower(strings.Fields(text + " x")[0])
	switch {
	case strings.HasPrefix(first, "alpha"):
		vec[0] = 1
	case strings.HasPrefix(first, "beta"):
		vec[1] = 1
	case strings.HasPrefix(first, "gamma"):
		vec[2] = 1
	default:
		vec[3] = 1
	}
	return vec
}

type mockEmbedder struct {
	mu       sync.Mutex
	batches  [][]string
	errs     []error
	maxChars int
	embed    func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string, _ domain.EmbeddingConfig) ([][]float32, error) {
	m.mu.Lock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	var err error
	if len(m.errs) > 0 {
		err, m.errs = m.errs[0], m.errs[1:]
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if m.embed != nil {
		return m.embed(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = keywordVector(t)
	}
	return vectors, nil
}

func (m *mockEmbedder) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func (m *mockEmbedder) Dimensions() int { return keywordDims }
func (m *mockEmbedder) ModelName() string { return "mock" }
func (m *mockEmbedder) MaxInputChars() int { return m.maxChars }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error { return nil }

// stubExtractors treats every input as plain text unless err is set.
type stubExtractors struct {
	err error
}

func (s *stubExtractors) Extract(_ context.Context, content []byte, _ string) (*domain.ExtractedText, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ExtractedText{Content: string(content), PageCount: 1}, nil
}

func (s *stubExtractors) DetectMIMEType(string, []byte) string { return "text/plain" }
func (s *stubExtractors) Register(driven.TextExtractor) {}
func (s *stubExtractors) SupportedMIMETypes() []string { return []string{"text/plain"} }

// failingIndex wraps a memory index and fails every search.
type failingIndex struct {
	*memory.VectorIndex
	err error
}

func (f *failingIndex) Search(context.Context, []float32, driven.SearchOptions) ([]driven.VectorHit, error) {
	return nil, f.err
}

// flakyIndex wraps a memory index and fails upserts or deletes while the
// matching error is set.
type flakyIndex struct {
	*memory.VectorIndex
	upsertErr error
	deleteErr error
}

func (f *flakyIndex) Upsert(ctx context.Context, record driven.VectorRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.VectorIndex.Upsert(ctx, record)
}

func (f *flakyIndex) DeleteDocument(ctx context.Context, documentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.VectorIndex.DeleteDocument(ctx, documentID)
}

// flakyObjects wraps a memory object store, records written keys and fails
// moves while the matching error is set.
type flakyObjects struct {
	*memory.ObjectStore
	keys           []string
	toDeletedErr   error
	fromDeletedErr error
}

func (f *flakyObjects) Put(ctx context.Context, key string, content []byte) error {
	f.keys = append(f.keys, key)
	return f.ObjectStore.Put(ctx, key, content)
}

func (f *flakyObjects) MoveToDeleted(ctx context.Context, key string) error {
	if f.toDeletedErr != nil {
		return f.toDeletedErr
	}
	return f.ObjectStore.MoveToDeleted(ctx, key)
}

func (f *flakyObjects) MoveFromDeleted(ctx context.Context, key string) error {
	if f.fromDeletedErr != nil {
		return f.fromDeletedErr
	}
	return f.ObjectStore.MoveFromDeleted(ctx, key)
}

// failingDocStore wraps a memory store and fails the selected calls.
type failingDocStore struct {
	*memory.DocumentStore
	countErr  error
	hashErr   error
	statusErr error
	chunksErr error
}

func (f *failingDocStore) SetStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	return f.DocumentStore.SetStatus(ctx, id, status)
}

func (f *failingDocStore) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	if f.chunksErr != nil {
		return f.chunksErr
	}
	return f.DocumentStore.ReplaceChunks(ctx, documentID, chunks)
}

func (f *failingDocStore) CountChunks(ctx context.Context, id string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.DocumentStore.CountChunks(ctx, id)
}

func (f *failingDocStore) FindByContentHash(ctx context.Context, hash string) (*domain.Document, error) {
	if f.hashErr != nil {
		return nil, f.hashErr
	}
	return f.DocumentStore.FindByContentHash(ctx, hash)
}

var errBoom = errors.New("boom")

// testPipeline chunks each paragraph of at least 5 characters into its own
// chunk with no overlap.
func testPipeline() *postprocessors.Pipeline {
	return postprocessors.NewPipeline(chunker.New(
		chunker.WithMaxChunkSize(200),
		chunker.WithOverlap(0),
		chunker.WithMinChunkSize(5),
	))
}

type fixture struct {
	docs     *memory.DocumentStore
	objects  *memory.ObjectStore
	index    *memory.VectorIndex
	embedder *mockEmbedder
	docSvc   *DocumentService
	simSvc   *SimilarityService
}

func newFixture() *fixture {
	f := &fixture{
		docs:     memory.NewDocumentStore(),
		objects:  memory.NewObjectStore(),
		index:    memory.NewVectorIndex(),
		embedder: &mockEmbedder{},
	}
	extractors := &stubExtractors{}
	cfg := domain.EmbeddingConfig{BatchSize: 10}
	f.docSvc = NewDocumentService(f.docs, f.objects, extractors, testPipeline(), f.embedder, f.index, cfg,
		WithRetry(1, 0))
	f.simSvc = NewSimilarityService(f.docs, f.objects, extractors, testPipeline(), f.embedder, f.index, cfg,
		WithBatcher(NewEmbeddingBatcher(f.embedder, WithRetry(1, 0))))
	return f
}
