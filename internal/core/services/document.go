package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-dedup/internal/fingerprint"
	"github.com/custodia-labs/sercha-dedup/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages the document lifecycle: ingest, reprocess,
// soft delete and restore.
type DocumentService struct {
	docStore     driven.DocumentStore
	objects      driven.ObjectStore
	extractors   driven.ExtractorRegistry
	pipeline     driven.PostProcessorPipeline
	vectorIndex  driven.VectorIndex
	batcher      *EmbeddingBatcher
	embeddingCfg domain.EmbeddingConfig
	lifecycle    lifecycle
}

// NewDocumentService creates a new document service.
// The embedding provider and vector index are optional - if either is nil,
// chunks are stored without embeddings.
func NewDocumentService(
	docStore driven.DocumentStore,
	objects driven.ObjectStore,
	extractors driven.ExtractorRegistry,
	pipeline driven.PostProcessorPipeline,
	provider driven.EmbeddingProvider,
	vectorIndex driven.VectorIndex,
	embeddingCfg domain.EmbeddingConfig,
	batcherOpts ...BatcherOption,
) *DocumentService {
	s := &DocumentService{
		docStore:     docStore,
		objects:      objects,
		extractors:   extractors,
		pipeline:     pipeline,
		vectorIndex:  vectorIndex,
		embeddingCfg: embeddingCfg,
		lifecycle:    lifecycle{docStore: docStore, objects: objects, vectorIndex: vectorIndex},
	}
	if provider != nil {
		s.batcher = NewEmbeddingBatcher(provider, batcherOpts...)
	}
	return s
}

// Ingest stores content as a new active document, chunks it and indexes
// its embeddings. Fingerprints are computed here and never change after.
//
// Extraction failures and individual chunk embedding failures are returned
// as warnings; the document is still stored so that its content hash takes
// part in later checks. Any error returned means nothing was kept: the
// object, the document row and its vectors are removed again.
func (s *DocumentService) Ingest(
	ctx context.Context,
	content []byte,
	originalName string,
	opts driving.IngestOptions,
) (*driving.IngestResult, error) {
	if len(content) == 0 {
		return nil, domain.NewValidationError("content", "must not be empty")
	}
	logger.Section("Ingest: " + originalName)
	defer logger.Timed("ingest")()

	result := &driving.IngestResult{}
	mimeType := s.extractors.DetectMIMEType(originalName, content)
	extracted, err := s.extractors.Extract(ctx, content, mimeType)
	if err != nil {
		result.Warnings = appendWarning(result.Warnings, "text extraction failed (%s): %v", mimeType, err)
		extracted = &domain.ExtractedText{}
	}

	fp := fingerprint.Fingerprint(content, extracted.Content)
	now := time.Now()
	id := uuid.New().String()
	doc := &domain.Document{
		ID:           id,
		Title:        documentTitle(extracted.Title, originalName),
		OriginalName: originalName,
		MIMEType:     mimeType,
		Size:         int64(len(content)),
		ContentHash:  fp.FileHash,
		TextHash:     fp.TextHash,
		Status:       domain.StatusActive,
		StorageKey:   objectKey(id, originalName),
		Content:      extracted.Content,
		PageCount:    extracted.PageCount,
		Author:       extracted.Author,
		Language:     extracted.Language,
		Metadata:     map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.objects.Put(ctx, doc.StorageKey, content); err != nil {
		return nil, fmt.Errorf("%w: store object: %w", domain.ErrPersistence, err)
	}
	if err := s.docStore.Save(ctx, doc); err != nil {
		s.discard(ctx, doc)
		return nil, fmt.Errorf("%w: save document: %w", domain.ErrPersistence, err)
	}
	result.Document = doc
	logger.Info("stored document %s (%s, %d bytes)", doc.ID, mimeType, doc.Size)

	if strings.TrimSpace(doc.Content) == "" {
		result.Warnings = appendWarning(result.Warnings, "no text to chunk")
		return result, nil
	}
	if _, err := s.index(ctx, doc, result, opts.SkipEmbeddings); err != nil {
		s.discard(ctx, doc)
		return nil, err
	}
	return result, nil
}

// discard removes everything a failed ingest wrote, so a retry of the same
// bytes is not matched against a half-built document.
func (s *DocumentService) discard(ctx context.Context, doc *domain.Document) {
	ctx = context.WithoutCancel(ctx)
	if s.vectorIndex != nil {
		if err := s.vectorIndex.DeleteDocument(ctx, doc.ID); err != nil {
			logger.Error("discard document %s: delete vectors: %v", doc.ID, err)
		}
	}
	if err := s.docStore.Delete(ctx, doc.ID); err != nil {
		logger.Error("discard document %s: delete row: %v", doc.ID, err)
	}
	if err := s.objects.Delete(ctx, doc.StorageKey); err != nil {
		logger.Error("discard document %s: delete object: %v", doc.ID, err)
	}
	logger.Warn("ingest of %s failed; document %s discarded", doc.OriginalName, doc.ID)
}

// Reprocess re-extracts and re-chunks a stored document with the current
// configuration. Prior chunks and vectors are replaced, not merged.
func (s *DocumentService) Reprocess(ctx context.Context, documentID string) (*driving.IngestResult, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsActive() {
		return nil, domain.NewValidationError("document", "deleted documents cannot be reprocessed")
	}
	logger.Section("Reprocess: " + doc.ID)

	content, err := s.objects.Read(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: read object: %w", domain.ErrPersistence, err)
	}

	result := &driving.IngestResult{Document: doc}
	extracted, err := s.extractors.Extract(ctx, content, doc.MIMEType)
	if err != nil {
		result.Warnings = appendWarning(result.Warnings, "text extraction failed (%s): %v", doc.MIMEType, err)
		return result, nil
	}

	doc.Content = extracted.Content
	doc.PageCount = extracted.PageCount
	doc.UpdatedAt = time.Now()
	if err := s.docStore.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("%w: save document: %w", domain.ErrPersistence, err)
	}

	return s.index(ctx, doc, result, false)
}

// index chunks the document, embeds the chunks and replaces the stored
// chunks and vectors.
func (s *DocumentService) index(
	ctx context.Context,
	doc *domain.Document,
	result *driving.IngestResult,
	skipEmbeddings bool,
) (*driving.IngestResult, error) {
	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		if !errors.Is(err, domain.ErrNoText) && !errors.Is(err, domain.ErrNoChunksProduced) {
			return nil, fmt.Errorf("chunk document: %w", err)
		}
		result.Warnings = appendWarning(result.Warnings, "chunking produced nothing: %v", err)
		chunks = nil
	}

	semantic := !skipEmbeddings && s.batcher != nil && s.vectorIndex != nil
	if semantic && len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		batch, err := s.batcher.Embed(ctx, texts, s.embeddingCfg)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		for i, vec := range batch.Vectors {
			chunks[i].Embedding = vec
		}
		result.Embedding = batch.Summary()
		if batch.FailedCount > 0 {
			result.Warnings = appendWarning(result.Warnings, "%d of %d chunk embeddings failed",
				batch.FailedCount, batch.TotalEmbeddings)
		}
	}

	if err := s.docStore.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return nil, fmt.Errorf("%w: replace chunks: %w", domain.ErrPersistence, err)
	}
	if s.vectorIndex != nil {
		if err := s.vectorIndex.DeleteDocument(ctx, doc.ID); err != nil {
			return nil, fmt.Errorf("%w: delete vectors: %w", domain.ErrIndex, err)
		}
		if err := upsertEmbeddings(ctx, s.vectorIndex, chunks); err != nil {
			return nil, err
		}
	}

	result.ChunkCount = len(chunks)
	logger.Info("document %s: %d chunks", doc.ID, len(chunks))
	return result, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.docStore.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("document %s: %w", documentID, err)
		}
		return nil, fmt.Errorf("%w: get document: %w", domain.ErrPersistence, err)
	}
	return doc, nil
}

// Chunks returns a document's chunks in index order.
func (s *DocumentService) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.Get(ctx, documentID); err != nil {
		return nil, err
	}
	chunks, err := s.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: get chunks: %w", domain.ErrPersistence, err)
	}
	return chunks, nil
}

// List returns documents with the given status.
func (s *DocumentService) List(ctx context.Context, status domain.DocumentStatus) ([]domain.Document, error) {
	if !status.IsValid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	docs, err := s.docStore.ListDocuments(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %w", domain.ErrPersistence, err)
	}
	return docs, nil
}

// Delete soft-deletes a document. Deleting a deleted document is a no-op.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if !doc.IsActive() {
		return nil
	}
	return s.lifecycle.softDelete(ctx, doc)
}

// Restore brings a soft-deleted document back. Restoring an active
// document returns it unchanged.
func (s *DocumentService) Restore(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.IsActive() {
		return doc, nil
	}
	return s.lifecycle.restore(ctx, doc)
}

// documentTitle prefers the extracted title over the file name.
func documentTitle(extracted, originalName string) string {
	if t := strings.TrimSpace(extracted); t != "" {
		return t
	}
	base := filepath.Base(originalName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// objectKey places each document under its own prefix so names never clash.
func objectKey(documentID, originalName string) string {
	name := filepath.Base(originalName)
	if name == "." || name == "/" || name == "" {
		name = "content"
	}
	return documentID + "/" + name
}

func appendWarning(warnings []string, format string, args ...any) []string {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("%s", msg)
	return append(warnings, msg)
}
