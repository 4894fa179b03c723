package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dedup/internal/logger"
)

// lifecycle moves documents between the active and deleted states.
// It is shared by the document and similarity services so that a restore
// triggered by a check behaves exactly like an explicit restore.
type lifecycle struct {
	docStore    driven.DocumentStore
	objects     driven.ObjectStore
	vectorIndex driven.VectorIndex
}

// softDelete drops the document's vectors, marks it deleted and moves its
// bytes into the deleted namespace, in that order. A failing step undoes
// the ones before it so the document stays active and intact. Chunks and
// their stored embeddings are kept for restore.
func (l lifecycle) softDelete(ctx context.Context, doc *domain.Document) error {
	if l.vectorIndex != nil {
		if err := l.vectorIndex.DeleteDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("%w: delete vectors: %w", domain.ErrIndex, err)
		}
	}
	if err := l.docStore.SetStatus(ctx, doc.ID, domain.StatusDeleted); err != nil {
		l.undo(ctx, doc.ID, "reindex", func(ctx context.Context) error { return l.reindex(ctx, doc.ID) })
		return fmt.Errorf("%w: set status: %w", domain.ErrPersistence, err)
	}
	if err := l.stash(ctx, doc.StorageKey); err != nil {
		l.undo(ctx, doc.ID, "reactivate", func(ctx context.Context) error {
			return l.docStore.SetStatus(ctx, doc.ID, domain.StatusActive)
		})
		l.undo(ctx, doc.ID, "reindex", func(ctx context.Context) error { return l.reindex(ctx, doc.ID) })
		return fmt.Errorf("%w: move object to deleted: %w", domain.ErrPersistence, err)
	}

	now := time.Now()
	doc.Status = domain.StatusDeleted
	doc.DeletedAt = &now
	return nil
}

// stash moves key into the deleted namespace. An object already there from
// an earlier interrupted delete counts as moved.
func (l lifecycle) stash(ctx context.Context, key string) error {
	err := l.objects.MoveToDeleted(ctx, key)
	if err == nil || !errors.Is(err, domain.ErrObjectNotFound) {
		return err
	}
	if ok, existsErr := l.objects.ExistsDeleted(ctx, key); existsErr == nil && ok {
		return nil
	}
	return err
}

// restore re-activates a soft-deleted document: status first, then the
// object move, then the vectors. Any failure puts the document back in the
// deleted state. Bytes missing from both namespaces are an inconsistency,
// never a silent no-match.
func (l lifecycle) restore(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	inDeleted, err := l.objects.ExistsDeleted(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: check deleted object: %w", domain.ErrPersistence, err)
	}
	if !inDeleted {
		// An interrupted restore may already have moved the bytes back.
		live, err := l.objects.Exists(ctx, doc.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("%w: check object: %w", domain.ErrPersistence, err)
		}
		if !live {
			logger.Error("document %s: object %q missing from deleted namespace", doc.ID, doc.StorageKey)
			return nil, fmt.Errorf("%w: document %s: object %q missing from deleted namespace",
				domain.ErrRestoreInconsistency, doc.ID, doc.StorageKey)
		}
	}

	if err := l.docStore.SetStatus(ctx, doc.ID, domain.StatusActive); err != nil {
		return nil, fmt.Errorf("%w: set status: %w", domain.ErrPersistence, err)
	}
	deactivate := func(ctx context.Context) error {
		return l.docStore.SetStatus(ctx, doc.ID, domain.StatusDeleted)
	}

	if inDeleted {
		if err := l.objects.MoveFromDeleted(ctx, doc.StorageKey); err != nil {
			l.undo(ctx, doc.ID, "deactivate", deactivate)
			return nil, fmt.Errorf("%w: move object from deleted: %w", domain.ErrPersistence, err)
		}
	}

	if err := l.reindex(ctx, doc.ID); err != nil {
		if l.vectorIndex != nil {
			l.undo(ctx, doc.ID, "drop vectors", func(ctx context.Context) error {
				return l.vectorIndex.DeleteDocument(ctx, doc.ID)
			})
		}
		l.undo(ctx, doc.ID, "deactivate", deactivate)
		l.undo(ctx, doc.ID, "stash object", func(ctx context.Context) error {
			return l.stash(ctx, doc.StorageKey)
		})
		return nil, err
	}

	doc.Status = domain.StatusActive
	doc.DeletedAt = nil
	logger.Info("restored document %s", doc.ID)
	return doc, nil
}

// undo runs a compensating step even when ctx is already cancelled. A
// failure is logged; the original error is what the caller reports.
func (l lifecycle) undo(ctx context.Context, documentID, step string, fn func(context.Context) error) {
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		logger.Error("document %s: %s after failure: %v", documentID, step, err)
	}
}

// reindex upserts the stored chunk embeddings of a document.
func (l lifecycle) reindex(ctx context.Context, documentID string) error {
	if l.vectorIndex == nil {
		return nil
	}
	chunks, err := l.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("%w: get chunks: %w", domain.ErrPersistence, err)
	}
	return upsertEmbeddings(ctx, l.vectorIndex, chunks)
}

func upsertEmbeddings(ctx context.Context, index driven.VectorIndex, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		err := index.Upsert(ctx, driven.VectorRecord{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Vector:     c.Embedding,
		})
		if err != nil {
			return fmt.Errorf("%w: upsert chunk %s: %w", domain.ErrIndex, c.ID, err)
		}
	}
	return nil
}
