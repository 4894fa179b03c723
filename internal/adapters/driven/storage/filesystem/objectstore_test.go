package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

func newTestStore(t *testing.T) *ObjectStore {
	t.Helper()
	store, err := NewObjectStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewObjectStore_CreatesNamespaces(t *testing.T) {
	root := t.TempDir()
	store, err := NewObjectStore(root)
	require.NoError(t, err)

	assert.Equal(t, root, store.Root())
	assert.DirExists(t, filepath.Join(root, "objects"))
	assert.DirExists(t, filepath.Join(root, ".deleted"))
}

func TestObjectStore_PutRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "doc-1/report.txt", []byte("hello")))

	data, err := store.Read(ctx, "doc-1/report.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	exists, err := store.Exists(ctx, "doc-1/report.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	// Overwrite
	require.NoError(t, store.Put(ctx, "doc-1/report.txt", []byte("bye")))
	data, err = store.Read(ctx, "doc-1/report.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("bye"), data)

	entries, err := os.ReadDir(filepath.Join(store.Root(), "objects", "doc-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestObjectStore_ReadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func TestObjectStore_MoveRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "doc-1/report.txt"

	require.NoError(t, store.Put(ctx, key, []byte("hello")))
	require.NoError(t, store.MoveToDeleted(ctx, key))

	live, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, live)
	deleted, err := store.ExistsDeleted(ctx, key)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.Read(ctx, key)
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)

	require.NoError(t, store.MoveFromDeleted(ctx, key))
	data, err := store.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	deleted, err = store.ExistsDeleted(ctx, key)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestObjectStore_MoveMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.MoveToDeleted(ctx, "missing"), domain.ErrObjectNotFound)
	assert.ErrorIs(t, store.MoveFromDeleted(ctx, "missing"), domain.ErrObjectNotFound)
}

func TestObjectStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "doc-1/report.txt"

	require.NoError(t, store.Put(ctx, key, []byte("hello")))
	require.NoError(t, store.Delete(ctx, key))

	live, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, live)

	// Missing keys are not an error
	assert.NoError(t, store.Delete(ctx, key))
}

func TestObjectStore_InvalidKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "..", "../escape", "/etc/passwd", "a/../../b"} {
		t.Run(key, func(t *testing.T) {
			err := store.Put(ctx, key, []byte("x"))
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestObjectStore_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "k", []byte("x")), context.Canceled)
	_, err := store.Read(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
