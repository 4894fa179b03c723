// Package filesystem stores original document bytes on local disk.
//
// Live objects live under <root>/objects/<key>; soft-deleted objects are
// moved to <root>/.deleted/<key>.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

const (
	liveDir    = "objects"
	deletedDir = ".deleted"
)

// Ensure ObjectStore implements the interface.
var _ driven.ObjectStore = (*ObjectStore)(nil)

// ObjectStore implements driven.ObjectStore on the local filesystem.
type ObjectStore struct {
	root string
}

// NewObjectStore creates the namespace directories under root.
func NewObjectStore(root string) (*ObjectStore, error) {
	for _, dir := range []string{liveDir, deletedDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0700); err != nil {
			return nil, fmt.Errorf("creating object directory: %w", err)
		}
	}
	return &ObjectStore{root: root}, nil
}

// Root returns the store's base directory.
func (s *ObjectStore) Root() string {
	return s.root
}

// Put writes content under key, replacing any previous object.
func (s *ObjectStore) Put(ctx context.Context, key string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(liveDir, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}

	// Write to a temp file then rename so readers never see partial data
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return fmt.Errorf("creating temp object: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing object %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storing object %s: %w", key, err)
	}
	return nil
}

// Read returns the bytes stored under key.
func (s *ObjectStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(liveDir, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return data, nil
}

// Exists reports whether key is in the live namespace.
func (s *ObjectStore) Exists(_ context.Context, key string) (bool, error) {
	return s.exists(liveDir, key)
}

// ExistsDeleted reports whether key is in the deleted namespace.
func (s *ObjectStore) ExistsDeleted(_ context.Context, key string) (bool, error) {
	return s.exists(deletedDir, key)
}

// MoveToDeleted moves key into the deleted namespace.
func (s *ObjectStore) MoveToDeleted(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.move(liveDir, deletedDir, key)
}

// MoveFromDeleted moves key back into the live namespace.
func (s *ObjectStore) MoveFromDeleted(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.move(deletedDir, liveDir, key)
}

// Delete removes key from the live namespace.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(liveDir, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}

func (s *ObjectStore) exists(namespace, key string) (bool, error) {
	path, err := s.path(namespace, key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking object %s: %w", key, err)
	}
	return info.Mode().IsRegular(), nil
}

func (s *ObjectStore) move(from, to, key string) error {
	src, err := s.path(from, key)
	if err != nil {
		return err
	}
	dst, err := s.path(to, key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrObjectNotFound, key)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving object %s: %w", key, err)
	}
	return nil
}

// path resolves key inside a namespace. Keys are slash-separated and may
// not escape the namespace.
func (s *ObjectStore) path(namespace, key string) (string, error) {
	if key == "" {
		return "", domain.NewValidationError("key", "must not be empty")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == "." || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", domain.NewValidationError("key", fmt.Sprintf("invalid object key %q", key))
	}
	return filepath.Join(s.root, namespace, clean), nil
}
