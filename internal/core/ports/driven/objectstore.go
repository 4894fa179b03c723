package driven

import "context"

// ObjectStore holds original document bytes.
// Soft-deleted objects are moved into a separate deleted namespace under the
// same key so they can be restored.
type ObjectStore interface {
	// Put writes content under key in the live namespace.
	Put(ctx context.Context, key string, content []byte) error

	// Read returns the bytes stored under key in the live namespace.
	Read(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether key is present in the live namespace.
	Exists(ctx context.Context, key string) (bool, error)

	// ExistsDeleted reports whether key is present in the deleted namespace.
	ExistsDeleted(ctx context.Context, key string) (bool, error)

	// MoveToDeleted moves key from the live namespace to the deleted namespace.
	MoveToDeleted(ctx context.Context, key string) error

	// MoveFromDeleted moves key back from the deleted namespace.
	MoveFromDeleted(ctx context.Context, key string) error

	// Delete removes key from the live namespace. A missing key is not an
	// error.
	Delete(ctx context.Context, key string) error
}
