// Package sqlite keeps document metadata, chunks and chunk vectors in one
// SQLite database (metadata.db under the data directory), using the pure
// Go modernc.org/sqlite driver.
//
// Vector search is an exhaustive cosine scan over the stored vectors,
// which is fine for a single user's corpus. Larger deployments switch the
// vector index to pgvector.
//
// The schema is versioned by the migrations subpackage; NewStore applies
// anything newer than the recorded version.
package sqlite
