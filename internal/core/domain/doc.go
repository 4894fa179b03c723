// Package domain defines the core business entities for sercha-dedup.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded document with its fingerprint and lifecycle status
//   - Chunk: A bounded span of document text, the unit of embedding
//   - ChunkingConfig: Size limits that drive the semantic chunker
//   - CheckOptions / CheckResult: Input and outcome of a similarity check
//   - SimilarityCandidate: A scored near-duplicate document
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
