// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Document and chunk persistence, hash lookups
//   - ObjectStore: Original bytes, with a deleted namespace for restore
//   - TextExtractor: Pulls text out of document bytes
//   - ExtractorRegistry: Selects the appropriate extractor
//   - PostProcessorPipeline: Produces chunks from extracted text
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingProvider: Generates vector embeddings. Without it, semantic checks are skipped.
//   - VectorIndex: Vector storage/search. Without it, semantic checks are skipped.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or postprocessor package
package driven
