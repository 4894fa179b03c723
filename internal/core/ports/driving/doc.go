// Package driving declares what the CLI may ask of the core: ingest and
// manage documents, check content for duplicates, and read or change
// settings. internal/core/services provides the implementations.
package driving
