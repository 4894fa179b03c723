package driven

import (
	"context"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

// TextExtractor pulls plain text out of document bytes.
// Each extractor handles specific MIME types (e.g., HTML, DOCX).
type TextExtractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	// A "*/*" entry marks a fallback extractor.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors should return 50-89.
	// Fallback extractors should return 1-9.
	Priority() int

	// Extract returns the document text. Corrupt or non-conforming input
	// fails with an error wrapping domain.ErrExtraction.
	Extract(ctx context.Context, content []byte, mimeType string) (*domain.ExtractedText, error)
}

// ExtractorRegistry selects the appropriate extractor for a document.
type ExtractorRegistry interface {
	// Extract runs the best matching extractor for mimeType.
	Extract(ctx context.Context, content []byte, mimeType string) (*domain.ExtractedText, error)

	// DetectMIMEType guesses the content type from the file name, falling
	// back to sniffing the leading bytes.
	DetectMIMEType(name string, content []byte) string

	// Register adds an extractor to the registry.
	Register(extractor TextExtractor)

	// SupportedMIMETypes returns all MIME types that can be extracted.
	SupportedMIMETypes() []string
}
