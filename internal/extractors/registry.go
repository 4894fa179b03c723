package extractors

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// wildcard marks a fallback extractor.
const wildcard = "*/*"

// extensionTypes takes precedence over the platform MIME table, which
// differs between systems for the formats below.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".json":     "application/json",
	".xml":      "application/xml",
	".yaml":     "application/yaml",
	".yml":      "application/yaml",
	".toml":     "application/toml",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pdf":      "application/pdf",
	".eml":      "message/rfc822",
}

// Registry holds text extractors keyed by MIME type.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string][]driven.TextExtractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string][]driven.TextExtractor),
	}
}

// Register adds an extractor under each of its MIME types.
func (r *Registry) Register(extractor driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mimeType := range extractor.SupportedMIMETypes() {
		mimeType = BaseMIMEType(mimeType)
		list := append(r.extractors[mimeType], extractor)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.extractors[mimeType] = list
	}
}

// Extract runs the best matching extractor for mimeType. When no
// extractor claims the type, fallback extractors are tried.
func (r *Registry) Extract(ctx context.Context, content []byte, mimeType string) (*domain.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	extractor := r.lookup(BaseMIMEType(mimeType))
	if extractor == nil {
		return nil, fmt.Errorf("%w: %w: %s", domain.ErrExtraction, domain.ErrUnsupportedType, mimeType)
	}

	text, err := extractor.Extract(ctx, content, mimeType)
	if err != nil {
		if errors.Is(err, domain.ErrExtraction) || errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}
	return text, nil
}

func (r *Registry) lookup(mimeType string) driven.TextExtractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if list := r.extractors[mimeType]; len(list) > 0 {
		return list[0]
	}
	if list := r.extractors[wildcard]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// DetectMIMEType guesses the content type from the file extension, then
// by sniffing the leading bytes.
func (r *Registry) DetectMIMEType(name string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if mimeType, ok := extensionTypes[ext]; ok {
			return mimeType
		}
		if mimeType := mime.TypeByExtension(ext); mimeType != "" {
			return BaseMIMEType(mimeType)
		}
	}
	if len(content) == 0 {
		return "text/plain"
	}
	return BaseMIMEType(http.DetectContentType(content))
}

// SupportedMIMETypes returns every registered MIME type, sorted.
// The fallback entry is not included.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.extractors))
	for mimeType := range r.extractors {
		if mimeType == wildcard {
			continue
		}
		types = append(types, mimeType)
	}
	sort.Strings(types)
	return types
}

// BaseMIMEType strips parameters such as "; charset=utf-8" and lowercases
// the type.
func BaseMIMEType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
