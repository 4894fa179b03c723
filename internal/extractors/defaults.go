package extractors

import (
	"github.com/custodia-labs/sercha-dedup/internal/extractors/docx"
	"github.com/custodia-labs/sercha-dedup/internal/extractors/email"
	"github.com/custodia-labs/sercha-dedup/internal/extractors/html"
	"github.com/custodia-labs/sercha-dedup/internal/extractors/markdown"
	"github.com/custodia-labs/sercha-dedup/internal/extractors/plaintext"
)

// RegisterDefaults registers all built-in extractors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(email.New())
}

// NewDefaultRegistry returns a registry with the built-in extractors.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
