// Package markdown extracts text from Markdown documents.
package markdown

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

var (
	fenceLine     = regexp.MustCompile("(?m)^[ \t]*(?:```|~~~).*\n?")
	inlineCode    = regexp.MustCompile("`([^`\n]+)`")
	images        = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	headings      = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
	blockquote    = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
	horizontal    = regexp.MustCompile(`(?m)^[ \t]*[-*_]{3,}[ \t]*$`)
	listMarkers   = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	numberedList  = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`)
	starEmphasis  = regexp.MustCompile(`\*([^*\n]+)\*`)
	underEmphasis = regexp.MustCompile(`(^|\W)_([^_\n]+)_(\W|$)`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Extractor handles Markdown documents.
type Extractor struct{}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract strips Markdown syntax and keeps the paragraph structure.
// YAML front matter supplies title, author and language when present.
func (e *Extractor) Extract(ctx context.Context, content []byte, mimeType string) (*domain.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.IndexByte(string(content), 0) >= 0 {
		return nil, fmt.Errorf("%w: %s content is not text", domain.ErrExtraction, mimeType)
	}

	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	result := &domain.ExtractedText{PageCount: 1}

	if meta, body, ok := splitFrontMatter(text); ok {
		result.Title = stringValue(meta["title"])
		result.Author = stringValue(meta["author"])
		result.Language = stringValue(meta["lang"])
		if result.Language == "" {
			result.Language = stringValue(meta["language"])
		}
		text = body
	}

	if result.Title == "" {
		result.Title = firstHeading(text)
	}
	result.Content = stripMarkdown(text)

	return result, nil
}

// splitFrontMatter separates a leading "---" delimited YAML block.
func splitFrontMatter(text string) (map[string]any, string, bool) {
	lines := strings.SplitAfter(text, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "---" {
		return nil, text, false
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "---" {
			continue
		}
		var meta map[string]any
		if err := yaml.Unmarshal([]byte(strings.Join(lines[1:i], "")), &meta); err != nil {
			return nil, text, false
		}
		return meta, strings.Join(lines[i+1:], ""), true
	}
	return nil, text, false
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := stringValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// firstHeading returns the text of the first level-one heading.
func firstHeading(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

// stripMarkdown removes common Markdown formatting. Code block contents
// are kept since they are part of the document text.
func stripMarkdown(content string) string {
	content = fenceLine.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = blockquote.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = starEmphasis.ReplaceAllString(content, "$1")
	content = underEmphasis.ReplaceAllString(content, "$1$2$3")

	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
