// Package html extracts readable text from HTML documents.
package html

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Elements whose text never reaches the reader.
const hiddenElements = "head, script, style, noscript, template, svg, iframe, object"

// paragraphElements are separated from their neighbours by a blank line.
var paragraphElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"header": true, "footer": true, "aside": true, "nav": true, "blockquote": true,
	"pre": true, "table": true, "ul": true, "ol": true, "dl": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"figure": true, "hr": true, "address": true, "fieldset": true,
}

// lineElements end with a single line break.
var lineElements = map[string]bool{
	"li": true, "tr": true, "dt": true, "dd": true, "caption": true, "figcaption": true,
}

var (
	whitespace    = regexp.MustCompile(`\s+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Extractor handles HTML documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50 // Higher than plaintext
}

// Extract returns the visible text with block elements mapped to line
// and paragraph breaks.
func (e *Extractor) Extract(ctx context.Context, content []byte, _ string) (*domain.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", domain.ErrExtraction, err)
	}

	result := &domain.ExtractedText{
		PageCount: 1,
		Title:     strings.TrimSpace(doc.Find("title").First().Text()),
		Author:    strings.TrimSpace(doc.Find(`meta[name="author"]`).First().AttrOr("content", "")),
		Language:  strings.TrimSpace(doc.Find("html").First().AttrOr("lang", "")),
	}

	doc.Find(hiddenElements).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	writeText(root, &b)
	result.Content = tidy(b.String())

	return result, nil
}

func writeText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch {
		case name == "#text":
			b.WriteString(whitespace.ReplaceAllString(s.Text(), " "))
		case name == "#comment":
		case name == "br":
			b.WriteString("\n")
		case paragraphElements[name]:
			b.WriteString("\n\n")
			writeText(s, b)
			b.WriteString("\n\n")
		case lineElements[name]:
			writeText(s, b)
			b.WriteString("\n")
		default:
			writeText(s, b)
		}
	})
}

// tidy trims every line and collapses runs of blank lines.
func tidy(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = multiNewlines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}
