// Package docx extracts text from Office Open XML word processing files.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
	appPart      = "docProps/app.xml"

	// maxPartSize bounds the decompressed size of a single archive part.
	maxPartSize = 64 << 20
)

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract reads paragraph text from word/document.xml, including table
// cells, and metadata from the docProps parts.
func (e *Extractor) Extract(ctx context.Context, content []byte, _ string) (*domain.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open docx: %w", domain.ErrExtraction, err)
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}
	text, err := parseDocumentXML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrExtraction, documentPart, err)
	}

	result := &domain.ExtractedText{Content: text, PageCount: 1}

	// Metadata parts are optional.
	if data, err := readPart(reader, corePart); err == nil {
		var core coreXML
		if xml.Unmarshal(data, &core) == nil {
			result.Title = strings.TrimSpace(core.Title)
			result.Author = strings.TrimSpace(core.Creator)
			result.Language = strings.TrimSpace(core.Language)
		}
	}
	if data, err := readPart(reader, appPart); err == nil {
		var app appXML
		if xml.Unmarshal(data, &app) == nil && app.Pages > 0 {
			result.PageCount = app.Pages
		}
	}

	return result, nil
}

var errPartMissing = errors.New("part not found")

func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if len(data) > maxPartSize {
			return nil, fmt.Errorf("%s exceeds %d bytes", name, maxPartSize)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s: %w", name, errPartMissing)
}

// parseDocumentXML walks the token stream so paragraphs nested in tables
// and text boxes are included. Paragraphs are separated by blank lines.
func parseDocumentXML(content []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br", "cr":
				current.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := strings.TrimSpace(current.String()); p != "" {
					paragraphs = append(paragraphs, p)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return strings.Join(paragraphs, "\n\n"), nil
}

// coreXML represents the fields read from docProps/core.xml.
type coreXML struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Language string `xml:"language"`
}

// appXML represents the fields read from docProps/app.xml.
type appXML struct {
	Pages int `xml:"Pages"`
}
