// Package email extracts the subject and body text from RFC 822 messages.
package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-dedup/internal/extractors/html"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// maxNesting bounds recursion into nested multipart bodies.
const maxNesting = 8

// Extractor handles EML messages.
type Extractor struct {
	html *html.Extractor
}

// New creates a new email extractor.
func New() *Extractor {
	return &Extractor{html: html.New()}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract returns the subject followed by the message body. Plain text
// parts are preferred over HTML alternatives. Transport headers such as
// Date and To are left out so that a re-sent message keeps its text hash.
func (e *Extractor) Extract(ctx context.Context, content []byte, mimeType string) (*domain.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrExtraction, mimeType, err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	body, err := e.body(ctx, msg.Header, msg.Body, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s body: %w", domain.ErrExtraction, mimeType, err)
	}

	var text strings.Builder
	if subject != "" {
		text.WriteString(subject)
		text.WriteString("\n\n")
	}
	text.WriteString(strings.TrimSpace(body))

	return &domain.ExtractedText{
		Content:   strings.TrimSpace(text.String()),
		PageCount: 1,
		Title:     subject,
		Author:    sender(msg.Header.Get("From")),
		Language:  msg.Header.Get("Content-Language"),
	}, nil
}

// header is the subset of a MIME header the body walk needs.
type header interface {
	Get(key string) string
}

func (e *Extractor) body(ctx context.Context, h header, r io.Reader, depth int) (string, error) {
	contentType := h.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if depth >= maxNesting {
			return "", nil
		}
		return e.multipart(ctx, r, params["boundary"], depth+1)
	}

	raw, err := io.ReadAll(decodeTransfer(h.Get("Content-Transfer-Encoding"), r))
	if err != nil {
		return "", err
	}

	switch mediaType {
	case "text/html":
		extracted, err := e.html.Extract(ctx, raw, mediaType)
		if err != nil {
			return "", err
		}
		return extracted.Content, nil
	case "text/plain":
		return strings.ReplaceAll(string(raw), "\r\n", "\n"), nil
	default:
		return "", nil
	}
}

func (e *Extractor) multipart(ctx context.Context, r io.Reader, boundary string, depth int) (string, error) {
	if boundary == "" {
		return "", errors.New("multipart body without boundary")
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		// Attachments are not part of the message text.
		if disposition, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition")); disposition == "attachment" {
			_ = part.Close()
			continue
		}

		mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		text, err := e.body(ctx, part.Header, part, depth)
		_ = part.Close()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if mediaType == "text/html" {
			htmlParts = append(htmlParts, text)
		} else {
			textParts = append(textParts, text)
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n\n"), nil
	}
	return strings.Join(htmlParts, "\n\n"), nil
}

// decodeTransfer undoes a Content-Transfer-Encoding. multipart.Reader
// already decodes quoted-printable parts and drops the header.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// decodeHeader decodes RFC 2047 encoded words.
func decodeHeader(value string) string {
	if value == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}

// sender returns the display name of a From header, or the address.
func sender(from string) string {
	if from == "" {
		return ""
	}
	addr, err := mail.ParseAddress(decodeHeader(from))
	if err != nil {
		return decodeHeader(from)
	}
	if addr.Name != "" {
		return addr.Name
	}
	return addr.Address
}
