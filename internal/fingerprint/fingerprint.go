// Package fingerprint computes content identities for duplicate detection.
//
// Two digests are produced for every document: one over the exact bytes and
// one over the normalised extracted text. Both are SHA-256, hex encoded.
// Collisions are treated as content equality.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

// ContentHash returns the hex SHA-256 digest of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// TextHash returns the hex SHA-256 digest of the normalised text.
// Texts that differ only in case, whitespace or line endings hash equal.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns both digests. An empty text leaves TextHash empty.
func Fingerprint(content []byte, text string) domain.DocumentFingerprint {
	fp := domain.DocumentFingerprint{FileHash: ContentHash(content)}
	if strings.TrimSpace(text) != "" {
		fp.TextHash = TextHash(text)
	}
	return fp
}

// NormalizeText lowercases text, unifies line endings, collapses whitespace
// runs to a single space and trims the result.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
