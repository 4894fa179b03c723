package chunker

import (
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

// normalizeWhitespace unifies line endings, collapses runs of horizontal
// whitespace and trims each line. Runs of blank lines become a single blank
// line so paragraph boundaries survive.
func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

// splitParagraphs splits normalised text on blank lines. Line breaks inside
// a paragraph become spaces.
func splitParagraphs(text string) []string {
	blocks := strings.Split(text, "\n\n")
	paragraphs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		para := strings.Join(strings.Fields(block), " ")
		if para != "" {
			paragraphs = append(paragraphs, para)
		}
	}
	return paragraphs
}

// splitSentences breaks text after sentence-ending punctuation that is
// followed by whitespace and an uppercase letter.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) || !unicode.IsUpper(runes[j]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = j
		i = j - 1
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// wordPieces greedily packs whitespace-separated words into word_group
// pieces of at most limit characters. A word longer than limit is cut on rune
// boundaries.
func wordPieces(text string, limit int) []piece {
	var (
		out     []piece
		current strings.Builder
		size    int
	)
	flush := func() {
		if current.Len() > 0 {
			out = append(out, piece{text: current.String(), kind: domain.ChunkWordGroup})
			current.Reset()
			size = 0
		}
	}

	for _, word := range strings.Fields(text) {
		for _, part := range splitLongWord(word, limit) {
			n := charLen(part)
			if size > 0 && size+1+n > limit {
				flush()
			}
			if size > 0 {
				current.WriteByte(' ')
				size++
			}
			current.WriteString(part)
			size += n
		}
	}
	flush()

	return out
}

func splitLongWord(word string, limit int) []string {
	runes := []rune(word)
	if len(runes) <= limit {
		return []string{word}
	}
	parts := make([]string, 0, len(runes)/limit+1)
	for len(runes) > limit {
		parts = append(parts, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
