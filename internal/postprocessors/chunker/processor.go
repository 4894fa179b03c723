// Package chunker provides a structure-aware text chunking processor.
//
// Text is split on paragraph boundaries first, then on sentence boundaries,
// then on whitespace, so that chunks follow the natural structure of the
// document while staying within a character budget.
package chunker

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor splits document content into paragraph, sentence-group and
// word-group chunks. It implements the PostProcessor interface.
type Processor struct {
	cfg domain.ChunkingConfig
	now func() time.Time
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithConfig replaces the whole chunking configuration.
func WithConfig(cfg domain.ChunkingConfig) Option {
	return func(p *Processor) {
		p.cfg = cfg
	}
}

// WithMaxChunkSize sets the chunk size limit in characters.
func WithMaxChunkSize(size int) Option {
	return func(p *Processor) {
		p.cfg.MaxChunkSize = size
	}
}

// WithOverlap sets the overlap budget in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.cfg.Overlap = overlap
	}
}

// WithMinChunkSize sets the minimum paragraph length kept.
func WithMinChunkSize(size int) Option {
	return func(p *Processor) {
		p.cfg.MinChunkSize = size
	}
}

// WithRespectParagraphs toggles splitting on blank lines.
func WithRespectParagraphs(respect bool) Option {
	return func(p *Processor) {
		p.cfg.RespectParagraphs = respect
	}
}

// WithRespectSentences toggles packing whole sentences.
func WithRespectSentences(respect bool) Option {
	return func(p *Processor) {
		p.cfg.RespectSentences = respect
	}
}

// New creates a new chunker processor with the given options.
// The configuration is validated when chunking, not here.
func New(opts ...Option) *Processor {
	p := &Processor{
		cfg: domain.DefaultChunkingConfig(),
		now: time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Config returns the processor configuration.
func (p *Processor) Config() domain.ChunkingConfig {
	return p.cfg
}

// Result is the output of a chunking run.
type Result struct {
	Chunks []domain.Chunk
	Stats  domain.ChunkStats
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	res, err := p.Chunk(doc.ID, doc.Content)
	if err != nil {
		return nil, err
	}
	return res.Chunks, nil
}

// Chunk splits text into chunks for documentID.
//
// Errors: a *domain.ValidationError for a bad config, domain.ErrNoText for
// empty input and domain.ErrNoChunksProduced when every paragraph is shorter
// than the minimum size.
func (p *Processor) Chunk(documentID, text string) (*Result, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	normalized := normalizeWhitespace(text)
	if normalized == "" {
		return nil, domain.ErrNoText
	}

	var paragraphs []string
	if p.cfg.RespectParagraphs {
		paragraphs = splitParagraphs(normalized)
	} else {
		paragraphs = []string{strings.Join(strings.Fields(normalized), " ")}
	}

	var pieces []piece
	for i, para := range paragraphs {
		if charLen(para) < p.cfg.MinChunkSize {
			continue
		}
		for _, pc := range p.splitParagraph(para) {
			pc.paragraph = i
			pieces = append(pieces, pc)
		}
	}
	if len(pieces) == 0 {
		return nil, domain.ErrNoChunksProduced
	}

	now := p.now()
	chunks := make([]domain.Chunk, len(pieces))
	for i, pc := range pieces {
		chunks[i] = domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Content:    pc.text,
			Index:      i,
			Type:       pc.kind,
			Metadata: map[string]any{
				"paragraph_index": pc.paragraph,
				"char_count":      charLen(pc.text),
			},
			CreatedAt: now,
		}
	}

	chunks = applyOverlap(chunks, p.cfg.Overlap)

	return &Result{
		Chunks: chunks,
		Stats:  computeStats(chunks, p.cfg),
	}, nil
}

// piece is a pre-overlap chunk body.
type piece struct {
	text      string
	kind      domain.ChunkType
	paragraph int
}

func (p *Processor) splitParagraph(para string) []piece {
	limit := p.cfg.MaxChunkSize
	if charLen(para) <= limit {
		return []piece{{text: para, kind: domain.ChunkParagraph}}
	}
	if !p.cfg.RespectSentences {
		return wordPieces(para, limit)
	}

	var (
		out     []piece
		current strings.Builder
		size    int
	)
	flush := func() {
		if current.Len() > 0 {
			out = append(out, piece{text: current.String(), kind: domain.ChunkSentenceGroup})
			current.Reset()
			size = 0
		}
	}

	for _, sentence := range splitSentences(para) {
		n := charLen(sentence)
		if n > limit {
			flush()
			out = append(out, wordPieces(sentence, limit)...)
			continue
		}
		if size > 0 && size+1+n > limit {
			flush()
		}
		if size > 0 {
			current.WriteByte(' ')
			size++
		}
		current.WriteString(sentence)
		size += n
	}
	flush()

	return out
}

// applyOverlap returns new chunks where each chunk after the first starts
// with trailing words of the previous chunk. The word count is
// min(overlap/10, words(prev)/3), measured on the pre-overlap content.
func applyOverlap(chunks []domain.Chunk, overlap int) []domain.Chunk {
	if overlap <= 0 || len(chunks) < 2 {
		return chunks
	}

	out := make([]domain.Chunk, len(chunks))
	out[0] = chunks[0]
	budget := overlap / 10

	for i := 1; i < len(chunks); i++ {
		c := chunks[i]
		c.Metadata = copyMetadata(c.Metadata)

		prevWords := strings.Fields(chunks[i-1].Content)
		n := min(budget, len(prevWords)/3)
		if n > 0 {
			prefix := strings.Join(prevWords[len(prevWords)-n:], " ")
			c.Content = prefix + " " + c.Content
			c.Metadata["overlap_words"] = n
		}
		out[i] = c
	}

	return out
}

func computeStats(chunks []domain.Chunk, cfg domain.ChunkingConfig) domain.ChunkStats {
	stats := domain.ChunkStats{
		ActualOverlapPercentage: float64(cfg.Overlap) * 100 / float64(cfg.MaxChunkSize),
	}
	if len(chunks) == 0 {
		return stats
	}

	total := 0
	stats.MinChunkSize = charLen(chunks[0].Content)
	for _, c := range chunks {
		n := charLen(c.Content)
		total += n
		if n < stats.MinChunkSize {
			stats.MinChunkSize = n
		}
		if n > stats.MaxChunkSize {
			stats.MaxChunkSize = n
		}
	}
	stats.AverageChunkSize = float64(total) / float64(len(chunks))

	return stats
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// charLen measures text in characters, not bytes.
func charLen(s string) int {
	return utf8.RuneCountInString(s)
}
