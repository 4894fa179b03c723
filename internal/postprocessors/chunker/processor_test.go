package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-dedup/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.cfg != domain.DefaultChunkingConfig() {
			t.Errorf("expected default config, got %+v", p.cfg)
		}
	})

	t.Run("custom sizes", func(t *testing.T) {
		p := New(WithMaxChunkSize(500), WithOverlap(100), WithMinChunkSize(10))
		if p.cfg.MaxChunkSize != 500 {
			t.Errorf("expected MaxChunkSize 500, got %d", p.cfg.MaxChunkSize)
		}
		if p.cfg.Overlap != 100 {
			t.Errorf("expected Overlap 100, got %d", p.cfg.Overlap)
		}
		if p.cfg.MinChunkSize != 10 {
			t.Errorf("expected MinChunkSize 10, got %d", p.cfg.MinChunkSize)
		}
	})

	t.Run("with config", func(t *testing.T) {
		cfg := domain.ChunkingConfig{MaxChunkSize: 50, Overlap: 5, MinChunkSize: 1}
		p := New(WithConfig(cfg))
		if p.Config() != cfg {
			t.Errorf("expected %+v, got %+v", cfg, p.Config())
		}
	})

	t.Run("respect flags", func(t *testing.T) {
		p := New(WithRespectParagraphs(false), WithRespectSentences(false))
		if p.cfg.RespectParagraphs || p.cfg.RespectSentences {
			t.Error("expected respect flags to be false")
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestChunk_InvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		field string
	}{
		{"overlap equals max", []Option{WithMaxChunkSize(100), WithOverlap(100)}, "overlap"},
		{"overlap exceeds max", []Option{WithMaxChunkSize(100), WithOverlap(150)}, "overlap"},
		{"negative overlap", []Option{WithOverlap(-1)}, "overlap"},
		{"zero max", []Option{WithMaxChunkSize(0), WithOverlap(0)}, "max_chunk_size"},
		{"zero min", []Option{WithMinChunkSize(0)}, "min_chunk_size"},
		{"min exceeds max", []Option{WithMaxChunkSize(100), WithOverlap(0), WithMinChunkSize(101)}, "min_chunk_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Empty text would be ErrNoText; validation must win.
			_, err := New(tt.opts...).Chunk("doc", "")
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Error("expected error to match ErrValidation")
			}
		})
	}
}

func TestChunk_NoText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t\r\n"} {
		_, err := New().Chunk("doc", text)
		if !errors.Is(err, domain.ErrNoText) {
			t.Errorf("text %q: expected ErrNoText, got %v", text, err)
		}
	}
}

func TestChunk_BelowMinChunkSize(t *testing.T) {
	p := New(WithMinChunkSize(50))

	_, err := p.Chunk("doc", "Too short.\n\nAlso short.")
	if !errors.Is(err, domain.ErrNoChunksProduced) {
		t.Fatalf("expected ErrNoChunksProduced, got %v", err)
	}
}

func TestChunk_ThreeSentences(t *testing.T) {
	// Two sentences fit: "Sentence one. Sentence two." is 27 characters.
	p := New(WithMaxChunkSize(27), WithOverlap(0), WithMinChunkSize(1))

	res, err := p.Chunk("doc", "Sentence one. Sentence two. Sentence three.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(res.Chunks))
	}
	want := []string{"Sentence one. Sentence two.", "Sentence three."}
	for i, c := range res.Chunks {
		if c.Type != domain.ChunkSentenceGroup {
			t.Errorf("chunk %d: expected sentence_group, got %s", i, c.Type)
		}
		if utf8.RuneCountInString(c.Content) > 27 {
			t.Errorf("chunk %d exceeds max size: %q", i, c.Content)
		}
		if c.Content != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], c.Content)
		}
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		if c.DocumentID != "doc" {
			t.Errorf("chunk %d: expected document ID doc, got %s", i, c.DocumentID)
		}
	}
}

func TestChunk_SentencePackingCountsCharacters(t *testing.T) {
	// "Żółw je." is 8 characters but 11 bytes; two of them fill 17 exactly.
	p := New(WithMaxChunkSize(17), WithOverlap(0), WithMinChunkSize(1))

	res, err := p.Chunk("doc", "Żółw je. Żółw je. Żółw je.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Żółw je. Żółw je.", "Żółw je."}
	if len(res.Chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(res.Chunks))
	}
	for i, c := range res.Chunks {
		if c.Content != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], c.Content)
		}
	}
}

func TestChunk_ManySentencesPackTightly(t *testing.T) {
	sentences := make([]string, 2000)
	for i := range sentences {
		sentences[i] = "Short sentence here."
	}
	text := strings.Join(sentences, " ")

	p := New(WithMaxChunkSize(100), WithOverlap(0), WithMinChunkSize(1))
	res, err := p.Chunk("doc", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 20 characters per sentence plus a space: four fit in 100.
	if len(res.Chunks) != 500 {
		t.Fatalf("expected 500 chunks, got %d", len(res.Chunks))
	}
	for i, c := range res.Chunks {
		if n := utf8.RuneCountInString(c.Content); n != 83 {
			t.Errorf("chunk %d: expected 83 characters, got %d", i, n)
		}
	}
}

func TestChunk_ParagraphsFit(t *testing.T) {
	p := New(WithMinChunkSize(5))
	text := "First paragraph here.\r\n\r\n\r\nSecond paragraph\nspans two lines."

	res, err := p.Chunk("doc", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(res.Chunks))
	}
	if res.Chunks[0].Type != domain.ChunkParagraph {
		t.Errorf("expected paragraph, got %s", res.Chunks[0].Type)
	}
	// Overlap is applied: 200/10 = 20 words, capped at 3/3 = 1 word.
	if res.Chunks[1].Content != "here. Second paragraph spans two lines." {
		t.Errorf("unexpected second chunk %q", res.Chunks[1].Content)
	}
}

func TestChunk_IgnoreParagraphs(t *testing.T) {
	p := New(WithRespectParagraphs(false), WithMinChunkSize(5))

	res, err := p.Chunk("doc", "One.\n\nTwo.\n\nThree.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(res.Chunks))
	}
	if res.Chunks[0].Content != "One. Two. Three." {
		t.Errorf("unexpected content %q", res.Chunks[0].Content)
	}
}

func TestChunk_WordGroupsWithoutSentences(t *testing.T) {
	p := New(WithMaxChunkSize(20), WithOverlap(0), WithMinChunkSize(1), WithRespectSentences(false))

	res, err := p.Chunk("doc", "alpha beta gamma delta epsilon zeta eta theta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range res.Chunks {
		if c.Type != domain.ChunkWordGroup {
			t.Errorf("expected word_group, got %s", c.Type)
		}
		if utf8.RuneCountInString(c.Content) > 20 {
			t.Errorf("chunk exceeds max size: %q", c.Content)
		}
	}
	joined := make([]string, 0, len(res.Chunks))
	for _, c := range res.Chunks {
		joined = append(joined, c.Content)
	}
	if strings.Join(joined, " ") != "alpha beta gamma delta epsilon zeta eta theta" {
		t.Errorf("words lost or reordered: %v", joined)
	}
}

func TestChunk_OversizedSentenceFallsBackToWords(t *testing.T) {
	p := New(WithMaxChunkSize(30), WithOverlap(0), WithMinChunkSize(1))
	long := "This sentence is far too long to fit into a single chunk of thirty characters."

	res, err := p.Chunk("doc", "Short one. "+long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Chunks[0].Type != domain.ChunkSentenceGroup || res.Chunks[0].Content != "Short one." {
		t.Errorf("unexpected first chunk %+v", res.Chunks[0])
	}
	for _, c := range res.Chunks[1:] {
		if c.Type != domain.ChunkWordGroup {
			t.Errorf("expected word_group, got %s for %q", c.Type, c.Content)
		}
		if utf8.RuneCountInString(c.Content) > 30 {
			t.Errorf("chunk exceeds max size: %q", c.Content)
		}
	}
}

func TestChunk_LongWordIsHardSplit(t *testing.T) {
	p := New(WithMaxChunkSize(10), WithOverlap(0), WithMinChunkSize(1))

	res, err := p.Chunk("doc", strings.Repeat("é", 25))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(res.Chunks))
	}
	for _, c := range res.Chunks {
		if !utf8.ValidString(c.Content) {
			t.Errorf("chunk split mid-rune: %q", c.Content)
		}
		if utf8.RuneCountInString(c.Content) > 10 {
			t.Errorf("chunk exceeds max size: %q", c.Content)
		}
	}
}

func TestChunk_OverlapIsPureTransform(t *testing.T) {
	text := "Sentence one. Sentence two. Sentence three."
	withoutOverlap, err := New(WithMaxChunkSize(27), WithOverlap(0), WithMinChunkSize(1)).Chunk("doc", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	withOverlap, err := New(WithMaxChunkSize(27), WithOverlap(20), WithMinChunkSize(1)).Chunk("doc", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 20/10 = 2 words, previous chunk has 4 words so 4/3 = 1 word.
	if got := withOverlap.Chunks[1].Content; got != "two. Sentence three." {
		t.Errorf("unexpected overlapped chunk %q", got)
	}
	if withOverlap.Chunks[0].Content != withoutOverlap.Chunks[0].Content {
		t.Error("first chunk must not receive overlap")
	}
	if withOverlap.Chunks[1].Metadata["overlap_words"] != 1 {
		t.Errorf("expected overlap_words 1, got %v", withOverlap.Chunks[1].Metadata["overlap_words"])
	}
}

func TestApplyOverlap_DoesNotMutateInput(t *testing.T) {
	in := []domain.Chunk{
		{Content: "one two three four five six", Metadata: map[string]any{}},
		{Content: "seven eight", Metadata: map[string]any{}},
	}

	out := applyOverlap(in, 100)

	if in[1].Content != "seven eight" {
		t.Errorf("input chunk mutated: %q", in[1].Content)
	}
	if _, ok := in[1].Metadata["overlap_words"]; ok {
		t.Error("input metadata mutated")
	}
	if out[1].Content != "five six seven eight" {
		t.Errorf("unexpected output %q", out[1].Content)
	}
}

func TestChunk_Stats(t *testing.T) {
	p := New(WithMaxChunkSize(27), WithOverlap(0), WithMinChunkSize(1))

	res, err := p.Chunk("doc", "Sentence one. Sentence two. Sentence three.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stats.MinChunkSize != 15 || res.Stats.MaxChunkSize != 27 {
		t.Errorf("unexpected min/max %d/%d", res.Stats.MinChunkSize, res.Stats.MaxChunkSize)
	}
	if res.Stats.AverageChunkSize != 21 {
		t.Errorf("expected average 21, got %v", res.Stats.AverageChunkSize)
	}
	if res.Stats.ActualOverlapPercentage != 0 {
		t.Errorf("expected 0%% overlap, got %v", res.Stats.ActualOverlapPercentage)
	}

	res, err = New().Chunk("doc", strings.Repeat("word ", 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stats.ActualOverlapPercentage != 20 {
		t.Errorf("expected 20%% overlap from config, got %v", res.Stats.ActualOverlapPercentage)
	}
}

func TestChunk_Idempotent(t *testing.T) {
	text := strings.Repeat("The cat sat on the mat. It was warm! Was it happy? Yes.\n\n", 30)
	p := New(WithMaxChunkSize(120), WithOverlap(40), WithMinChunkSize(10))

	a, err := p.Chunk("doc", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := p.Chunk("doc", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Chunks) != len(b.Chunks) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a.Chunks), len(b.Chunks))
	}
	for i := range a.Chunks {
		if a.Chunks[i].Content != b.Chunks[i].Content || a.Chunks[i].Type != b.Chunks[i].Type {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunk_PreOverlapSizeBound(t *testing.T) {
	text := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 50) +
		"\n\n" + strings.Repeat("supercalifragilistic ", 40)

	for _, limit := range []int{25, 60, 200} {
		p := New(WithMaxChunkSize(limit), WithOverlap(0), WithMinChunkSize(1))
		res, err := p.Chunk("doc", text)
		if err != nil {
			t.Fatalf("limit %d: unexpected error: %v", limit, err)
		}
		for _, c := range res.Chunks {
			n := utf8.RuneCountInString(c.Content)
			if n > limit || strings.TrimSpace(c.Content) == "" {
				t.Errorf("limit %d: chunk of %d characters: %q", limit, n, c.Content)
			}
		}
	}
}

func TestProcessor_Process(t *testing.T) {
	p := New(WithMinChunkSize(1))
	doc := &domain.Document{ID: "doc-1", Content: "Some document text."}

	chunks, err := p.Process(context.Background(), doc, []domain.Chunk{{ID: "ignored"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].DocumentID != "doc-1" || chunks[0].ID == "" || chunks[0].ID == "ignored" {
		t.Errorf("unexpected chunk %+v", chunks[0])
	}
	if chunks[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	_, err := New().Process(context.Background(), &domain.Document{ID: "doc"}, nil)
	if !errors.Is(err, domain.ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}
}
