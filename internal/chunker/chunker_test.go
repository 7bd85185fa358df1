package chunker

import (
	"strings"
	"testing"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -10, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			if err == nil {
				t.Fatalf("New(%d, %d) should fail", tt.size, tt.overlap)
			}
			if _, ok := err.(*InvalidConfigError); !ok {
				t.Errorf("expected *InvalidConfigError, got %T", err)
			}
		})
	}
}

func TestSplitEmptyText(t *testing.T) {
	c, err := New(100, 20)
	if err != nil {
		t.Fatal(err)
	}
	if chunks := c.Split("doc-1", ""); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestSplitSmallDocument(t *testing.T) {
	c, err := New(1000, 200)
	if err != nil {
		t.Fatal(err)
	}

	text := "This Agreement is made between the parties."
	chunks := c.Split("doc-1", text)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("chunk text = %q, want full document", chunks[0].Text)
	}
	if chunks[0].Start != 0 || chunks[0].End != len([]rune(text)) {
		t.Errorf("offsets = [%d, %d), want [0, %d)", chunks[0].Start, chunks[0].End, len([]rune(text)))
	}
}

func TestSplitOverlapWindow(t *testing.T) {
	// Two short sentences with a tight budget must produce multiple
	// chunks, each within the size limit, and each later chunk must
	// start inside the trailing overlap window of its predecessor.
	c, err := New(20, 5)
	if err != nil {
		t.Fatal(err)
	}

	text := "The sky is blue. Grass is green."
	chunks := c.Split("doc-1", text)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if n := len([]rune(ch.Text)); n > 20 {
			t.Errorf("chunk %d has %d runes, exceeds size 20", i, n)
		}
		if ch.Ordinal != i {
			t.Errorf("chunk %d has ordinal %d", i, ch.Ordinal)
		}
	}
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if cur.Start < prev.End-5 || cur.Start >= prev.End {
			t.Errorf("chunk %d starts at %d, want within [%d, %d)", i, cur.Start, prev.End-5, prev.End)
		}
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	c, err := New(25, 5)
	if err != nil {
		t.Fatal(err)
	}

	chunks := c.Split("doc-1", "First clause ends. Second clause continues for a while.")
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if got := chunks[0].Text; got != "First clause ends." {
		t.Errorf("first chunk = %q, want cut at the sentence boundary", got)
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	c, err := New(40, 5)
	if err != nil {
		t.Fatal(err)
	}

	text := "Recitals paragraph here\n\nOperative paragraph follows with more words"
	chunks := c.Split("doc-1", text)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, "\n\n") {
		t.Errorf("first chunk = %q, want cut after the paragraph break", chunks[0].Text)
	}
}

func TestSplitRoundTrip(t *testing.T) {
	// Dropping the overlap duplication from each chunk after the first
	// must reconstruct the original text exactly.
	texts := []string{
		"The sky is blue. Grass is green.",
		strings.Repeat("Clause 4.1 survives termination. ", 40),
		"para one\n\npara two\n\npara three with rather more body text than the others",
		"no boundaries here just one very long unbroken run of characters without punctuation at all repeated " + strings.Repeat("x", 300),
		"第一条 保密义务。第二条 违约责任。双方均应遵守本协议之约定。", // offsets are rune-based
	}

	configs := []struct{ size, overlap int }{
		{20, 5},
		{50, 10},
		{100, 0},
		{37, 36 / 2},
	}

	for _, cfg := range configs {
		c, err := New(cfg.size, cfg.overlap)
		if err != nil {
			t.Fatal(err)
		}
		for _, text := range texts {
			chunks := c.Split("doc-1", text)
			if len(chunks) == 0 {
				t.Fatalf("size=%d overlap=%d: no chunks for %q", cfg.size, cfg.overlap, text)
			}

			runes := []rune(text)
			var b strings.Builder
			prevEnd := 0
			for i, ch := range chunks {
				if got := string(runes[ch.Start:ch.End]); got != ch.Text {
					t.Fatalf("chunk %d text does not match its offsets: %q vs %q", i, ch.Text, got)
				}
				skip := prevEnd - ch.Start
				if skip < 0 {
					t.Fatalf("chunk %d leaves a gap: prev end %d, start %d", i, prevEnd, ch.Start)
				}
				b.WriteString(string([]rune(ch.Text)[skip:]))
				prevEnd = ch.End
			}
			if b.String() != text {
				t.Errorf("size=%d overlap=%d: round trip failed for %q", cfg.size, cfg.overlap, text)
			}
		}
	}
}

func TestSplitTokenEstimate(t *testing.T) {
	c, err := New(1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	chunks := c.Split("doc-1", strings.Repeat("a", 40))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].TokenEstimate != 10 {
		t.Errorf("TokenEstimate = %d, want 10", chunks[0].TokenEstimate)
	}
}

func TestChunkID(t *testing.T) {
	ch := Chunk{DocumentID: "doc-1", Ordinal: 3}
	if got := ch.ID(); got != "doc-1#3" {
		t.Errorf("ID() = %q, want doc-1#3", got)
	}
}
