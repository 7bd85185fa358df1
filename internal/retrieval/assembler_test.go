package retrieval

import (
	"strings"
	"testing"

	"github.com/clauselens/clauselens/internal/chunker"
)

func scored(ordinal, start, end int, text string, score float32) ScoredChunk {
	return ScoredChunk{
		Chunk: chunker.Chunk{
			DocumentID: "doc-1",
			Ordinal:    ordinal,
			Start:      start,
			End:        end,
			Text:       text,
		},
		Score: score,
	}
}

func TestAssembleOrdersByScore(t *testing.T) {
	a := NewAssembler(4000, 0.8)
	assembly := a.Assemble([]ScoredChunk{
		scored(0, 0, 10, "weak match", 0.3),
		scored(1, 10, 20, "best match", 0.9),
		scored(2, 20, 30, "good match", 0.6),
	})

	want := []string{"doc-1#1", "doc-1#2", "doc-1#0"}
	if len(assembly.ChunkIDs) != len(want) {
		t.Fatalf("included %d chunks, want %d", len(assembly.ChunkIDs), len(want))
	}
	for i, id := range want {
		if assembly.ChunkIDs[i] != id {
			t.Errorf("position %d = %s, want %s", i, assembly.ChunkIDs[i], id)
		}
	}

	best := strings.Index(assembly.Context, "best match")
	good := strings.Index(assembly.Context, "good match")
	weak := strings.Index(assembly.Context, "weak match")
	if best < 0 || good < 0 || weak < 0 || !(best < good && good < weak) {
		t.Errorf("context not in score order:\n%s", assembly.Context)
	}
}

func TestAssembleTieBreaksByDocumentOrder(t *testing.T) {
	a := NewAssembler(4000, 0.8)
	assembly := a.Assemble([]ScoredChunk{
		scored(5, 50, 60, "later chunk", 0.7),
		scored(2, 20, 30, "earlier chunk", 0.7),
	})

	if len(assembly.ChunkIDs) != 2 || assembly.ChunkIDs[0] != "doc-1#2" {
		t.Errorf("tie should go to the earlier chunk, got %v", assembly.ChunkIDs)
	}
}

func TestAssembleMarkersTraceSource(t *testing.T) {
	a := NewAssembler(4000, 0.8)
	assembly := a.Assemble([]ScoredChunk{
		scored(3, 120, 145, "the governing law clause", 0.8),
	})

	if !strings.Contains(assembly.Context, "[source 3 | chars 120-145]") {
		t.Errorf("context missing source marker:\n%s", assembly.Context)
	}
}

func TestAssembleDeduplicatesIdenticalText(t *testing.T) {
	a := NewAssembler(4000, 0.8)
	assembly := a.Assemble([]ScoredChunk{
		scored(0, 0, 12, "same wording", 0.9),
		scored(7, 700, 712, "same wording", 0.5),
	})

	if len(assembly.ChunkIDs) != 1 {
		t.Fatalf("included %d chunks, want 1", len(assembly.ChunkIDs))
	}
	if assembly.ChunkIDs[0] != "doc-1#0" {
		t.Errorf("kept %s, want the higher scoring instance", assembly.ChunkIDs[0])
	}
	if assembly.Deduplicated != 1 {
		t.Errorf("Deduplicated = %d, want 1", assembly.Deduplicated)
	}
}

func TestAssembleDeduplicatesOverlappingSpans(t *testing.T) {
	a := NewAssembler(4000, 0.8)

	// Spans [0,100) and [10,100): overlap 90 of a 90-rune span, well
	// past the 0.8 threshold.
	assembly := a.Assemble([]ScoredChunk{
		scored(0, 0, 100, strings.Repeat("a", 100), 0.9),
		scored(1, 10, 100, strings.Repeat("b", 90), 0.8),
	})
	if len(assembly.ChunkIDs) != 1 || assembly.Deduplicated != 1 {
		t.Errorf("overlapping spans should dedup: ids=%v deduped=%d", assembly.ChunkIDs, assembly.Deduplicated)
	}

	// Spans [0,100) and [60,160): overlap 40 of 100, under threshold.
	assembly = a.Assemble([]ScoredChunk{
		scored(0, 0, 100, strings.Repeat("a", 100), 0.9),
		scored(1, 60, 160, strings.Repeat("b", 100), 0.8),
	})
	if len(assembly.ChunkIDs) != 2 || assembly.Deduplicated != 0 {
		t.Errorf("lightly overlapping spans should both survive: ids=%v deduped=%d", assembly.ChunkIDs, assembly.Deduplicated)
	}
}

func TestAssembleOmitsOversizedChunk(t *testing.T) {
	// A chunk larger than the whole budget sits alongside two small,
	// higher-scoring chunks. The small ones go in, the oversized one is
	// omitted whole and counted, never truncated.
	a := NewAssembler(200, 0.8)
	oversized := strings.Repeat("x", 500)

	assembly := a.Assemble([]ScoredChunk{
		scored(0, 0, 20, "small chunk one", 0.9),
		scored(1, 20, 40, "small chunk two", 0.8),
		scored(2, 40, 540, oversized, 0.7),
	})

	if len(assembly.ChunkIDs) != 2 {
		t.Fatalf("included %d chunks, want the 2 small ones", len(assembly.ChunkIDs))
	}
	if assembly.OmittedDueToBudget != 1 {
		t.Errorf("OmittedDueToBudget = %d, want 1", assembly.OmittedDueToBudget)
	}
	if strings.Contains(assembly.Context, "xxx") {
		t.Error("oversized chunk leaked into the context")
	}
}

func TestAssembleEmptyInput(t *testing.T) {
	a := NewAssembler(4000, 0.8)
	assembly := a.Assemble(nil)
	if !assembly.Empty() {
		t.Error("expected empty assembly for no input")
	}
	if len(assembly.ChunkIDs) != 0 {
		t.Errorf("ChunkIDs = %v, want none", assembly.ChunkIDs)
	}
}

func TestAssembleEverythingOversized(t *testing.T) {
	a := NewAssembler(50, 0.8)
	assembly := a.Assemble([]ScoredChunk{
		scored(0, 0, 500, strings.Repeat("a", 500), 0.9),
	})
	if !assembly.Empty() {
		t.Error("expected empty context when nothing fits")
	}
	if assembly.OmittedDueToBudget != 1 {
		t.Errorf("OmittedDueToBudget = %d, want 1", assembly.OmittedDueToBudget)
	}
}
