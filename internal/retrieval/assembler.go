package retrieval

import (
	"fmt"
	"sort"
	"strings"
)

// Assembly is the bounded context built from retrieval results. Each
// included chunk contributes a marked block so answers can cite the
// exact source span.
type Assembly struct {
	Context            string
	ChunkIDs           []string // Chunks included, in context order
	OmittedDueToBudget int      // Chunks skipped because they did not fit
	Deduplicated       int      // Near-duplicate chunks dropped
}

// Empty reports an empty-context condition. The generator must surface
// it as "cannot answer from document", never as a silent guess.
func (a *Assembly) Empty() bool {
	return a.Context == ""
}

// Assembler concatenates retrieved chunks into a single context string
// under a character budget.
type Assembler struct {
	budget       int
	dedupOverlap float64
}

// NewAssembler creates an assembler. budget is the maximum context
// length in runes; dedupOverlap is the span-overlap fraction above
// which two chunks of the same document count as duplicates.
func NewAssembler(budget int, dedupOverlap float64) *Assembler {
	if budget <= 0 {
		budget = 4000
	}
	if dedupOverlap <= 0 || dedupOverlap > 1 {
		dedupOverlap = 0.8
	}
	return &Assembler{budget: budget, dedupOverlap: dedupOverlap}
}

// Assemble orders chunks by descending score (ties go to document
// order), drops near-duplicates keeping the higher-scoring instance,
// and packs what fits. A chunk that exceeds the remaining budget is
// omitted whole, never cut mid-text.
func (a *Assembler) Assemble(chunks []ScoredChunk) *Assembly {
	ordered := make([]ScoredChunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		if ordered[i].Chunk.DocumentID != ordered[j].Chunk.DocumentID {
			return ordered[i].Chunk.DocumentID < ordered[j].Chunk.DocumentID
		}
		return ordered[i].Chunk.Ordinal < ordered[j].Chunk.Ordinal
	})

	assembly := &Assembly{}
	kept := make([]ScoredChunk, 0, len(ordered))

	for _, candidate := range ordered {
		duplicate := false
		for _, existing := range kept {
			if a.isDuplicate(candidate, existing) {
				duplicate = true
				break
			}
		}
		if duplicate {
			assembly.Deduplicated++
			continue
		}
		kept = append(kept, candidate)
	}

	var b strings.Builder
	used := 0
	for _, sc := range kept {
		block := formatBlock(sc)
		cost := len([]rune(block))
		if used+cost > a.budget {
			assembly.OmittedDueToBudget++
			continue
		}
		b.WriteString(block)
		used += cost
		assembly.ChunkIDs = append(assembly.ChunkIDs, sc.Chunk.ID())
	}

	assembly.Context = strings.TrimSpace(b.String())
	return assembly
}

// formatBlock prefixes a chunk with a traceable source marker.
func formatBlock(sc ScoredChunk) string {
	return fmt.Sprintf("[source %d | chars %d-%d]\n%s\n\n",
		sc.Chunk.Ordinal, sc.Chunk.Start, sc.Chunk.End, sc.Chunk.Text)
}

// isDuplicate reports whether two chunks carry redundant text: either
// identical content or spans of the same document overlapping by more
// than the configured fraction of the smaller span.
func (a *Assembler) isDuplicate(x, y ScoredChunk) bool {
	if x.Chunk.Text == y.Chunk.Text {
		return true
	}
	if x.Chunk.DocumentID != y.Chunk.DocumentID {
		return false
	}

	overlap := spanOverlap(x.Chunk.Start, x.Chunk.End, y.Chunk.Start, y.Chunk.End)
	if overlap <= 0 {
		return false
	}
	smaller := x.Chunk.End - x.Chunk.Start
	if other := y.Chunk.End - y.Chunk.Start; other < smaller {
		smaller = other
	}
	if smaller <= 0 {
		return false
	}
	return float64(overlap)/float64(smaller) > a.dedupOverlap
}

func spanOverlap(aStart, aEnd, bStart, bEnd int) int {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	return end - start
}
