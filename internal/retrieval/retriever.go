// Package retrieval selects the document chunks most relevant to a
// query and assembles them into a bounded context for generation.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/clauselens/clauselens/internal/chunker"
	"github.com/clauselens/clauselens/internal/embedding"
	"github.com/clauselens/clauselens/internal/vectorindex"
)

// ScoredChunk pairs a chunk with its relevance score.
type ScoredChunk struct {
	Chunk chunker.Chunk
	Score float32
}

// Result is the ordered outcome of one retrieval. It is transient; only
// the chunks that end up cited in an answer are persisted.
type Result struct {
	Query  string
	Chunks []ScoredChunk
}

// Empty reports whether retrieval found no grounding.
func (r *Result) Empty() bool {
	return len(r.Chunks) == 0
}

// Options configures one retrieval call.
type Options struct {
	TopK          int     // Number of candidates to return
	MinScore      float32 // Relevance floor; 0 means no floor
	Hybrid        bool    // Merge keyword hits from the text index
	VectorWeight  float32 // Weight for vector similarity (0-1)
	KeywordWeight float32 // Weight for keyword search (0-1)
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		TopK:          4,
		MinScore:      0,
		Hybrid:        false,
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	}
}

// Retriever embeds a query and searches one document's indexes.
type Retriever struct {
	embedder *embedding.Service
	index    vectorindex.Index
	keyword  *KeywordIndex // nil unless hybrid retrieval is wired
}

// NewRetriever creates a retriever over a built vector index. keyword
// may be nil; hybrid options then fall back to vector-only search.
func NewRetriever(embedder *embedding.Service, index vectorindex.Index, keyword *KeywordIndex) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		keyword:  keyword,
	}
}

// Retrieve embeds the query, collects up to TopK candidates, and drops
// any below MinScore. No surviving candidate is a defined empty-result
// state, not an error; the caller must route it to an explicit
// "no grounding" answer.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (*Result, error) {
	if opts.TopK <= 0 {
		opts.TopK = 4
	}

	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := r.index.Search(queryVector, opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	scored := make([]ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, ScoredChunk{Chunk: c.Chunk, Score: c.Score})
	}

	if opts.Hybrid && r.keyword != nil {
		scored, err = r.mergeKeywordHits(query, scored, opts)
		if err != nil {
			return nil, err
		}
	}

	filtered := make([]ScoredChunk, 0, len(scored))
	for _, sc := range scored {
		if opts.MinScore > 0 && sc.Score < opts.MinScore {
			continue
		}
		filtered = append(filtered, sc)
	}

	return &Result{Query: query, Chunks: filtered}, nil
}

// mergeKeywordHits combines vector and keyword scores into a weighted
// ranking and cuts back to TopK.
func (r *Retriever) mergeKeywordHits(query string, vectorHits []ScoredChunk, opts Options) ([]ScoredChunk, error) {
	totalWeight := opts.VectorWeight + opts.KeywordWeight
	if totalWeight == 0 {
		// Default to vector-only if both weights are 0
		return vectorHits, nil
	}
	vectorWeight := opts.VectorWeight / totalWeight
	keywordWeight := opts.KeywordWeight / totalWeight

	keywordHits, err := r.keyword.Search(query, opts.TopK*2)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	type combined struct {
		chunk        chunker.Chunk
		vectorScore  float32
		keywordScore float32
	}
	byID := make(map[string]*combined, len(vectorHits)+len(keywordHits))
	order := make([]string, 0, len(vectorHits)+len(keywordHits))

	for _, h := range vectorHits {
		id := h.Chunk.ID()
		byID[id] = &combined{chunk: h.Chunk, vectorScore: h.Score}
		order = append(order, id)
	}
	for _, h := range keywordHits {
		id := h.Chunk.ID()
		if existing, ok := byID[id]; ok {
			existing.keywordScore = h.Score
		} else {
			byID[id] = &combined{chunk: h.Chunk, keywordScore: h.Score}
			order = append(order, id)
		}
	}

	merged := make([]ScoredChunk, 0, len(order))
	for _, id := range order {
		c := byID[id]
		merged = append(merged, ScoredChunk{
			Chunk: c.chunk,
			Score: vectorWeight*c.vectorScore + keywordWeight*c.keywordScore,
		})
	}

	// Discovery order tracks ranking within each leg, so the stable
	// sort keeps earlier chunks first on ties.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if len(merged) > opts.TopK {
		merged = merged[:opts.TopK]
	}
	return merged, nil
}
