package retrieval

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/clauselens/clauselens/internal/chunker"
)

// KeywordIndex is an in-memory full-text index over one document's
// chunks. It backs the keyword leg of hybrid retrieval; exact terms
// like section numbers and defined names match here even when the
// embedding space misses them.
type KeywordIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	chunks map[string]chunker.Chunk
}

type chunkDoc struct {
	Content string `json:"content"`
}

// NewKeywordIndex creates an empty in-memory keyword index.
func NewKeywordIndex() (*KeywordIndex, error) {
	index, err := bleve.NewMemOnly(buildChunkMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &KeywordIndex{
		index:  index,
		chunks: make(map[string]chunker.Chunk),
	}, nil
}

func buildChunkMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "content"

	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false
	contentField.Index = true
	docMapping.AddFieldMappingsAt("content", contentField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Add indexes chunks by their chunk ID.
func (k *KeywordIndex) Add(chunks []chunker.Chunk) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	batch := k.index.NewBatch()
	for _, ch := range chunks {
		if err := batch.Index(ch.ID(), chunkDoc{Content: ch.Text}); err != nil {
			return fmt.Errorf("index chunk %s: %w", ch.ID(), err)
		}
		k.chunks[ch.ID()] = ch
	}
	if err := k.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Search returns up to topK chunks matching the query terms. Scores are
// rank-normalized into (0, 1] so they can be weighted against cosine
// similarities.
func (k *KeywordIndex) Search(query string, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		topK = 10
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequestOptions(matchQuery, topK, 0, false)
	res, err := k.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	hits := make([]ScoredChunk, 0, len(res.Hits))
	for i, hit := range res.Hits {
		ch, ok := k.chunks[hit.ID]
		if !ok {
			continue
		}
		hits = append(hits, ScoredChunk{
			Chunk: ch,
			Score: float32(1.0 - float64(i)/float64(len(res.Hits)+1)),
		})
	}
	return hits, nil
}

// Size returns the number of indexed chunks.
func (k *KeywordIndex) Size() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.chunks)
}

// Close releases the index.
func (k *KeywordIndex) Close() error {
	return k.index.Close()
}
