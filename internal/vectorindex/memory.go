package vectorindex

import (
	"sort"
	"sync"

	"github.com/clauselens/clauselens/internal/embedding"
)

// MemoryIndex is an in-process index over a single document's chunks.
// Suited to one-shot sessions and comparison workflows where nothing
// needs to outlive the process.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []Entry
	dims    int
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add appends entries to the index.
func (m *MemoryIndex) Add(entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if len(e.Vector) == 0 {
			continue
		}
		if m.dims == 0 {
			m.dims = len(e.Vector)
		} else if len(e.Vector) != m.dims {
			return &DimensionMismatchError{Want: m.dims, Got: len(e.Vector)}
		}
		m.entries = append(m.entries, e)
	}
	return nil
}

// Search returns the top k entries by cosine similarity.
func (m *MemoryIndex) Search(query []float32, k int) ([]Result, error) {
	if err := validateSearch(query, k); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return nil, nil
	}
	if len(query) != m.dims {
		return nil, &DimensionMismatchError{Want: m.dims, Got: len(query)}
	}

	results := make([]Result, 0, len(m.entries))
	for _, e := range m.entries {
		results = append(results, Result{
			Chunk: e.Chunk,
			Score: embedding.Similarity(query, e.Vector),
		})
	}

	// Entries are held in insertion order, so a stable sort keeps the
	// earlier chunk first on score ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Size returns the entry count.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear discards all entries.
func (m *MemoryIndex) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.dims = 0
	return nil
}
