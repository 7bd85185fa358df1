// Package vectorindex stores (vector, chunk) entries for one document
// and answers cosine nearest-neighbor queries over them.
package vectorindex

import (
	"errors"
	"fmt"

	"github.com/clauselens/clauselens/internal/chunker"
)

// Entry pairs an embedding vector with the chunk it was produced from.
type Entry struct {
	Chunk  chunker.Chunk
	Vector []float32
}

// Result is one search hit.
type Result struct {
	Chunk chunker.Chunk
	Score float32
}

// ErrInvalidK is returned when a search is requested with k <= 0.
var ErrInvalidK = errors.New("search k must be positive")

// DimensionMismatchError reports a vector whose length differs from the
// index's fixed dimensionality. The index never coerces; the insert is
// rejected in full.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: index has %d, got %d", e.Want, e.Got)
}

// Index is a nearest-neighbor index scoped to a single document. The
// dimensionality is fixed by the first insert; all entries must come
// from the same embedding model. Implementations are safe for
// concurrent reads once the build is complete.
type Index interface {
	// Add appends entries, rejecting any vector whose length differs
	// from the established dimensionality.
	Add(entries []Entry) error

	// Search returns up to k nearest neighbors by cosine similarity,
	// sorted descending by score. Ties break toward the earlier chunk
	// in document order. An empty index yields an empty result.
	Search(query []float32, k int) ([]Result, error)

	// Size returns the current entry count.
	Size() int

	// Clear discards all entries so the index can be rebuilt.
	Clear() error
}

// validateSearch checks the common search preconditions.
func validateSearch(query []float32, k int) error {
	if k <= 0 {
		return ErrInvalidK
	}
	if len(query) == 0 {
		return fmt.Errorf("query vector is empty")
	}
	return nil
}
