package session

import "time"

// DocumentRecord is the persisted state of one ingested document.
type DocumentRecord struct {
	ID             string
	Name           string
	Path           string
	Format         string
	CharCount      int
	ChunkCount     int
	MissingChunks  int // Chunks without vectors after a degraded build
	EmbeddingModel string
	LoadedAt       time.Time
	IndexedAt      *time.Time // nil while the index build is in progress
}

// Ready reports whether the document's index build completed and
// queries may be served against it.
func (d *DocumentRecord) Ready() bool {
	return d.IndexedAt != nil
}

// Exchange is one question/answer pair in a document's history.
// History is append-only; failed generation calls never reach it.
type Exchange struct {
	ID             string
	DocID          string
	Question       string
	Answer         string
	Grounded       bool
	SourceChunkIDs []string
	CreatedAt      time.Time
}
