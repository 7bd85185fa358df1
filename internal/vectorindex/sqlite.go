package vectorindex

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/clauselens/clauselens/internal/chunker"
	"github.com/clauselens/clauselens/internal/embedding"
)

// SQLiteIndex persists one document's entries in an embeddings table so
// a later process can query an index it did not build. Rows carry the
// full chunk payload; the index is self-contained.
type SQLiteIndex struct {
	mu    sync.RWMutex
	db    *sql.DB
	docID string
	model string
	dims  int
	count int
}

const embeddingsSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
    doc_id         TEXT NOT NULL,
    ordinal        INTEGER NOT NULL,
    vector         BLOB NOT NULL,
    dimension      INTEGER NOT NULL,
    model          TEXT NOT NULL,
    start_offset   INTEGER NOT NULL,
    end_offset     INTEGER NOT NULL,
    content        TEXT NOT NULL,
    token_estimate INTEGER NOT NULL,
    created_at     TEXT NOT NULL,
    PRIMARY KEY (doc_id, ordinal)
);
CREATE INDEX IF NOT EXISTS idx_embeddings_doc ON embeddings(doc_id);
`

// NewSQLiteIndex opens (or creates) the persistent index for one
// document. The model identifier is fixed per index; opening an
// existing index under a different model is an error because vectors
// from different models must never mix.
func NewSQLiteIndex(db *sql.DB, docID, model string) (*SQLiteIndex, error) {
	if docID == "" {
		return nil, fmt.Errorf("document id is required")
	}

	if _, err := db.Exec(embeddingsSchema); err != nil {
		return nil, fmt.Errorf("failed to ensure embeddings schema: %w", err)
	}

	idx := &SQLiteIndex{db: db, docID: docID, model: model}

	var count int
	var dims sql.NullInt64
	var storedModel sql.NullString
	err := db.QueryRow(
		"SELECT COUNT(*), MAX(dimension), MAX(model) FROM embeddings WHERE doc_id = ?",
		docID,
	).Scan(&count, &dims, &storedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect existing index: %w", err)
	}

	if count > 0 {
		if storedModel.String != model {
			return nil, fmt.Errorf("index for document %s was built with model %q, not %q",
				docID, storedModel.String, model)
		}
		idx.count = count
		idx.dims = int(dims.Int64)
	}

	return idx, nil
}

// Add appends entries inside a single transaction.
func (s *SQLiteIndex) Add(entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	valid := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if len(e.Vector) == 0 {
			continue
		}
		if s.dims == 0 {
			s.dims = len(e.Vector)
		} else if len(e.Vector) != s.dims {
			return &DimensionMismatchError{Want: s.dims, Got: len(e.Vector)}
		}
		valid = append(valid, e)
	}
	if len(valid) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO embeddings
			(doc_id, ordinal, vector, dimension, model, start_offset, end_offset, content, token_estimate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)

	for _, e := range valid {
		blob := vectorToBlob(e.Vector)
		if _, err := stmt.Exec(
			s.docID, e.Chunk.Ordinal, blob, len(e.Vector), s.model,
			e.Chunk.Start, e.Chunk.End, e.Chunk.Text, e.Chunk.TokenEstimate, now,
		); err != nil {
			return fmt.Errorf("failed to insert entry %d: %w", e.Chunk.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.count += len(valid)
	return nil
}

// Search scans the document's vectors and ranks them by cosine
// similarity. A full scan is fine at per-document scale; one document
// rarely exceeds a few thousand chunks.
func (s *SQLiteIndex) Search(query []float32, k int) ([]Result, error) {
	if err := validateSearch(query, k); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return nil, nil
	}
	if len(query) != s.dims {
		return nil, &DimensionMismatchError{Want: s.dims, Got: len(query)}
	}

	rows, err := s.db.Query(`
		SELECT ordinal, vector, start_offset, end_offset, content, token_estimate
		FROM embeddings WHERE doc_id = ? ORDER BY ordinal
	`, s.docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var ordinal, start, end, tokens int
		var blob []byte
		var content string
		if err := rows.Scan(&ordinal, &blob, &start, &end, &content, &tokens); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		vector, err := blobToVector(blob)
		if err != nil || len(vector) != len(query) {
			continue // Skip malformed rows
		}

		results = append(results, Result{
			Chunk: chunker.Chunk{
				DocumentID:    s.docID,
				Ordinal:       ordinal,
				Start:         start,
				End:           end,
				Text:          content,
				TokenEstimate: tokens,
			},
			Score: embedding.Similarity(query, vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	// Rows arrive in ordinal order, so the stable sort keeps the
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
func (s *SQLiteIndex) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Clear removes every entry for this document.
func (s *SQLiteIndex) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM embeddings WHERE doc_id = ?", s.docID); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	s.count = 0
	s.dims = 0
	return nil
}

// Chunks returns the stored chunk set in document order, without
// vectors. Used by analysis flows that need the full text back.
func (s *SQLiteIndex) Chunks() ([]chunker.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT ordinal, start_offset, end_offset, content, token_estimate
		FROM embeddings WHERE doc_id = ? ORDER BY ordinal
	`, s.docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []chunker.Chunk
	for rows.Next() {
		var ordinal, start, end, tokens int
		var content string
		if err := rows.Scan(&ordinal, &start, &end, &content, &tokens); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		chunks = append(chunks, chunker.Chunk{
			DocumentID:    s.docID,
			Ordinal:       ordinal,
			Start:         start,
			End:           end,
			Text:          content,
			TokenEstimate: tokens,
		})
	}
	return chunks, rows.Err()
}

// vectorToBlob converts a float32 slice to a little-endian binary blob
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		bits := math.Float32bits(v)
		binary.LittleEndian.PutUint32(blob[i*4:i*4+4], bits)
	}
	return blob
}

// blobToVector converts a binary blob back to a float32 slice
func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob size %d is not a multiple of 4", len(blob))
	}

	vector := make([]float32, len(blob)/4)
	for i := 0; i < len(vector); i++ {
		bits := binary.LittleEndian.Uint32(blob[i*4 : i*4+4])
		vector[i] = math.Float32frombits(bits)
	}

	return vector, nil
}
