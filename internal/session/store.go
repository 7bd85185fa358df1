// Package session persists per-document state: the document record,
// its readiness flag, and the append-only question/answer history.
package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrDocumentNotFound is returned when no document matches a reference.
var ErrDocumentNotFound = errors.New("document not found")

// Store provides session persistence over the shared database.
type Store struct {
	db *DB
}

// NewStore creates a session store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// SaveDocument inserts a document record in its pre-index state.
func (s *Store) SaveDocument(rec *DocumentRecord) error {
	_, err := s.db.sqlDB.Exec(`
		INSERT INTO documents (id, name, path, format, char_count, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Name, rec.Path, rec.Format, rec.CharCount,
		rec.LoadedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// MarkIndexed records build completion. Only after this call does the
// document answer queries.
func (s *Store) MarkIndexed(docID string, chunkCount, missingChunks int, embeddingModel string) error {
	res, err := s.db.sqlDB.Exec(`
		UPDATE documents
		SET chunk_count = ?, missing_chunks = ?, embedding_model = ?, indexed_at = ?
		WHERE id = ?
	`, chunkCount, missingChunks, embeddingModel,
		time.Now().UTC().Format(time.RFC3339), docID)
	if err != nil {
		return fmt.Errorf("failed to mark document indexed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// GetDocument loads a document by ID.
func (s *Store) GetDocument(docID string) (*DocumentRecord, error) {
	return s.scanDocument(s.db.sqlDB.QueryRow(
		documentSelect+" WHERE id = ?", docID))
}

// ResolveDocument loads a document by ID or, failing that, by name. A
// name used for several ingests resolves to the most recent one, which
// supersedes the others.
func (s *Store) ResolveDocument(ref string) (*DocumentRecord, error) {
	rec, err := s.GetDocument(ref)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrDocumentNotFound) {
		return nil, err
	}
	return s.scanDocument(s.db.sqlDB.QueryRow(
		documentSelect+" WHERE name = ? ORDER BY loaded_at DESC LIMIT 1", ref))
}

// LatestDocument returns the most recently ingested document.
func (s *Store) LatestDocument() (*DocumentRecord, error) {
	return s.scanDocument(s.db.sqlDB.QueryRow(
		documentSelect + " ORDER BY loaded_at DESC LIMIT 1"))
}

// ListDocuments returns all documents, most recent first.
func (s *Store) ListDocuments() ([]*DocumentRecord, error) {
	rows, err := s.db.sqlDB.Query(documentSelect + " ORDER BY loaded_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var records []*DocumentRecord
	for rows.Next() {
		rec, err := s.scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteDocument removes a document, its history, and its vectors.
func (s *Store) DeleteDocument(docID string) error {
	tx, err := s.db.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM exchanges WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	// The embeddings table may not exist before the first ingest.
	tx.Exec("DELETE FROM embeddings WHERE doc_id = ?", docID)
	if _, err := tx.Exec("DELETE FROM documents WHERE id = ?", docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return tx.Commit()
}

// AppendExchange appends one question/answer pair to the document's
// history. Callers invoke this on generation success only.
func (s *Store) AppendExchange(ex *Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}

	sources, err := json.Marshal(ex.SourceChunkIDs)
	if err != nil {
		return fmt.Errorf("failed to encode source chunks: %w", err)
	}

	_, err = s.db.sqlDB.Exec(`
		INSERT INTO exchanges (id, doc_id, question, answer, grounded, source_chunks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ex.ID, ex.DocID, ex.Question, ex.Answer, boolToInt(ex.Grounded),
		string(sources), ex.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append exchange: %w", err)
	}
	return nil
}

// History returns the document's most recent exchanges in chronological
// order. limit <= 0 returns the full history.
func (s *Store) History(docID string, limit int) ([]*Exchange, error) {
	query := `
		SELECT id, doc_id, question, answer, grounded, source_chunks, created_at
		FROM exchanges WHERE doc_id = ? ORDER BY rowid DESC
	`
	args := []any{docID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.sqlDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var exchanges []*Exchange
	for rows.Next() {
		ex := &Exchange{}
		var grounded int
		var sources, createdAt string
		if err := rows.Scan(&ex.ID, &ex.DocID, &ex.Question, &ex.Answer, &grounded, &sources, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		ex.Grounded = grounded != 0
		if err := json.Unmarshal([]byte(sources), &ex.SourceChunkIDs); err != nil {
			ex.SourceChunkIDs = nil
		}
		ex.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows arrive newest first; flip to chronological order.
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}
	return exchanges, nil
}

// ClearHistory removes all exchanges for a document.
func (s *Store) ClearHistory(docID string) error {
	if _, err := s.db.sqlDB.Exec("DELETE FROM exchanges WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

const documentSelect = `
	SELECT id, name, path, format, char_count, chunk_count, missing_chunks,
	       embedding_model, loaded_at, indexed_at
	FROM documents
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanDocument(row *sql.Row) (*DocumentRecord, error) {
	rec, err := s.scanDocumentRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *Store) scanDocumentRow(row rowScanner) (*DocumentRecord, error) {
	rec := &DocumentRecord{}
	var loadedAt string
	var indexedAt sql.NullString
	err := row.Scan(&rec.ID, &rec.Name, &rec.Path, &rec.Format, &rec.CharCount,
		&rec.ChunkCount, &rec.MissingChunks, &rec.EmbeddingModel, &loadedAt, &indexedAt)
	if err != nil {
		return nil, err
	}
	rec.LoadedAt, _ = time.Parse(time.RFC3339, loadedAt)
	if indexedAt.Valid {
		t, err := time.Parse(time.RFC3339, indexedAt.String)
		if err == nil {
			rec.IndexedAt = &t
		}
	}
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
