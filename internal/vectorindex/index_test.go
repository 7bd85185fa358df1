package vectorindex

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/clauselens/clauselens/internal/chunker"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode=WAL")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// backends returns each implementation under test behind the Index
// interface.
func backends(t *testing.T) map[string]Index {
	t.Helper()
	sqliteIdx, err := NewSQLiteIndex(openTestDB(t), "doc-1", "fake-embedder")
	if err != nil {
		t.Fatalf("failed to create sqlite index: %v", err)
	}
	return map[string]Index{
		"memory": NewMemoryIndex(),
		"sqlite": sqliteIdx,
	}
}

func entry(ordinal int, text string, vector ...float32) Entry {
	return Entry{
		Chunk: chunker.Chunk{
			DocumentID: "doc-1",
			Ordinal:    ordinal,
			Start:      ordinal * 10,
			End:        ordinal*10 + len(text),
			Text:       text,
		},
		Vector: vector,
	}
}

func TestIndexAddAndSearch(t *testing.T) {
	for name, idx := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := idx.Add([]Entry{
				entry(0, "indemnity clause", 1, 0, 0),
				entry(1, "termination terms", 0, 1, 0),
				entry(2, "payment schedule", 0.9, 0.1, 0),
			})
			if err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			if idx.Size() != 3 {
				t.Fatalf("Size = %d, want 3", idx.Size())
			}

			results, err := idx.Search([]float32{1, 0, 0}, 2)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if len(results) != 2 {
				t.Fatalf("got %d results, want 2", len(results))
			}
			if results[0].Chunk.Ordinal != 0 {
				t.Errorf("best match ordinal = %d, want 0", results[0].Chunk.Ordinal)
			}
			if results[1].Chunk.Ordinal != 2 {
				t.Errorf("second match ordinal = %d, want 2", results[1].Chunk.Ordinal)
			}
			for i := 1; i < len(results); i++ {
				if results[i].Score > results[i-1].Score {
					t.Errorf("scores not monotonically non-increasing: %v", results)
				}
			}
		})
	}
}

func TestIndexDimensionMismatch(t *testing.T) {
	for name, idx := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := idx.Add([]Entry{entry(0, "a", 1, 0, 0)}); err != nil {
				t.Fatal(err)
			}

			err := idx.Add([]Entry{entry(1, "b", 1, 0)})
			var dm *DimensionMismatchError
			if !errors.As(err, &dm) {
				t.Fatalf("expected DimensionMismatchError, got %v", err)
			}
			if dm.Want != 3 || dm.Got != 2 {
				t.Errorf("mismatch reported %d/%d, want 3/2", dm.Want, dm.Got)
			}

			// Query vectors are held to the same contract.
			if _, err := idx.Search([]float32{1, 0}, 1); err == nil {
				t.Error("expected error for mismatched query vector")
			}
		})
	}
}

func TestIndexSearchInvalidK(t *testing.T) {
	for name, idx := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := idx.Search([]float32{1, 0, 0}, 0); !errors.Is(err, ErrInvalidK) {
				t.Errorf("k=0: got %v, want ErrInvalidK", err)
			}
			if _, err := idx.Search([]float32{1, 0, 0}, -3); !errors.Is(err, ErrInvalidK) {
				t.Errorf("k=-3: got %v, want ErrInvalidK", err)
			}
		})
	}
}

func TestIndexSearchEmpty(t *testing.T) {
	for name, idx := range backends(t) {
		t.Run(name, func(t *testing.T) {
			results, err := idx.Search([]float32{1, 0, 0}, 5)
			if err != nil {
				t.Fatalf("Search on empty index failed: %v", err)
			}
			if len(results) != 0 {
				t.Errorf("expected empty result, got %d entries", len(results))
			}
		})
	}
}

func TestIndexTieBreakInsertionOrder(t *testing.T) {
	for name, idx := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// Identical vectors score identically; the earlier chunk
			// must win.
			err := idx.Add([]Entry{
				entry(0, "first copy", 0, 1, 0),
				entry(1, "second copy", 0, 1, 0),
				entry(2, "third copy", 0, 1, 0),
			})
			if err != nil {
				t.Fatal(err)
			}

			results, err := idx.Search([]float32{0, 1, 0}, 3)
			if err != nil {
				t.Fatal(err)
			}
			for i, r := range results {
				if r.Chunk.Ordinal != i {
					t.Errorf("position %d has ordinal %d, want insertion order preserved", i, r.Chunk.Ordinal)
				}
			}
		})
	}
}

func TestIndexClearAndRebuild(t *testing.T) {
	for name, idx := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := idx.Add([]Entry{entry(0, "a", 1, 0, 0)}); err != nil {
				t.Fatal(err)
			}
			if err := idx.Clear(); err != nil {
				t.Fatal(err)
			}
			if idx.Size() != 0 {
				t.Fatalf("Size after Clear = %d", idx.Size())
			}

			// A rebuild may use a different dimensionality.
			if err := idx.Add([]Entry{entry(0, "a", 1, 0)}); err != nil {
				t.Errorf("Add after Clear failed: %v", err)
			}
		})
	}
}

func TestSQLiteIndexPersistence(t *testing.T) {
	db := openTestDB(t)

	idx, err := NewSQLiteIndex(db, "doc-1", "fake-embedder")
	if err != nil {
		t.Fatal(err)
	}
	err = idx.Add([]Entry{
		entry(0, "confidentiality", 1, 0, 0),
		entry(1, "liability cap", 0, 1, 0),
	})
	if err != nil {
		t.Fatal(err)
	}

	// A fresh handle over the same database sees the built index.
	reopened, err := NewSQLiteIndex(db, "doc-1", "fake-embedder")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Size() != 2 {
		t.Fatalf("reopened Size = %d, want 2", reopened.Size())
	}

	results, err := reopened.Search([]float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chunk.Text != "confidentiality" {
		t.Errorf("unexpected results after reopen: %+v", results)
	}

	// A different model identifier must refuse to reuse the index.
	if _, err := NewSQLiteIndex(db, "doc-1", "other-model"); err == nil {
		t.Error("expected error when reopening under a different model")
	}

	// Other documents are isolated.
	other, err := NewSQLiteIndex(db, "doc-2", "fake-embedder")
	if err != nil {
		t.Fatal(err)
	}
	if other.Size() != 0 {
		t.Errorf("doc-2 index should be empty, has %d entries", other.Size())
	}
}

func TestSQLiteIndexChunks(t *testing.T) {
	idx, err := NewSQLiteIndex(openTestDB(t), "doc-1", "fake-embedder")
	if err != nil {
		t.Fatal(err)
	}
	err = idx.Add([]Entry{
		entry(1, "second", 0, 1, 0),
		entry(0, "first", 1, 0, 0),
	})
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := idx.Chunks()
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 || chunks[0].Text != "first" || chunks[1].Text != "second" {
		t.Errorf("chunks not in document order: %+v", chunks)
	}
}

func TestVectorBlobRoundTrip(t *testing.T) {
	vec := []float32{0.1, -2.5, 3.75, 0}
	got, err := blobToVector(vectorToBlob(vec))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(vec) {
		t.Fatalf("length %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("index %d: %v != %v", i, got[i], vec[i])
		}
	}

	if _, err := blobToVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for blob not a multiple of 4")
	}
}
