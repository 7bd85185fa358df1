package document

import (
	"time"

	"github.com/google/uuid"
)

// Document is an immutable loaded document. Re-loading the same file
// produces a new Document with a new ID; documents are superseded, not
// mutated.
type Document struct {
	ID       string
	Name     string // Display name, usually the base filename
	Path     string // Source path on disk, empty for in-memory docs
	Format   string // Source format, e.g. "txt", "md"
	Text     string // Normalized plain text
	LoadedAt time.Time
}

// New creates a document from already-normalized text.
func New(name, format, text string) *Document {
	return &Document{
		ID:       uuid.NewString(),
		Name:     name,
		Format:   format,
		Text:     text,
		LoadedAt: time.Now().UTC(),
	}
}
