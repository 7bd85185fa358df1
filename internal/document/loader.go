package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
)

// Loader reads plain-text documents from disk and normalizes them for
// chunking. Binary formats (PDF, DOCX) are out of scope; text extraction
// for those happens upstream.
type Loader struct{}

// NewLoader creates a document loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads a single file and returns a normalized document.
func (l *Loader) Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	text := Normalize(string(data))

	doc := New(filepath.Base(path), formatFromPath(path), text)
	doc.Path = path
	return doc, nil
}

// LoadGlob expands a doublestar pattern (e.g. "contracts/**/*.txt") and
// loads every matching file. A pattern with no matches is an error so
// typos surface instead of silently ingesting nothing.
func (l *Loader) LoadGlob(pattern string) ([]*Document, error) {
	base, pat := doublestar.SplitPattern(pattern)

	matches, err := doublestar.Glob(os.DirFS(base), pat)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", pattern)
	}

	docs := make([]*Document, 0, len(matches))
	for _, m := range matches {
		full := filepath.Join(base, m)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		doc, err := l.Load(full)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no readable files match pattern: %s", pattern)
	}

	return docs, nil
}

// Normalize cleans raw extracted text for chunking: line endings are
// unified, control characters are stripped, runs of blank lines collapse
// to one paragraph break, and trailing whitespace is removed per line.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	text = b.String()

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

func formatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "txt"
	}
	return ext
}
