// Package chunker splits normalized document text into overlapping
// segments sized for embedding and retrieval.
package chunker

import (
	"fmt"
)

// Chunk is a bounded contiguous slice of a document's text. Offsets are
// rune positions into the parent text, so Text always equals
// text[Start:End] in rune terms and retrieval hits trace back to an
// exact location in the source.
type Chunk struct {
	DocumentID    string
	Ordinal       int
	Start         int
	End           int
	Text          string
	TokenEstimate int
}

// ID returns a stable identifier for the chunk within its document.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s#%d", c.DocumentID, c.Ordinal)
}

// InvalidConfigError reports unusable chunking parameters. It is
// returned before any splitting work starts.
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid chunking config: %s", e.Reason)
}

// Chunker splits text with a fixed size and overlap, both measured in
// runes.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. size is the maximum chunk length and overlap
// the number of trailing runes repeated at the start of the next chunk,
// with 0 <= overlap < size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, &InvalidConfigError{Reason: fmt.Sprintf("chunk size must be positive, got %d", size)}
	}
	if overlap < 0 {
		return nil, &InvalidConfigError{Reason: fmt.Sprintf("overlap must not be negative, got %d", overlap)}
	}
	if overlap >= size {
		return nil, &InvalidConfigError{Reason: fmt.Sprintf("overlap %d must be smaller than chunk size %d", overlap, size)}
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split produces the document's chunks in order. Empty text yields an
// empty sequence. Each chunk ends at the paragraph or sentence boundary
// nearest the size limit when one exists far enough in, and falls back
// to a hard cut otherwise.
func (c *Chunker) Split(docID, text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.cut(runes, start, end)
		}

		segment := string(runes[start:end])
		chunks = append(chunks, Chunk{
			DocumentID:    docID,
			Ordinal:       len(chunks),
			Start:         start,
			End:           end,
			Text:          segment,
			TokenEstimate: estimateTokens(end - start),
		})

		if end == len(runes) {
			break
		}
		start = end - c.overlap
	}

	return chunks
}

// cut picks the split point for a chunk spanning [start, limit). It
// prefers the last paragraph break, then the last sentence end, then
// the last newline before the limit. A boundary is only taken when it
// leaves the chunk longer than the overlap, otherwise consecutive
// chunks would stop advancing.
func (c *Chunker) cut(runes []rune, start, limit int) int {
	minCut := start + c.overlap + 1

	if p := lastParagraphBreak(runes, start, limit); p >= minCut {
		return p
	}
	if s := lastSentenceEnd(runes, start, limit); s >= minCut {
		return s
	}
	if n := lastNewline(runes, start, limit); n >= minCut {
		return n
	}
	return limit
}

// lastParagraphBreak returns the position just after the last blank
// line in (start, limit), or -1.
func lastParagraphBreak(runes []rune, start, limit int) int {
	for i := limit - 1; i > start; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	return -1
}

// lastSentenceEnd returns the position just after the last sentence
// terminator in (start, limit) that is followed by whitespace, or -1.
func lastSentenceEnd(runes []rune, start, limit int) int {
	for i := limit - 1; i > start; i-- {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		if i+1 < len(runes) && !isSpace(runes[i+1]) {
			continue
		}
		return i + 1
	}
	return -1
}

// lastNewline returns the position just after the last newline in
// (start, limit), or -1.
func lastNewline(runes []rune, start, limit int) int {
	for i := limit - 1; i > start; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	return -1
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', ';':
		return true
	}
	return false
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n':
		return true
	}
	return false
}

// estimateTokens approximates the token count of a segment. Hosted
// models average roughly four characters per token for English prose.
func estimateTokens(runeCount int) int {
	if runeCount == 0 {
		return 0
	}
	return (runeCount + 3) / 4
}
