package analysis

import (
	"context"
	"fmt"

	"github.com/clauselens/clauselens/internal/document"
)

// Focus selects what a comparison should concentrate on.
type Focus string

const (
	FocusGeneral    Focus = "general"
	FocusClauses    Focus = "clauses"
	FocusCompliance Focus = "compliance"
	FocusRisk       Focus = "risk"
)

var focusInstructions = map[Focus]string{
	FocusGeneral:    "Compare these documents generally, highlighting similarities and differences.",
	FocusClauses:    "Focus on legal clauses, terms, and conditions. Compare how they differ between documents.",
	FocusCompliance: "Focus on compliance aspects like regulatory requirements and governance provisions.",
	FocusRisk:       "Focus on risk elements, liabilities, and how risks are addressed in each document.",
}

// ParseFocus maps a user-supplied focus name, defaulting to general.
func ParseFocus(s string) Focus {
	switch Focus(s) {
	case FocusClauses, FocusCompliance, FocusRisk:
		return Focus(s)
	}
	return FocusGeneral
}

// Comparison is the outcome of comparing two documents.
type Comparison struct {
	Similarity float64  // Percent similarity of the full texts
	Diff       []string // Unified-format line diff
	Analysis   string   // LLM analysis of bounded excerpts
}

// Compare measures textual similarity, produces a line diff, and asks
// the model for a focused analysis. The similarity and diff cover the
// full texts; only the LLM excerpts are capped.
func (a *Analyzer) Compare(ctx context.Context, doc1, doc2 *document.Document, focus Focus) (*Comparison, error) {
	if doc1.Text == "" || doc2.Text == "" {
		return nil, fmt.Errorf("both documents need text to compare")
	}

	cmp := &Comparison{
		Similarity: SimilarityRatio(doc1.Text, doc2.Text),
		Diff:       UnifiedDiff(doc1.Text, doc2.Text, doc1.Name, doc2.Name),
	}

	instruction, ok := focusInstructions[focus]
	if !ok {
		instruction = focusInstructions[FocusGeneral]
	}

	maxChars := a.compareCap()
	prompt := fmt.Sprintf(
		"Compare these two legal documents:\n\n"+
			"Document 1 (%s):\n%s\n\n"+
			"Document 2 (%s):\n%s\n\n"+
			"%s\n\n"+
			"Provide your analysis in this format:\n"+
			"1. A paragraph explaining the main comparison findings\n"+
			"2. Key differences organized by category\n"+
			"3. Common elements shared between documents\n",
		doc1.Name, excerpt(doc1.Text, maxChars),
		doc2.Name, excerpt(doc2.Text, maxChars),
		instruction,
	)

	analysis, err := a.gen.Complete(ctx, analystSystemInstruction, prompt)
	if err != nil {
		// Similarity and diff are already computed; return them so the
		// caller can still show the rule-based comparison.
		return cmp, fmt.Errorf("comparison analysis failed: %w", err)
	}
	cmp.Analysis = analysis

	return cmp, nil
}
