// Package analysis drives whole-document LLM flows: summaries, risk
// reviews, and document comparison. Unlike question answering these do
// not retrieve; they send a bounded excerpt of the full text.
package analysis

import (
	"context"
	"fmt"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/document"
	"github.com/clauselens/clauselens/internal/generation"
)

const analystSystemInstruction = "You are a legal document specialist. " +
	"Work only from the document text provided. Be precise about clause references " +
	"and do not invent terms that are not present."

const summaryPrompt = "Analyze the following legal document text and provide an informative summary. " +
	"Structure your response in two sections:\n" +
	"1. DOCUMENT DESCRIPTION (first): A short paragraph describing what kind of document this is and its purpose.\n" +
	"2. DOCUMENT SUMMARY (second): A well-organized summary of the key points using bullet points and subsections. " +
	"Use clear headings for different sections of the summary.\n\n"

const risksPrompt = "Analyze the following legal document and identify potential risks " +
	"in a clear and organized manner. Group findings by severity and reference the " +
	"relevant clause for each.\n\n"

// Analyzer runs document-level analysis through the generation layer.
type Analyzer struct {
	gen *generation.Generator
	cfg *config.GenerationConfig
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(gen *generation.Generator, cfg *config.GenerationConfig) *Analyzer {
	return &Analyzer{gen: gen, cfg: cfg}
}

// Summarize produces a two-section summary of the document. Input text
// is capped to keep the prompt inside model limits; the cap is
// generous enough for the operative sections of typical agreements.
func (a *Analyzer) Summarize(ctx context.Context, doc *document.Document) (string, error) {
	if doc.Text == "" {
		return "", fmt.Errorf("document %s has no text", doc.Name)
	}

	text := excerpt(doc.Text, a.summaryCap())
	return a.gen.Complete(ctx, analystSystemInstruction, summaryPrompt+text)
}

// IdentifyRisks produces a risk review of the document.
func (a *Analyzer) IdentifyRisks(ctx context.Context, doc *document.Document) (string, error) {
	if doc.Text == "" {
		return "", fmt.Errorf("document %s has no text", doc.Name)
	}

	text := excerpt(doc.Text, a.summaryCap())
	return a.gen.Complete(ctx, analystSystemInstruction, risksPrompt+text)
}

func (a *Analyzer) summaryCap() int {
	if a.cfg != nil && a.cfg.SummaryCap > 0 {
		return a.cfg.SummaryCap
	}
	return 10000
}

func (a *Analyzer) compareCap() int {
	if a.cfg != nil && a.cfg.CompareCap > 0 {
		return a.cfg.CompareCap
	}
	return 2500
}

// excerpt truncates text to at most capRunes runes, marking the cut.
func excerpt(text string, capRunes int) string {
	runes := []rune(text)
	if len(runes) <= capRunes {
		return text
	}
	return string(runes[:capRunes]) + "..."
}
