package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/document"
	"github.com/clauselens/clauselens/internal/generation"
)

type recordingClient struct {
	systems []string
	prompts []string
	reply   string
}

func (r *recordingClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	r.systems = append(r.systems, system)
	r.prompts = append(r.prompts, prompt)
	return r.reply, nil
}

func (r *recordingClient) Model() string { return "recording" }

func newTestAnalyzer(client generation.Client, cfg *config.GenerationConfig) *Analyzer {
	if cfg == nil {
		cfg = &config.GenerationConfig{SummaryCap: 10000, CompareCap: 2500}
	}
	gen := generation.NewGeneratorWithClient(cfg, client)
	return NewAnalyzer(gen, cfg)
}

func TestSummarize(t *testing.T) {
	client := &recordingClient{reply: "DOCUMENT DESCRIPTION ..."}
	a := newTestAnalyzer(client, nil)

	doc := document.New("nda.txt", "txt", "This Agreement governs confidential information.")
	summary, err := a.Summarize(context.Background(), doc)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary != "DOCUMENT DESCRIPTION ..." {
		t.Errorf("summary = %q", summary)
	}

	prompt := client.prompts[0]
	if !strings.Contains(prompt, "DOCUMENT DESCRIPTION") || !strings.Contains(prompt, "DOCUMENT SUMMARY") {
		t.Error("summary prompt missing its two-section structure")
	}
	if !strings.Contains(prompt, doc.Text) {
		t.Error("summary prompt missing the document text")
	}
}

func TestSummarizeCapsLongDocuments(t *testing.T) {
	client := &recordingClient{reply: "ok"}
	a := newTestAnalyzer(client, &config.GenerationConfig{SummaryCap: 100, CompareCap: 2500})

	doc := document.New("long.txt", "txt", strings.Repeat("clause text ", 100))
	if _, err := a.Summarize(context.Background(), doc); err != nil {
		t.Fatal(err)
	}

	prompt := client.prompts[0]
	if !strings.Contains(prompt, "...") {
		t.Error("capped prompt should mark the truncation")
	}
	// The prompt body past the instructions must stay near the cap.
	body := prompt[strings.Index(prompt, "clause"):]
	if len([]rune(body)) > 120 {
		t.Errorf("document text not capped: %d runes", len([]rune(body)))
	}
}

func TestSummarizeEmptyDocument(t *testing.T) {
	a := newTestAnalyzer(&recordingClient{}, nil)
	doc := document.New("empty.txt", "txt", "")
	if _, err := a.Summarize(context.Background(), doc); err == nil {
		t.Error("expected error for empty document")
	}
}

func TestIdentifyRisks(t *testing.T) {
	client := &recordingClient{reply: "High: unlimited liability in clause 9."}
	a := newTestAnalyzer(client, nil)

	doc := document.New("msa.txt", "txt", "Supplier accepts unlimited liability.")
	risks, err := a.IdentifyRisks(context.Background(), doc)
	if err != nil {
		t.Fatalf("IdentifyRisks failed: %v", err)
	}
	if !strings.Contains(risks, "unlimited liability") {
		t.Errorf("risks = %q", risks)
	}
	if !strings.Contains(client.prompts[0], "identify potential risks") {
		t.Error("risk prompt missing its instruction")
	}
}

func TestCompare(t *testing.T) {
	client := &recordingClient{reply: "The documents differ in their liability caps."}
	a := newTestAnalyzer(client, nil)

	doc1 := document.New("v1.txt", "txt", "liability is capped at fees paid\ngoverning law is New York")
	doc2 := document.New("v2.txt", "txt", "liability is uncapped\ngoverning law is New York")

	cmp, err := a.Compare(context.Background(), doc1, doc2, FocusRisk)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if cmp.Similarity <= 0 || cmp.Similarity >= 100 {
		t.Errorf("Similarity = %v, want strictly between 0 and 100", cmp.Similarity)
	}
	if len(cmp.Diff) == 0 {
		t.Error("expected a non-empty diff")
	}
	if cmp.Analysis == "" {
		t.Error("expected an analysis")
	}

	prompt := client.prompts[0]
	if !strings.Contains(prompt, "Document 1 (v1.txt)") || !strings.Contains(prompt, "Document 2 (v2.txt)") {
		t.Error("compare prompt missing document labels")
	}
	if !strings.Contains(prompt, focusInstructions[FocusRisk]) {
		t.Error("compare prompt missing the risk focus instruction")
	}
}

func TestCompareCapsExcerpts(t *testing.T) {
	client := &recordingClient{reply: "ok"}
	a := newTestAnalyzer(client, &config.GenerationConfig{SummaryCap: 10000, CompareCap: 50})

	doc1 := document.New("a.txt", "txt", strings.Repeat("alpha ", 50))
	doc2 := document.New("b.txt", "txt", strings.Repeat("beta ", 50))

	if _, err := a.Compare(context.Background(), doc1, doc2, FocusGeneral); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(client.prompts[0], "...") {
		t.Error("capped excerpts should mark the truncation")
	}
}

type failingClient struct{}

func (failingClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	return "", errors.New("model unavailable")
}

func (failingClient) Model() string { return "failing" }

func TestComparePartialOnModelFailure(t *testing.T) {
	a := newTestAnalyzer(failingClient{}, nil)

	doc1 := document.New("a.txt", "txt", "line one\nline two")
	doc2 := document.New("b.txt", "txt", "line one\nline three")

	cmp, err := a.Compare(context.Background(), doc1, doc2, FocusGeneral)
	if err == nil {
		t.Fatal("expected the analysis error to surface")
	}
	if cmp == nil {
		t.Fatal("similarity and diff should survive a model failure")
	}
	if cmp.Similarity <= 0 || len(cmp.Diff) == 0 {
		t.Errorf("partial comparison incomplete: similarity=%v diff=%d lines", cmp.Similarity, len(cmp.Diff))
	}
	if cmp.Analysis != "" {
		t.Error("analysis should be empty on failure")
	}
}

func TestParseFocus(t *testing.T) {
	tests := []struct {
		in   string
		want Focus
	}{
		{"clauses", FocusClauses},
		{"compliance", FocusCompliance},
		{"risk", FocusRisk},
		{"general", FocusGeneral},
		{"", FocusGeneral},
		{"bogus", FocusGeneral},
	}
	for _, tt := range tests {
		if got := ParseFocus(tt.in); got != tt.want {
			t.Errorf("ParseFocus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
