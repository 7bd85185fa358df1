package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/pipeline"
)

// handleAsk implements the ask subcommand
func handleAsk(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)

	var docRef string
	var topK int
	var minScore float64
	var jsonOutput, showSources bool

	fs.StringVar(&docRef, "doc", "", "Document ID or name (default: most recent)")
	fs.IntVar(&topK, "k", 0, "Number of chunks to retrieve (default from config)")
	fs.Float64Var(&minScore, "min-score", 0, "Relevance floor for retrieved chunks")
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")
	fs.BoolVar(&showSources, "sources", false, "Show cited chunk IDs")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    clauselens ask [options] "<question>"

DESCRIPTION:
    Answer a question from an ingested document. Retrieval picks the
    most relevant chunks; the answer is generated from those chunks
    only. Recent exchanges are carried as conversation context.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Ask about the most recent document
    clauselens ask "What is the notice period for termination?"

    # Ask about a specific document
    clauselens ask -doc contract.txt "Who owns the work product?"

    # Show which chunks grounded the answer
    clauselens ask -sources "What are the payment terms?"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: a question is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	question := strings.Join(fs.Args(), " ")

	ctx := context.Background()
	p, cleanup := openPipeline(ctx, cfg)
	defer cleanup()

	stop := pipeline.StartSpinner(!jsonOutput && pipeline.DefaultProgressEnabled(), "thinking")
	res, err := p.Ask(ctx, docRef, question, pipeline.AskOptions{TopK: topK, MinScore: minScore})
	stop()
	if err != nil {
		if errors.Is(err, pipeline.ErrNotReady) {
			log.Fatalf("The document is not ready yet; rerun `clauselens ingest` first. (%v)", err)
		}
		log.Fatalf("Ask failed: %v", err)
	}

	if jsonOutput {
		out := map[string]interface{}{
			"document":  res.Document.Name,
			"question":  question,
			"answer":    res.Answer.Text,
			"grounded":  res.Answer.Grounded,
			"sources":   res.Answer.SourceChunkIDs,
			"retrieved": res.Retrieved,
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Println(res.Answer.Text)
	if !res.Answer.Grounded {
		fmt.Fprintln(os.Stderr, "\n(no matching passages were found in the document)")
	}
	if showSources && len(res.Answer.SourceChunkIDs) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(res.Answer.SourceChunkIDs, ", "))
	}
	if res.OmittedDueToBudget > 0 {
		fmt.Fprintf(os.Stderr, "note: %d retrieved chunks did not fit the context budget\n", res.OmittedDueToBudget)
	}
}
