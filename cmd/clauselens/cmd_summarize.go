package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/clauselens/clauselens/internal/analysis"
	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/document"
	"github.com/clauselens/clauselens/internal/generation"
	"github.com/clauselens/clauselens/internal/pipeline"
)

// handleSummarize implements the summarize subcommand
func handleSummarize(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    clauselens summarize <path>

DESCRIPTION:
    Generate a structured summary of a document: what kind of document
    it is, followed by its key points.

EXAMPLES:
    clauselens summarize contract.txt
`)
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: exactly one document path is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	analyzer, cleanup := openAnalyzer(ctx, cfg)
	defer cleanup()

	doc, err := document.NewLoader().Load(fs.Arg(0))
	if err != nil {
		log.Fatalf("Failed to load document: %v", err)
	}

	stop := pipeline.StartSpinner(pipeline.DefaultProgressEnabled(), "summarizing")
	summary, err := analyzer.Summarize(ctx, doc)
	stop()
	if err != nil {
		log.Fatalf("Summarize failed: %v", err)
	}
	fmt.Println(summary)
}

// openAnalyzer builds the analysis layer without a session database;
// summaries, risk reviews, and comparisons work on raw files.
func openAnalyzer(ctx context.Context, cfg *config.Config) (*analysis.Analyzer, func()) {
	generator, err := generation.NewGenerator(ctx, &cfg.Generation)
	if err != nil {
		log.Fatalf("Failed to initialize generation service: %v", err)
	}
	return analysis.NewAnalyzer(generator, &cfg.Generation), func() { generator.Close() }
}
