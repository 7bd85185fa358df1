package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/document"
	"github.com/clauselens/clauselens/internal/pipeline"
)

// handleRisks implements the risks subcommand
func handleRisks(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("risks", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    clauselens risks <path>

DESCRIPTION:
    Identify potential risks in a document, grouped by severity with
    clause references.

EXAMPLES:
    clauselens risks contract.txt
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

	stop := pipeline.StartSpinner(pipeline.DefaultProgressEnabled(), "analyzing")
	risks, err := analyzer.IdentifyRisks(ctx, doc)
	stop()
	if err != nil {
		log.Fatalf("Risk analysis failed: %v", err)
	}
	fmt.Println(risks)
}
