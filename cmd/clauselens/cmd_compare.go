package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/clauselens/clauselens/internal/analysis"
	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/document"
	"github.com/clauselens/clauselens/internal/pipeline"
)

// handleCompare implements the compare subcommand
func handleCompare(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)

	var focus string
	var showDiff, jsonOutput bool
	fs.StringVar(&focus, "focus", "general", "Comparison focus: general | clauses | compliance | risk")
	fs.BoolVar(&showDiff, "diff", false, "Print the textual diff")
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    clauselens compare [options] <path1> <path2>

DESCRIPTION:
    Compare two documents: overall similarity, the textual changes,
    and a model analysis of their differences.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Compare two contract versions
    clauselens compare v1.txt v2.txt

    # Focus the analysis on risk changes
    clauselens compare v1.txt v2.txt -focus risk

    # Include the line diff
    clauselens compare v1.txt v2.txt -diff
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Error: exactly two document paths are required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	analyzer, cleanup := openAnalyzer(ctx, cfg)
	defer cleanup()

	loader := document.NewLoader()
	doc1, err := loader.Load(fs.Arg(0))
	if err != nil {
		log.Fatalf("Failed to load %s: %v", fs.Arg(0), err)
	}
	doc2, err := loader.Load(fs.Arg(1))
	if err != nil {
		log.Fatalf("Failed to load %s: %v", fs.Arg(1), err)
	}

	stop := pipeline.StartSpinner(!jsonOutput && pipeline.DefaultProgressEnabled(), "comparing")
	cmp, err := analyzer.Compare(ctx, doc1, doc2, analysis.ParseFocus(focus))
	stop()
	if err != nil {
		if cmp == nil {
			log.Fatalf("Compare failed: %v", err)
		}
		// The textual comparison succeeded even though the model
		// analysis did not.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		showDiff = true
	}

	if jsonOutput {
		out := map[string]interface{}{
			"similarity": cmp.Similarity,
			"diff":       cmp.Diff,
			"analysis":   cmp.Analysis,
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Similarity: %.1f%%\n\n", cmp.Similarity)
	if showDiff {
		if len(cmp.Diff) == 0 {
			fmt.Println("No textual changes.")
		} else {
			for _, line := range cmp.Diff {
				fmt.Println(line)
			}
		}
		fmt.Println()
	}
	fmt.Println(cmp.Analysis)
}
