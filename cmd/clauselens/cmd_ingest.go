package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/pipeline"
)

// handleIngest implements the ingest subcommand
func handleIngest(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)

	var noProgress bool
	fs.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    clauselens ingest [options] <path or glob> [more paths...]

DESCRIPTION:
    Load documents, split them into chunks, embed every chunk, and
    build the search index. A document becomes queryable only after
    its build completes.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Ingest a single document
    clauselens ingest contract.txt

    # Ingest a whole directory tree
    clauselens ingest 'contracts/**/*.txt'
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: at least one document path is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	p, cleanup := openPipeline(ctx, cfg)
	defer cleanup()

	reporter := pipeline.NewIngestProgress(!noProgress && pipeline.DefaultProgressEnabled())

	total := 0
	for _, pattern := range fs.Args() {
		results, err := p.IngestGlob(ctx, pattern, reporter)
		for _, res := range results {
			total++
			fmt.Printf("Indexed %s: %d chunks (id %s)\n", res.Document.Name, res.ChunkCount, res.Document.ID)
			if res.Degraded {
				fmt.Printf("  warning: %d chunks missing embeddings; answers may miss content\n", res.MissingChunks)
			}
		}
		if err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}
	}
	if total > 1 {
		fmt.Printf("Ingested %d documents\n", total)
	}
}
