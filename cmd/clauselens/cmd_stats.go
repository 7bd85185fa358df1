package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/session"
)

// handleStats implements the stats subcommand
func handleStats(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	var jsonOutput bool
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    clauselens stats [options]

DESCRIPTION:
    Show session statistics: ingested documents, stored embeddings,
    and question history size.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Show human-readable statistics
    clauselens stats

    # JSON output
    clauselens stats -json
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	db := openSession(cfg)
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		log.Fatalf("Failed to collect statistics: %v", err)
	}
	docs, err := session.NewStore(db).ListDocuments()
	if err != nil {
		log.Fatalf("Failed to list documents: %v", err)
	}

	if jsonOutput {
		out := map[string]interface{}{
			"documents":  stats.DocumentCount,
			"exchanges":  stats.ExchangeCount,
			"embeddings": stats.EmbeddingCount,
			"size_bytes": stats.SizeBytes,
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Println("Session Statistics")
	fmt.Println()
	fmt.Printf("Documents:  %6d\n", stats.DocumentCount)
	fmt.Printf("Exchanges:  %6d\n", stats.ExchangeCount)
	fmt.Printf("Embeddings: %6d\n", stats.EmbeddingCount)
	fmt.Printf("DB size:    %6d bytes\n", stats.SizeBytes)

	if len(docs) > 0 {
		fmt.Println()
		fmt.Println("Documents:")
		for _, doc := range docs {
			state := "ready"
			if !doc.Ready() {
				state = "building"
			}
			if doc.MissingChunks > 0 {
				state = fmt.Sprintf("degraded (%d missing)", doc.MissingChunks)
			}
			fmt.Printf("  %-30s %5d chunks  %-10s %s\n", doc.Name, doc.ChunkCount, state, doc.ID)
		}
	}
}
