package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/session"
)

// handleHistory implements the history subcommand
func handleHistory(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)

	var docRef string
	var limit int
	var clear, jsonOutput bool
	fs.StringVar(&docRef, "doc", "", "Document ID or name (default: most recent)")
	fs.IntVar(&limit, "n", 0, "Show only the last N exchanges")
	fs.BoolVar(&clear, "clear", false, "Clear the history instead of showing it")
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    clauselens history [options]

DESCRIPTION:
    Show the question history for a document in chronological order,
    or clear it.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Full history of the most recent document
    clauselens history

    # Last three exchanges of a named document
    clauselens history -doc contract.txt -n 3

    # Start over
    clauselens history -clear
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	db := openSession(cfg)
	defer db.Close()
	store := session.NewStore(db)

	rec, err := resolveDocument(store, docRef)
	if err != nil {
		log.Fatalf("Failed to resolve document: %v", err)
	}

	if clear {
		if err := store.ClearHistory(rec.ID); err != nil {
			log.Fatalf("Failed to clear history: %v", err)
		}
		fmt.Printf("Cleared history for %s\n", rec.Name)
		return
	}

	exchanges, err := store.History(rec.ID, limit)
	if err != nil {
		log.Fatalf("Failed to load history: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(exchanges, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(exchanges) == 0 {
		fmt.Printf("No questions asked about %s yet.\n", rec.Name)
		return
	}
	fmt.Printf("History for %s (%d exchanges)\n\n", rec.Name, len(exchanges))
	for _, ex := range exchanges {
		marker := ""
		if !ex.Grounded {
			marker = " [no grounding]"
		}
		fmt.Printf("[%s]%s\n", ex.CreatedAt.Local().Format("2006-01-02 15:04"), marker)
		fmt.Printf("Q: %s\n", ex.Question)
		fmt.Printf("A: %s\n", ex.Answer)
		if len(ex.SourceChunkIDs) > 0 {
			fmt.Printf("   sources: %s\n", strings.Join(ex.SourceChunkIDs, ", "))
		}
		fmt.Println()
	}
}

func resolveDocument(store *session.Store, docRef string) (*session.DocumentRecord, error) {
	if docRef == "" {
		return store.LatestDocument()
	}
	return store.ResolveDocument(docRef)
}
