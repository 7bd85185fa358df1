package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/clauselens/clauselens/internal/config"
)

// handleInit implements the init subcommand
func handleInit(configPath string, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    clauselens [-config <path>] init

DESCRIPTION:
    Create a default configuration file. Existing files are left
    untouched.
`)
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	path := configPath
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to determine home directory: %v", err)
		}
		path = filepath.Join(homeDir, ".clauselens", "config", "clauselens.yaml")
	}

	created, err := config.WriteDefaultTemplate(path)
	if err != nil {
		log.Fatalf("Failed to create config file: %v", err)
	}
	if created {
		fmt.Printf("Created config file at %s\n", path)
		fmt.Println("Set embedding.api_key and generation.api_key (or export GEMINI_API_KEY) before first use.")
	} else {
		fmt.Printf("Config file already exists at %s\n", path)
	}
}
