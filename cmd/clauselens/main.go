package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/clauselens/clauselens/cmd/clauselens/internal"
	"github.com/clauselens/clauselens/internal/config"
)

func main() {
	// A .env in the working directory may carry GEMINI_API_KEY or
	// OPENAI_API_KEY; absence is not an error.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		internal.PrintUsage()
		os.Exit(1)
	}

	configPath := ""
	dataDir := ""
	args := os.Args[1:]

	// Handle special flags that don't require a subcommand
	for _, arg := range args {
		if arg == "-h" || arg == "-help" || arg == "--help" {
			internal.PrintUsage()
			os.Exit(0)
		}
		if arg == "-v" || arg == "-version" || arg == "--version" {
			fmt.Printf("clauselens version %s\n", internal.Version)
			os.Exit(0)
		}
	}

	validSubcommands := map[string]bool{
		"init":      true,
		"ingest":    true,
		"ask":       true,
		"summarize": true,
		"risks":     true,
		"compare":   true,
		"history":   true,
		"stats":     true,
	}

	subcommandIndex := -1
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") && validSubcommands[arg] {
			subcommandIndex = i
			break
		}
	}

	if subcommandIndex == -1 {
		fmt.Fprintf(os.Stderr, "Error: No subcommand specified\n\n")
		internal.PrintUsage()
		os.Exit(1)
	}

	// Parse global flags (before subcommand)
	globalFlags := args[:subcommandIndex]
	for i := 0; i < len(globalFlags); i++ {
		flag := globalFlags[i]
		switch {
		case flag == "-config" || flag == "--config":
			if i+1 < len(globalFlags) {
				configPath = globalFlags[i+1]
				i++
			}
		case flag == "-data" || flag == "--data":
			if i+1 < len(globalFlags) {
				dataDir = globalFlags[i+1]
				i++
			}
		case strings.HasPrefix(flag, "-"):
			fmt.Fprintf(os.Stderr, "Error: Unknown global flag: %s\n\n", flag)
			internal.PrintUsage()
			os.Exit(1)
		}
	}

	subcommand := args[subcommandIndex]
	subcommandArgs := args[subcommandIndex+1:]

	if subcommand == "init" {
		handleInit(configPath, subcommandArgs)
		return
	}

	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		if config.IsConfigNotFound(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			internal.PrintConfigExample()
			os.Exit(1)
		}
		log.Fatalf("Failed to load config: %v", err)
	}

	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}

	if err := internal.SetupLogging(subcommand); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize log file: %v\n", err)
	}

	switch subcommand {
	case "ingest":
		handleIngest(cfg, subcommandArgs)
	case "ask":
		handleAsk(cfg, subcommandArgs)
	case "summarize":
		handleSummarize(cfg, subcommandArgs)
	case "risks":
		handleRisks(cfg, subcommandArgs)
	case "compare":
		handleCompare(cfg, subcommandArgs)
	case "history":
		handleHistory(cfg, subcommandArgs)
	case "stats":
		handleStats(cfg, subcommandArgs)
	default:
		fmt.Printf("Unknown subcommand: %s\n\n", subcommand)
		internal.PrintUsage()
		os.Exit(1)
	}
}
