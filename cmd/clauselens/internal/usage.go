package internal

import (
	"fmt"
	"os"
)

const Version = "0.3.0"

// PrintUsage writes the top-level usage text and command list to stderr.
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `clauselens - Legal Document Analysis from the Command Line

Version: %s

USAGE:
    clauselens [global options] <command> [command options]

GLOBAL OPTIONS:
    -config <path>
        Path to config file (default: ~/.clauselens/config/clauselens.yaml)

    -data <path>
        Override the data directory (session database and indexes)

    -v, -version
        Show version information

    -h, -help
        Show this help message

COMMANDS:
    ingest
        Load a document, chunk it, and build its search index

    ask
        Ask a question about an ingested document

    summarize
        Generate a structured summary of a document

    risks
        Identify potential risks in a document

    compare
        Compare two documents (similarity, diff, and analysis)

    history
        Show or clear the question history for a document

    stats
        Show session statistics

EXAMPLES:
    # Ingest a contract
    clauselens ingest contract.txt

    # Ingest everything under a directory
    clauselens ingest 'contracts/**/*.txt'

    # Ask about the most recently ingested document
    clauselens ask "What is the termination notice period?"

    # Summarize without ingesting
    clauselens summarize contract.txt

    # Compare two versions with a risk focus
    clauselens compare v1.txt v2.txt -focus risk

    # Review the conversation so far
    clauselens history

For detailed help on each command, use:
    clauselens <command> -help
`, Version)
}
