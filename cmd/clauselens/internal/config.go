package internal

import (
	"fmt"
	"os"

	"github.com/clauselens/clauselens/internal/config"
)

// LoadConfig reads the YAML configuration from the given path, or from
// the default location when the path is empty.
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// PrintConfigExample writes a complete YAML configuration example to
// stderr so a first-time user can create their own.
func PrintConfigExample() {
	homeDir, _ := os.UserHomeDir()
	configPath := fmt.Sprintf("%s/.clauselens/config/clauselens.yaml", homeDir)

	fmt.Fprintf(os.Stderr, `Create a configuration file at %s:

# Embedding service configuration (required)
embedding:
  # Provider: "gemini" | "openai"
  provider: gemini

  # Gemini configuration (api_key also read from GEMINI_API_KEY)
  api_key: your-gemini-api-key
  model: text-embedding-004

  dimensions: 768               # Vector dimensionality of the model
  batch_size: 16                # Texts per embedding request

# Generation service configuration (required)
generation:
  provider: gemini
  api_key: your-gemini-api-key
  model: gemini-1.5-flash-latest
  temperature: 0.2

# For OpenAI providers, use:
# embedding:
#   provider: openai
#   openai_api_key: your-openai-api-key
#   openai_model: text-embedding-3-small
#   dimensions: 1536

Usage:
  1. Create the config file (or export GEMINI_API_KEY)
  2. Ingest a document: clauselens ingest contract.txt
  3. Ask a question:    clauselens ask "What is the notice period?"
`, configPath)
}
