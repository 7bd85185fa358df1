package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking,omitempty"`
	Retrieval  RetrievalConfig  `yaml:"retrieval,omitempty"`
	Assembly   AssemblyConfig   `yaml:"assembly,omitempty"`
	Ingest     IngestConfig     `yaml:"ingest,omitempty"`
	Storage    StorageConfig    `yaml:"storage,omitempty"`
}

// EmbeddingConfig holds embedding service configuration
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "gemini" | "openai"

	// Gemini specific
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`

	// OpenAI specific
	OpenAIAPIKey   string `yaml:"openai_api_key,omitempty"`
	OpenAIEndpoint string `yaml:"openai_endpoint,omitempty"`
	OpenAIModel    string `yaml:"openai_model,omitempty"`

	// Embedding parameters
	Dimensions int           `yaml:"dimensions"` // Vector dimensionality of the model
	BatchSize  int           `yaml:"batch_size"` // Texts per embedding request
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// GenerationConfig holds generation (LLM) service configuration
type GenerationConfig struct {
	Provider string `yaml:"provider"` // "gemini" | "openai"

	APIKey string  `yaml:"api_key"`
	Model  string  `yaml:"model"`
	Temp   float32 `yaml:"temperature,omitempty"`

	OpenAIAPIKey   string `yaml:"openai_api_key,omitempty"`
	OpenAIEndpoint string `yaml:"openai_endpoint,omitempty"`
	OpenAIModel    string `yaml:"openai_model,omitempty"`

	Timeout       time.Duration `yaml:"timeout,omitempty"`
	HistoryWindow int           `yaml:"history_window,omitempty"` // Prior exchanges included in prompts
	SummaryCap    int           `yaml:"summary_cap,omitempty"`    // Max chars of document text sent to summarize
	CompareCap    int           `yaml:"compare_cap,omitempty"`    // Max chars per document sent to compare
}

// ChunkingConfig holds document chunking parameters
type ChunkingConfig struct {
	Size    int `yaml:"size,omitempty"`    // Maximum chunk length in characters
	Overlap int `yaml:"overlap,omitempty"` // Trailing characters repeated at the next chunk start
}

// RetrievalConfig holds retrieval parameters
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k,omitempty"`
	MinScore      float64 `yaml:"min_score,omitempty"`
	Hybrid        bool    `yaml:"hybrid,omitempty"`         // Also merge keyword hits from the text index
	VectorWeight  float64 `yaml:"vector_weight,omitempty"`  // Weight for vector similarity (0-1)
	KeywordWeight float64 `yaml:"keyword_weight,omitempty"` // Weight for keyword search (0-1)
}

// AssemblyConfig holds context assembly parameters
type AssemblyConfig struct {
	Budget       int     `yaml:"budget,omitempty"`        // Maximum context length in characters
	DedupOverlap float64 `yaml:"dedup_overlap,omitempty"` // Span-overlap fraction above which chunks dedup
}

// IngestConfig holds ingestion parameters
type IngestConfig struct {
	MaxWorkers int `yaml:"max_workers,omitempty"` // Concurrent embedding batches
}

// StorageConfig holds local storage configuration
type StorageConfig struct {
	// DataDir holds the session database and persistent vector index.
	// If empty, uses ~/.clauselens/data
	DataDir string `yaml:"data_dir,omitempty"`
	// VectorBackend selects the vector index implementation: "sqlite" | "memory"
	VectorBackend string `yaml:"vector_backend,omitempty"`
}

// Load loads configuration from the default config file
// Default location: ~/.clauselens/config/clauselens.yaml
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".clauselens", "config", "clauselens.yaml")
	return LoadFromFile(configPath)
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			homeDir, _ := os.UserHomeDir()
			defaultPath := filepath.Join(homeDir, ".clauselens", "config", "clauselens.yaml")
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   defaultPath,
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied and no file read.
// Used by tests and by callers that override everything programmatically.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Create the config file at the default location\n"+
		"  2. Specify a custom path with -config flag\n"+
		"  3. Run 'clauselens init' to create a config file",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	_, ok := err.(*ConfigNotFoundError)
	return ok
}

// expandPath expands ~ and $HOME to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "$HOME/") || path == "$HOME" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return path
			}
		}
		if path == "$HOME" {
			return homeDir
		}
		return filepath.Join(homeDir, path[6:])
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "gemini"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-004"
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = geminiKeyFromEnv()
	}
	if c.Embedding.OpenAIAPIKey == "" {
		c.Embedding.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Embedding.OpenAIModel == "" {
		c.Embedding.OpenAIModel = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 16
	}
	if c.Embedding.Timeout == 0 {
		c.Embedding.Timeout = 30 * time.Second
	}

	if c.Generation.Provider == "" {
		c.Generation.Provider = "gemini"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gemini-1.5-flash-latest"
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = geminiKeyFromEnv()
	}
	if c.Generation.OpenAIAPIKey == "" {
		c.Generation.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Generation.OpenAIModel == "" {
		c.Generation.OpenAIModel = "gpt-4o-mini"
	}
	if c.Generation.Temp == 0 {
		c.Generation.Temp = 0.2
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = 120 * time.Second
	}
	if c.Generation.HistoryWindow == 0 {
		c.Generation.HistoryWindow = 5
	}
	if c.Generation.SummaryCap == 0 {
		c.Generation.SummaryCap = 10000
	}
	if c.Generation.CompareCap == 0 {
		c.Generation.CompareCap = 2500
	}

	if c.Chunking.Size == 0 {
		c.Chunking.Size = 1000
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = 200
	}

	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 4
	}
	if c.Retrieval.VectorWeight == 0 && c.Retrieval.KeywordWeight == 0 {
		c.Retrieval.VectorWeight = 0.7
		c.Retrieval.KeywordWeight = 0.3
	}

	if c.Assembly.Budget == 0 {
		c.Assembly.Budget = 4000
	}
	if c.Assembly.DedupOverlap == 0 {
		c.Assembly.DedupOverlap = 0.8
	}

	if c.Ingest.MaxWorkers == 0 {
		c.Ingest.MaxWorkers = 4
	}

	if c.Storage.DataDir != "" {
		c.Storage.DataDir = expandPath(c.Storage.DataDir)
	}
	if c.Storage.VectorBackend == "" {
		c.Storage.VectorBackend = "sqlite"
	}
}

// geminiKeyFromEnv resolves the Gemini API key from the environment.
// Both names are accepted because Google's docs use both.
func geminiKeyFromEnv() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GOOGLE_API_KEY")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "gemini":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("gemini embedding provider requires api_key (or GEMINI_API_KEY)")
		}
	case "openai":
		if c.Embedding.OpenAIAPIKey == "" {
			return fmt.Errorf("openai embedding provider requires openai_api_key")
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	switch c.Generation.Provider {
	case "gemini":
		if c.Generation.APIKey == "" {
			return fmt.Errorf("gemini generation provider requires api_key (or GEMINI_API_KEY)")
		}
	case "openai":
		if c.Generation.OpenAIAPIKey == "" {
			return fmt.Errorf("openai generation provider requires openai_api_key")
		}
	default:
		return fmt.Errorf("unsupported generation provider: %s", c.Generation.Provider)
	}

	if c.Embedding.BatchSize <= 0 || c.Embedding.BatchSize > 100 {
		return fmt.Errorf("batch_size must be between 1 and 100, got: %d", c.Embedding.BatchSize)
	}

	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking size must be positive, got: %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking overlap must be in [0, size), got: %d", c.Chunking.Overlap)
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive, got: %d", c.Retrieval.TopK)
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		return fmt.Errorf("retrieval min_score must be in [0, 1], got: %g", c.Retrieval.MinScore)
	}

	if c.Assembly.Budget <= 0 {
		return fmt.Errorf("assembly budget must be positive, got: %d", c.Assembly.Budget)
	}
	if c.Assembly.DedupOverlap <= 0 || c.Assembly.DedupOverlap > 1 {
		return fmt.Errorf("assembly dedup_overlap must be in (0, 1], got: %g", c.Assembly.DedupOverlap)
	}

	if c.Ingest.MaxWorkers <= 0 {
		return fmt.Errorf("ingest max_workers must be positive, got: %d", c.Ingest.MaxWorkers)
	}

	switch c.Storage.VectorBackend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported vector backend: %s", c.Storage.VectorBackend)
	}

	return nil
}

// DataDir returns the resolved data directory, creating a default under the
// user's home when none is configured.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".clauselens", "data"), nil
}

const defaultConfigTemplate = `# clauselens Configuration
#
# Copy and edit this file for your environment.
# Default location: $HOME/.clauselens/config/clauselens.yaml

embedding:
  # Provider: "gemini" or "openai"
  provider: gemini

  # Gemini configuration (api_key falls back to $GEMINI_API_KEY)
  api_key: your-gemini-api-key
  model: text-embedding-004
  dimensions: 768
  batch_size: 16

  # OpenAI configuration (alternative)
  # provider: openai
  # openai_api_key: your-openai-api-key
  # openai_model: text-embedding-3-small
  # dimensions: 1536

generation:
  provider: gemini
  api_key: your-gemini-api-key
  model: gemini-1.5-flash-latest
  temperature: 0.2
  history_window: 5

chunking:
  size: 1000
  overlap: 200

retrieval:
  top_k: 4
  min_score: 0.0
  hybrid: false

assembly:
  budget: 4000
  dedup_overlap: 0.8

ingest:
  max_workers: 4

storage:
  # data_dir: ~/.clauselens/data
  vector_backend: sqlite
`

// WriteDefaultTemplate creates a default configuration file if it does not exist.
// It returns true if a file was created, false if it already existed.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}
