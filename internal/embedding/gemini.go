package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/clauselens/clauselens/internal/config"
)

// GeminiClient implements Client over Google's embedding API using the
// official SDK.
type GeminiClient struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiClient creates a new Gemini embedding client
func NewGeminiClient(ctx context.Context, cfg *config.EmbeddingConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api_key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-004"
	}

	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = 768
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Close releases the underlying SDK client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Embed generates an embedding for a single text
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	em := c.client.EmbeddingModel(c.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &ServiceError{Provider: "gemini", Transient: classifyTransient(err), Err: err}
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, &ServiceError{Provider: "gemini", Err: fmt.Errorf("empty embedding returned")}
	}
	return res.Embedding.Values, nil
}

// EmbedBatch generates embeddings for multiple texts
func (c *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := c.client.EmbeddingModel(c.model)
	batch := em.NewBatch()
	for _, text := range texts {
		batch = batch.AddContent(genai.Text(text))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, &ServiceError{Provider: "gemini", Transient: classifyTransient(err), Err: err}
	}

	if len(res.Embeddings) != len(texts) {
		return nil, &ServiceError{
			Provider: "gemini",
			Err:      fmt.Errorf("expected %d embeddings, got %d", len(texts), len(res.Embeddings)),
		}
	}

	embeddings := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, &ServiceError{Provider: "gemini", Err: fmt.Errorf("empty embedding at index %d", i)}
		}
		embeddings[i] = emb.Values
	}

	return embeddings, nil
}

// Model returns the embedding model identifier
func (c *GeminiClient) Model() string {
	return c.model
}

// Dimensions returns the dimension of the embeddings
func (c *GeminiClient) Dimensions() int {
	return c.dimensions
}
