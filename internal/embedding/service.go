package embedding

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/clauselens/clauselens/internal/config"
)

// Service provides embedding generation functionality
type Service struct {
	cfg    *config.EmbeddingConfig
	client Client
}

// Client is the interface for embedding API clients
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimensions() int
}

// NewService creates a new embedding service
func NewService(ctx context.Context, cfg *config.EmbeddingConfig) (*Service, error) {
	svc := &Service{cfg: cfg}

	var client Client
	var err error

	switch cfg.Provider {
	case "gemini":
		client, err = NewGeminiClient(ctx, cfg)
	case "openai":
		client, err = NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	svc.client = client
	return svc, nil
}

// NewServiceWithClient creates a service around an existing client.
// Used by tests and by callers that manage the client lifecycle.
func NewServiceWithClient(cfg *config.EmbeddingConfig, client Client) *Service {
	return &Service{cfg: cfg, client: client}
}

// Embed generates an embedding for a single text
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts, one vector per
// input in the same order. Oversized input is split into sub-batches of
// the configured size rather than truncated.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Filter out empty texts; their slots stay nil in the result
	validTexts := make([]string, 0, len(texts))
	validIndices := make([]int, 0, len(texts))
	for i, text := range texts {
		if text != "" {
			validTexts = append(validTexts, text)
			validIndices = append(validIndices, i)
		}
	}

	if len(validTexts) == 0 {
		return nil, fmt.Errorf("no valid texts to embed")
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	results := make([][]float32, len(texts))

	for i := 0; i < len(validTexts); i += batchSize {
		end := i + batchSize
		if end > len(validTexts) {
			end = len(validTexts)
		}

		batch := validTexts[i:end]
		batchCtx, cancel := s.withTimeout(ctx)
		embeddings, err := s.client.EmbedBatch(batchCtx, batch)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", i, end, err)
		}

		// Map results back to original indices
		for j, emb := range embeddings {
			results[validIndices[i+j]] = emb
		}
	}

	return results, nil
}

// Model returns the embedding model identifier. Vectors from different
// models are never mixed in one index, so callers record this alongside
// every index they build.
func (s *Service) Model() string {
	return s.client.Model()
}

// Dimensions returns the dimension of the embeddings
func (s *Service) Dimensions() int {
	return s.client.Dimensions()
}

// Close releases the underlying client when it holds resources.
func (s *Service) Close() error {
	if closer, ok := s.client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// Similarity computes cosine similarity between two vectors
func Similarity(a, b []float32) float32 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("vector dimension mismatch: %d vs %d", len(a), len(b)))
	}

	var dotProduct float32
	var normA float32
	var normB float32

	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
