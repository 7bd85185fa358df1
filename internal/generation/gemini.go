package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/clauselens/clauselens/internal/config"
)

// GeminiClient implements Client over Google's generation API using the
// official SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiClient creates a new Gemini generation client
func NewGeminiClient(ctx context.Context, cfg *config.GenerationConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api_key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash-latest"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: cfg.Temp,
	}, nil
}

// Close releases the underlying SDK client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Generate sends a single prompt and returns the response text.
func (c *GeminiClient) Generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)

	if systemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemInstruction)},
		}
	}
	if c.temperature > 0 {
		temp := c.temperature
		model.GenerationConfig = genai.GenerationConfig{Temperature: &temp}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &ServiceError{Provider: "gemini", Transient: classifyTransient(err), Err: err}
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &ServiceError{Provider: "gemini", Err: fmt.Errorf("empty response")}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	if text.Len() == 0 {
		return "", &ServiceError{Provider: "gemini", Err: fmt.Errorf("response contained no text parts")}
	}

	return text.String(), nil
}

// Model returns the generation model identifier
func (c *GeminiClient) Model() string {
	return c.model
}
