package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clauselens/clauselens/internal/config"
)

// OpenAIClient implements Client for OpenAI's chat completions API
type OpenAIClient struct {
	apiKey      string
	endpoint    string
	model       string
	temperature float32
	client      *http.Client
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float32         `json:"temperature,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenAIClient creates a new OpenAI generation client
func NewOpenAIClient(cfg *config.GenerationConfig) (*OpenAIClient, error) {
	apiKey := cfg.OpenAIAPIKey
	if apiKey == "" {
		return nil, fmt.Errorf("openai api_key is required")
	}

	model := cfg.OpenAIModel
	if model == "" {
		model = "gpt-4o-mini"
	}

	endpoint := cfg.OpenAIEndpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}

	return &OpenAIClient{
		apiKey:      apiKey,
		endpoint:    endpoint,
		model:       model,
		temperature: cfg.Temp,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Generate sends a single prompt and returns the response text.
func (c *OpenAIClient) Generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	messages := make([]openAIMessage, 0, 2)
	if systemInstruction != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: systemInstruction})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: prompt})

	req := openAIChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &ServiceError{Provider: "openai", Transient: classifyTransient(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ServiceError{Provider: "openai", Transient: true, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{
			Provider:  "openai",
			Transient: retryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var apiResp openAIChatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", &ServiceError{Provider: "openai", Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		return "", &ServiceError{Provider: "openai", Err: fmt.Errorf("empty response")}
	}

	return apiResp.Choices[0].Message.Content, nil
}

// Model returns the generation model identifier
func (c *OpenAIClient) Model() string {
	return c.model
}
