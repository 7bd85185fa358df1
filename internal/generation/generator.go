// Package generation orchestrates calls to the hosted LLM: prompt
// construction, the grounded/no-grounding policy split, and retry on
// transient failures.
package generation

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/retrieval"
	"github.com/clauselens/clauselens/internal/retry"
)

// Client is the interface for generation API clients
type Client interface {
	Generate(ctx context.Context, systemInstruction, prompt string) (string, error)
	Model() string
}

// Answer is a generated response with its grounding. Grounded is false
// when retrieval produced no usable context and the no-grounding branch
// was taken.
type Answer struct {
	ID             string
	Query          string
	Text           string
	SourceChunkIDs []string
	Grounded       bool
	CreatedAt      time.Time
}

// Generator builds prompts and drives the generation client.
type Generator struct {
	cfg    *config.GenerationConfig
	client Client
	policy retry.Policy
}

// NewGenerator creates a generator for the configured provider.
func NewGenerator(ctx context.Context, cfg *config.GenerationConfig) (*Generator, error) {
	var client Client
	var err error

	switch cfg.Provider {
	case "gemini":
		client, err = NewGeminiClient(ctx, cfg)
	case "openai":
		client, err = NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create generation client: %w", err)
	}

	return &Generator{cfg: cfg, client: client, policy: retry.Default()}, nil
}

// NewGeneratorWithClient creates a generator around an existing client.
// Used by tests and by callers that manage the client lifecycle.
func NewGeneratorWithClient(cfg *config.GenerationConfig, client Client) *Generator {
	return &Generator{cfg: cfg, client: client, policy: retry.Default()}
}

// SetRetryPolicy overrides the default backoff policy.
func (g *Generator) SetRetryPolicy(p retry.Policy) {
	g.policy = p
}

// Answer produces a response for the query against the assembled
// context. An empty assembly routes to the explicit no-grounding
// template; the model is instructed to say the document does not cover
// the question rather than answer ungrounded. History is bounded to the
// configured window before it enters the prompt.
func (g *Generator) Answer(ctx context.Context, query string, assembly *retrieval.Assembly, history []HistoryEntry) (*Answer, error) {
	window := g.cfg.HistoryWindow
	if window <= 0 {
		window = 5
	}
	bounded := boundHistory(history, window)

	var system, prompt string
	grounded := assembly != nil && !assembly.Empty()
	if grounded {
		system = answerSystemInstruction
		prompt = buildAnswerPrompt(query, assembly.Context, bounded)
	} else {
		system = noGroundingInstruction
		prompt = buildNoGroundingPrompt(query, bounded)
	}

	text, err := g.complete(ctx, system, prompt)
	if err != nil {
		return nil, err
	}

	answer := &Answer{
		ID:        uuid.NewString(),
		Query:     query,
		Text:      text,
		Grounded:  grounded,
		CreatedAt: time.Now().UTC(),
	}
	if grounded {
		answer.SourceChunkIDs = assembly.ChunkIDs
	}
	return answer, nil
}

// Complete sends a raw system/user prompt pair through the retry
// policy. Analysis flows (summaries, risk reviews, comparisons) build
// their own prompts and call this directly.
func (g *Generator) Complete(ctx context.Context, systemInstruction, prompt string) (string, error) {
	return g.complete(ctx, systemInstruction, prompt)
}

func (g *Generator) complete(ctx context.Context, system, prompt string) (string, error) {
	var text string
	err := g.policy.Do(ctx, IsTransient, func(ctx context.Context) error {
		callCtx := ctx
		if g.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
			defer cancel()
		}
		var err error
		text, err = g.client.Generate(callCtx, system, prompt)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// Model returns the generation model identifier.
func (g *Generator) Model() string {
	return g.client.Model()
}

// Close releases the underlying client when it holds resources.
func (g *Generator) Close() error {
	if closer, ok := g.client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
