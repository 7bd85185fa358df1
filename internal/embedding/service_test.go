package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/clauselens/clauselens/internal/config"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{
			name:     "identical vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2, 3},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1, 0, 0},
			b:        []float32{0, 1, 0},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1, 1, 1},
			b:        []float32{-1, -1, -1},
			expected: -1.0,
		},
		{
			name:     "similar vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{1.1, 2.1, 3.1},
			expected: 0.999, // Approximately
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Similarity(tt.a, tt.b)
			diff := result - tt.expected
			if diff < 0 {
				diff = -diff
			}
			if diff > 0.001 {
				t.Errorf("Similarity() = %v, want %v (diff: %v)", result, tt.expected, diff)
			}
		})
	}
}

func TestSimilarityPanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for dimension mismatch")
		}
	}()

	Similarity([]float32{1, 2}, []float32{1, 2, 3})
}

// fakeClient records batch sizes and returns deterministic vectors.
type fakeClient struct {
	batches [][]string
	fail    error
}

func (f *fakeClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.batches = append(f.batches, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1, 0}
	}
	return out, nil
}

func (f *fakeClient) Model() string   { return "fake-embedder" }
func (f *fakeClient) Dimensions() int { return 3 }

func TestEmbedBatchSplitsOversizedInput(t *testing.T) {
	client := &fakeClient{}
	svc := NewServiceWithClient(&config.EmbeddingConfig{BatchSize: 2}, client)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := svc.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}

	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	if len(client.batches) != 3 {
		t.Fatalf("expected 3 sub-batches for 5 texts at batch size 2, got %d", len(client.batches))
	}
	for i, text := range texts {
		if vecs[i][0] != float32(len(text)) {
			t.Errorf("vector %d out of order: got %v for %q", i, vecs[i], text)
		}
	}
}

func TestEmbedBatchSkipsEmptyTexts(t *testing.T) {
	client := &fakeClient{}
	svc := NewServiceWithClient(&config.EmbeddingConfig{BatchSize: 10}, client)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"alpha", "", "gamma"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if vecs[1] != nil {
		t.Error("empty text should produce a nil vector slot")
	}
	if vecs[0] == nil || vecs[2] == nil {
		t.Error("non-empty texts should produce vectors")
	}
}

func TestEmbedBatchPropagatesServiceError(t *testing.T) {
	client := &fakeClient{fail: &ServiceError{Provider: "fake", Transient: true, Err: fmt.Errorf("rate limited")}}
	svc := NewServiceWithClient(&config.EmbeddingConfig{BatchSize: 10}, client)

	_, err := svc.EmbedBatch(context.Background(), []string{"alpha"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Error("transient classification should survive wrapping")
	}
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	svc := NewServiceWithClient(&config.EmbeddingConfig{}, &fakeClient{})
	if _, err := svc.Embed(context.Background(), ""); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient service error", &ServiceError{Transient: true, Err: errors.New("x")}, true},
		{"permanent service error", &ServiceError{Transient: false, Err: errors.New("x")}, false},
		{"wrapped transient", fmt.Errorf("batch 0-2: %w", &ServiceError{Transient: true, Err: errors.New("x")}), true},
		{"unrelated error", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !retryableStatus(code) {
			t.Errorf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{400, 401, 403, 404, 422} {
		if retryableStatus(code) {
			t.Errorf("status %d should not be retryable", code)
		}
	}
}
