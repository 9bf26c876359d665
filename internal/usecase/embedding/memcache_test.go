package embedding

import (
	"context"
	"testing"

	"github.com/kailas-cloud/grounder/internal/domain"
)

// countingEmbedder wraps fixed vectors and counts calls.
type countingEmbedder struct {
	vec   []float32
	calls int
}

func (e *countingEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	e.calls++
	return domain.EmbeddingResult{Embedding: e.vec, Model: "inner"}, nil
}

func nonZeroVec() []float32 {
	v := domain.ZeroVector()
	v[0] = 0.5
	return v
}

func TestMemoryCached_HitSkipsInner(t *testing.T) {
	inner := &countingEmbedder{vec: nonZeroVec()}
	c, err := NewMemoryCached(inner, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
}

func TestMemoryCached_DoesNotCacheSentinel(t *testing.T) {
	inner := &countingEmbedder{vec: domain.ZeroVector()}
	c, err := NewMemoryCached(inner, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		res, err := c.Embed(context.Background(), "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Degraded() {
			t.Fatal("expected degraded result")
		}
	}
	if inner.calls != 3 {
		t.Errorf("sentinel must not be cached; inner calls = %d", inner.calls)
	}
}

func TestMemoryCached_BatchMixedHits(t *testing.T) {
	inner := &countingEmbedder{vec: nonZeroVec()}
	c, err := NewMemoryCached(inner, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Warm one entry.
	if _, err := c.Embed(context.Background(), "warm"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inner.calls = 0

	results, err := c.EmbedBatch(context.Background(), []string{"warm", "cold", "warm"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if domain.IsZeroVector(res.Embedding) {
			t.Errorf("result %d is unexpectedly degraded", i)
		}
	}
	// Only "cold" should reach the inner embedder (no BatchEmbedder on
	// countingEmbedder, so one Embed call).
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call for the cold entry, got %d", inner.calls)
	}
}
