package domain

import (
	"context"
	"math"
)

// EmbeddingDim is the fixed embedding dimension. Every vector crossing a
// package boundary has exactly this length regardless of which model
// produced it; off-dimension provider outputs are padded or truncated at
// the transport layer.
const EmbeddingDim = 1536

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts preserving input-order
// correspondence: one vector per input, even when inputs repeat.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage through the
// decorator chain. Model names which provider in the fallback chain answered;
// it is empty for cache hits and for the degraded sentinel.
type EmbeddingResult struct {
	Embedding    []float32
	Model        string
	PromptTokens int
	TotalTokens  int
}

// Degraded reports whether the result carries the all-zero sentinel vector.
func (r EmbeddingResult) Degraded() bool {
	return IsZeroVector(r.Embedding)
}

// ZeroVector returns the all-zero sentinel of the fixed dimension, meaning
// "embedding generation degraded". Consumers must detect it and switch to a
// text strategy, never score against it.
func ZeroVector() []float32 {
	return make([]float32, EmbeddingDim)
}

// IsZeroVector reports whether v is empty or all zeros.
func IsZeroVector(v []float32) bool {
	if len(v) == 0 {
		return true
	}
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}

// CosineSimilarity computes the cosine similarity of two vectors.
// Returns 0 for mismatched lengths or zero-magnitude inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
