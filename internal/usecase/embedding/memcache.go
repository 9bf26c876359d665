package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/grounder/internal/domain"
	"github.com/kailas-cloud/grounder/internal/metrics"
)

// MemoryCachedEmbedder is an in-process LRU layer in front of an embedder.
// It sits before the persistent store cache, so repeated queries within one
// process never leave memory. Degraded (all-zero) results are never cached:
// a later call may succeed once the provider recovers.
type MemoryCachedEmbedder struct {
	inner domain.Embedder
	cache *lru.Cache[string, []float32]
}

// NewMemoryCached creates an LRU caching decorator holding up to size vectors.
func NewMemoryCached(inner domain.Embedder, size int) (*MemoryCachedEmbedder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &MemoryCachedEmbedder{inner: inner, cache: cache}, nil
}

var _ domain.Embedder = (*MemoryCachedEmbedder)(nil)
var _ domain.BatchEmbedder = (*MemoryCachedEmbedder)(nil)

// Embed returns a cached embedding or calls the inner embedder.
func (c *MemoryCachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := memCacheKey(text)

	if vec, ok := c.cache.Get(key); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("memory", "hit").Inc()
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("memory", "miss").Inc()

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	if !result.Degraded() {
		c.cache.Add(key, result.Embedding)
	}
	return result, nil
}

// EmbedBatch serves what it can from the cache and embeds the rest through
// the inner embedder, preserving input-order correspondence.
func (c *MemoryCachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]domain.EmbeddingResult, error) {
	out := make([]domain.EmbeddingResult, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if vec, ok := c.cache.Get(memCacheKey(text)); ok {
			metrics.EmbeddingCacheTotal.WithLabelValues("memory", "hit").Inc()
			out[i] = domain.EmbeddingResult{Embedding: vec}
			continue
		}
		metrics.EmbeddingCacheTotal.WithLabelValues("memory", "miss").Inc()
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	results, err := embedBatch(ctx, c.inner, missing)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	for j, res := range results {
		out[missingIdx[j]] = res
		if !res.Degraded() {
			c.cache.Add(memCacheKey(missing[j]), res.Embedding)
		}
	}
	return out, nil
}

func memCacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// embedBatch uses the inner BatchEmbedder when available, falling back to
// per-text Embed calls otherwise.
func embedBatch(ctx context.Context, inner domain.Embedder, texts []string) ([]domain.EmbeddingResult, error) {
	if be, ok := inner.(domain.BatchEmbedder); ok {
		return be.EmbedBatch(ctx, texts)
	}
	out := make([]domain.EmbeddingResult, len(texts))
	for i, t := range texts {
		res, err := inner.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed [%d]: %w", i, err)
		}
		out[i] = res
	}
	return out, nil
}
