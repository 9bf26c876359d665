// Package embcache persists computed embeddings in the key-value store so
// chunk vectors survive process restarts and are shared across instances.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kailas-cloud/grounder/internal/db"
	"github.com/kailas-cloud/grounder/internal/domain"
	"github.com/kailas-cloud/grounder/internal/metrics"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder caches embeddings in a key-value store. Degraded (all-zero)
// results pass through uncached so a recovered provider can fill them later.
type CachedEmbedder struct {
	inner     domain.Embedder
	store     store
	keyPrefix string
	logger    *zap.Logger
}

// New creates a caching decorator. keyPrefix namespaces cache keys in the
// shared store.
func New(inner domain.Embedder, s store, keyPrefix string, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:     inner,
		store:     s,
		keyPrefix: keyPrefix + "emb_cache:",
		logger:    logger,
	}
}

var _ domain.Embedder = (*CachedEmbedder)(nil)
var _ domain.BatchEmbedder = (*CachedEmbedder)(nil)

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.getFromCache(ctx, key); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("store", "hit").Inc()
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("store", "miss").Inc()

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	if !result.Degraded() {
		c.putToCache(ctx, key, result.Embedding)
	}
	return result, nil
}

// EmbedBatch serves cached entries and embeds the rest through the inner
// embedder, preserving input-order correspondence.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]domain.EmbeddingResult, error) {
	out := make([]domain.EmbeddingResult, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if vec, ok := c.getFromCache(ctx, c.cacheKey(text)); ok {
			metrics.EmbeddingCacheTotal.WithLabelValues("store", "hit").Inc()
			out[i] = domain.EmbeddingResult{Embedding: vec}
			continue
		}
		metrics.EmbeddingCacheTotal.WithLabelValues("store", "miss").Inc()
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	results, err := c.embedMissing(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	for j, res := range results {
		out[missingIdx[j]] = res
		if !res.Degraded() {
			c.putToCache(ctx, c.cacheKey(missing[j]), res.Embedding)
		}
	}
	return out, nil
}

func (c *CachedEmbedder) embedMissing(ctx context.Context, texts []string) ([]domain.EmbeddingResult, error) {
	if be, ok := c.inner.(domain.BatchEmbedder); ok {
		return be.EmbedBatch(ctx, texts)
	}
	out := make([]domain.EmbeddingResult, len(texts))
	for i, t := range texts {
		res, err := c.inner.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed [%d]: %w", i, err)
		}
		out[i] = res
	}
	return out, nil
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return c.keyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	data := vectorToCacheBytes(vec)
	if err := c.store.Set(ctx, key, data); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
