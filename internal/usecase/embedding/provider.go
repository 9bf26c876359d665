// Package embedding implements the text vectorization provider: an ordered
// model fallback chain over an OpenAI-compatible backend, plus cache
// decorators layered in front of it.
package embedding

import (
	"context"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/grounder/internal/domain"
	"github.com/kailas-cloud/grounder/internal/metrics"
)

// Backend is the transport contract: one embedding API that can serve
// multiple models.
type Backend interface {
	Embed(ctx context.Context, model, text string) (domain.EmbeddingResult, error)
	EmbedBatch(ctx context.Context, model string, texts []string) ([]domain.EmbeddingResult, error)
}

// attempt classification for one model in the chain.
const (
	attemptUnavailable = iota // this model rejected us; try the next one
	attemptFatal              // no model will do better; stop the chain
)

// Provider walks an ordered model list and degrades to the all-zero
// sentinel vector when every model fails. It never returns an error for
// provider-side failures: availability over correctness, so the text-based
// search paths keep working when embeddings are down.
type Provider struct {
	backend       Backend
	models        []string
	maxInputChars int
	logger        *zap.Logger
}

// NewProvider creates a fallback-chain provider. models must be in
// preference order; the first entry is the primary model.
func NewProvider(backend Backend, models []string, maxInputChars int, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		backend:       backend,
		models:        models,
		maxInputChars: maxInputChars,
		logger:        logger,
	}
}

var _ domain.Embedder = (*Provider)(nil)
var _ domain.BatchEmbedder = (*Provider)(nil)

// Embed vectorizes one text. On total failure the result carries the
// all-zero sentinel and a nil error.
func (p *Provider) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	results, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return results[0], nil
}

// EmbedBatch vectorizes multiple texts, deduplicating identical inputs
// before calling the backend while still returning exactly one result per
// input, in input order. On total failure every result carries the all-zero
// sentinel.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([]domain.EmbeddingResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	truncated := make([]string, len(texts))
	for i, t := range texts {
		truncated[i] = p.truncate(t)
	}

	// Dedup identical inputs; uniqueIdx maps each input position to its
	// position in the unique list.
	uniqueIdx := make([]int, len(truncated))
	var unique []string
	seen := make(map[string]int, len(truncated))
	for i, t := range truncated {
		if at, ok := seen[t]; ok {
			uniqueIdx[i] = at
			continue
		}
		seen[t] = len(unique)
		uniqueIdx[i] = len(unique)
		unique = append(unique, t)
	}

	uniqueResults := p.embedChain(ctx, unique)

	out := make([]domain.EmbeddingResult, len(truncated))
	for i, at := range uniqueIdx {
		out[i] = uniqueResults[at]
	}
	return out, nil
}

// embedChain folds over the model list: Unavailable moves to the next
// model, Fatal stops the chain. Exhaustion yields sentinel results.
func (p *Provider) embedChain(ctx context.Context, texts []string) []domain.EmbeddingResult {
	for _, model := range p.models {
		results, err := p.backend.EmbedBatch(ctx, model, texts)
		if err == nil {
			return results
		}

		switch classify(ctx, err) {
		case attemptUnavailable:
			metrics.EmbeddingFallbacksTotal.WithLabelValues("next_model").Inc()
			p.logger.Warn("Embedding model unavailable, trying next",
				zap.String("model", model), zap.Error(err))
		case attemptFatal:
			metrics.EmbeddingFallbacksTotal.WithLabelValues("degraded").Inc()
			p.logger.Warn("Embedding request failed, degrading to sentinel",
				zap.String("model", model), zap.Error(err))
			return sentinelResults(len(texts))
		}
	}

	metrics.EmbeddingFallbacksTotal.WithLabelValues("degraded").Inc()
	p.logger.Warn("All embedding models exhausted, degrading to sentinel",
		zap.Strings("models", p.models))
	return sentinelResults(len(texts))
}

func (p *Provider) truncate(text string) string {
	if p.maxInputChars <= 0 || len(text) <= p.maxInputChars {
		return text
	}
	// Back off to a rune boundary so the cut never splits a multi-byte
	// sequence (Dutch content carries plenty of diacritics).
	cut := p.maxInputChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// classify decides whether a failed attempt should fall through to the next
// model. Only model access errors are worth retrying elsewhere; everything
// else (network trouble, cancellation, provider outage) will fail for every
// model on the same backend.
func classify(ctx context.Context, err error) int {
	if ctx.Err() != nil {
		return attemptFatal
	}
	if errors.Is(err, domain.ErrModelAccess) {
		return attemptUnavailable
	}
	return attemptFatal
}

func sentinelResults(n int) []domain.EmbeddingResult {
	out := make([]domain.EmbeddingResult, n)
	for i := range out {
		out[i] = domain.EmbeddingResult{Embedding: domain.ZeroVector()}
	}
	return out
}
