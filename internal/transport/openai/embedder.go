package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/grounder/internal/domain"
	"github.com/kailas-cloud/grounder/internal/metrics"
)

// Backend is an embedding client over the OpenAI-compatible API. Unlike a
// single-model embedder, the model is a per-call parameter so the provider
// chain can walk its ordered fallback list over one connection.
type Backend struct {
	client *openai.Client
	logger *zap.Logger
}

// Config holds the embedding backend settings.
type Config struct {
	APIKey  string
	BaseURL string
	Logger  *zap.Logger
}

// NewBackend creates an OpenAI-compatible embedding backend.
func NewBackend(cfg *Config) *Backend {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Backend{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

// Embed requests a single embedding from the given model. The returned
// vector is always domain.EmbeddingDim long; off-dimension model output is
// padded with zeros or truncated.
func (b *Backend) Embed(ctx context.Context, model, text string) (domain.EmbeddingResult, error) {
	results, err := b.EmbedBatch(ctx, model, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return results[0], nil
}

// EmbedBatch requests embeddings for multiple texts in one API call,
// preserving input order.
func (b *Backend) EmbedBatch(ctx context.Context, model string, texts []string) ([]domain.EmbeddingResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          openai.EmbeddingModel(model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	start := time.Now()

	resp, err := b.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(model, "error").Inc()
		return nil, classifyAPIError(err)
	}

	if len(resp.Data) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(model, "error").Inc()
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs: %w",
			len(resp.Data), len(texts), domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	out := make([]domain.EmbeddingResult, len(resp.Data))
	for i, d := range resp.Data {
		vec := normalizeDim(d.Embedding)
		if len(d.Embedding) != domain.EmbeddingDim {
			b.logger.Warn("Embedding dimension normalized",
				zap.String("model", model),
				zap.Int("got", len(d.Embedding)),
				zap.Int("want", domain.EmbeddingDim),
			)
		}
		out[i] = domain.EmbeddingResult{
			Embedding:    vec,
			Model:        model,
			PromptTokens: resp.Usage.PromptTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (b *Backend) HealthCheck(ctx context.Context) error {
	if _, err := b.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// normalizeDim pads or truncates a vector to domain.EmbeddingDim so every
// vector crossing the transport boundary has the fixed dimension.
func normalizeDim(v []float32) []float32 {
	if len(v) == domain.EmbeddingDim {
		return v
	}
	out := make([]float32, domain.EmbeddingDim)
	copy(out, v)
	return out
}

// classifyAPIError maps provider errors onto the two domain sentinels:
// ErrModelAccess for failures that mean "this model will never work with
// these credentials" (the chain should try the next model), and
// ErrEmbeddingProviderError for everything else.
func classifyAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		if isAccessStatus(reqErr.HTTPStatusCode) {
			return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, detail, domain.ErrModelAccess)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, domain.ErrEmbeddingProviderError)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if isAccessStatus(apiErr.HTTPStatusCode) {
			return fmt.Errorf("embedding API error %d: %s: %w",
				apiErr.HTTPStatusCode, apiErr.Message, domain.ErrModelAccess)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrEmbeddingProviderError)
	}

	return fmt.Errorf("embedding request failed: %v: %w", err, domain.ErrEmbeddingProviderError)
}

// isAccessStatus reports whether an HTTP status signals an access problem
// with the requested model rather than a transient provider failure.
func isAccessStatus(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
