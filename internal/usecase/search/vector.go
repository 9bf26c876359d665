package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/grounder/internal/domain"
	"github.com/kailas-cloud/grounder/internal/metrics"
)

// degenerateSimilarity is the floor below which a whole result set is read
// as corrupted or meaningless embeddings rather than a genuine ranking.
const degenerateSimilarity = 0.01

// VectorChunkSearcher ranks document chunks by cosine similarity between the
// query embedding and stored chunk embeddings. Whenever the vector path
// cannot produce a trustworthy ranking it hands the query to the keyword
// searcher instead of returning nothing.
type VectorChunkSearcher struct {
	embed            domain.Embedder
	docs             DocumentReader
	chunks           ChunkReader
	embWriter        ChunkEmbeddingWriter
	files            KnowledgeFileReader
	text             *TextChunkSearcher
	defaultThreshold float64
	logger           *zap.Logger
}

// NewVectorChunkSearcher creates a vector chunk searcher. embWriter may be
// nil to disable chunk-embedding write-back.
func NewVectorChunkSearcher(
	embed domain.Embedder,
	docs DocumentReader,
	chunks ChunkReader,
	files KnowledgeFileReader,
	embWriter ChunkEmbeddingWriter,
	text *TextChunkSearcher,
	defaultThreshold float64,
	logger *zap.Logger,
) *VectorChunkSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorChunkSearcher{
		embed:            embed,
		docs:             docs,
		chunks:           chunks,
		embWriter:        embWriter,
		files:            files,
		text:             text,
		defaultThreshold: defaultThreshold,
		logger:           logger,
	}
}

var _ Searcher = (*VectorChunkSearcher)(nil)

// Search runs the similarity ranking and falls back to keyword search when
// the embedding is degraded, nothing clears the threshold, or every
// similarity is effectively zero.
func (s *VectorChunkSearcher) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	results, fallbackReason, err := s.similar(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	if fallbackReason != "" {
		metrics.VectorFallbacksTotal.WithLabelValues(fallbackReason).Inc()
		s.logger.Debug("Vector search fell back to keyword search",
			zap.String("reason", fallbackReason))
		return s.text.Search(ctx, query, opts)
	}
	return results, nil
}

// SearchSimilar is the fusion entry point: similarity ranking only, no
// keyword fallback. An untrustworthy vector path yields an empty list so the
// caller's text branch carries the query alone.
func (s *VectorChunkSearcher) SearchSimilar(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	results, fallbackReason, err := s.similar(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	if fallbackReason != "" {
		return nil, nil
	}
	return results, nil
}

// similar returns the ranked results, or a non-empty fallback reason when
// the caller should switch strategy. Scope resolution runs before the query
// is embedded: an out-of-scope tenant costs no embedding tokens.
func (s *VectorChunkSearcher) similar(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, string, error) {
	docs, err := tenantDocuments(ctx, s.docs, s.files, opts.TenantID)
	if err != nil {
		return nil, "", fmt.Errorf("resolve tenant scope: %w", err)
	}
	if len(docs) == 0 {
		return nil, "", nil
	}

	embRes, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, "", fmt.Errorf("embed query: %w", err)
	}
	if embRes.Degraded() {
		return nil, "degraded_embedding", nil
	}

	threshold := opts.Threshold
	if threshold == 0 {
		threshold = s.defaultThreshold
	}

	var results []domain.SearchResult
	maxSim := 0.0
	for _, doc := range docs {
		chunks, err := s.chunks.ListChunksByDocument(ctx, doc.ID)
		if err != nil {
			return nil, "", fmt.Errorf("list chunks of %s: %w", doc.ID, err)
		}
		chunks = s.ensureEmbeddings(ctx, chunks)
		for _, c := range chunks {
			if domain.IsZeroVector(c.Embedding) {
				continue
			}
			sim := domain.CosineSimilarity(embRes.Embedding, c.Embedding)
			if sim > maxSim {
				maxSim = sim
			}
			if sim < threshold {
				continue
			}
			results = append(results, domain.SearchResult{
				ID:       c.ID,
				Source:   domain.SourceDocument,
				Title:    doc.Name,
				Content:  c.Content,
				Score:    domain.ClampScore(sim),
				TenantID: doc.TenantID,
				Metadata: map[string]string{"document_id": doc.ID},
			})
		}
	}

	if len(results) == 0 {
		return nil, "no_results", nil
	}
	if maxSim < degenerateSimilarity {
		return nil, "degenerate_scores", nil
	}

	sortByScoreDesc(results)
	return truncate(results, opts.Limit), "", nil
}

// ensureEmbeddings backfills missing chunk embeddings in one batch call and
// persists them. Chunks whose embedding comes back degraded stay empty.
// Failures here degrade to "fewer scorable chunks", never to a search error.
func (s *VectorChunkSearcher) ensureEmbeddings(
	ctx context.Context, chunks []domain.ContentChunk,
) []domain.ContentChunk {
	var missing []int
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return chunks
	}

	be, ok := s.embed.(domain.BatchEmbedder)
	if !ok {
		return chunks
	}

	texts := make([]string, len(missing))
	for j, i := range missing {
		texts[j] = chunks[i].Content
	}
	results, err := be.EmbedBatch(ctx, texts)
	if err != nil || len(results) != len(missing) {
		s.logger.Warn("Failed to backfill chunk embeddings", zap.Error(err))
		return chunks
	}

	for j, i := range missing {
		if results[j].Degraded() {
			continue
		}
		chunks[i].Embedding = results[j].Embedding
		if s.embWriter != nil {
			if err := s.embWriter.SaveChunkEmbedding(ctx, chunks[i].ID, results[j].Embedding); err != nil {
				s.logger.Warn("Failed to persist chunk embedding",
					zap.String("chunk_id", chunks[i].ID), zap.Error(err))
			}
		}
	}
	return chunks
}
