package search

import (
	"context"

	"github.com/kailas-cloud/grounder/internal/domain"
)

// Searcher is the common contract of every source searcher: results sorted
// descending by score, at most opts.Limit of them, scores within [0,1].
type Searcher interface {
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}

// DocumentReader lists the documents registered for a tenant.
type DocumentReader interface {
	ListDocumentsByTenant(ctx context.Context, tenantID string) ([]domain.Document, error)
}

// ChunkReader reads content chunks.
type ChunkReader interface {
	ListChunksByDocument(ctx context.Context, documentID string) ([]domain.ContentChunk, error)
	ListChunksByIDs(ctx context.Context, ids []string) ([]domain.ContentChunk, error)
}

// ChunkEmbeddingWriter persists lazily computed chunk embeddings. Query
// embeddings are never persisted.
type ChunkEmbeddingWriter interface {
	SaveChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error
}

// FAQReader lists a tenant's FAQ entries.
type FAQReader interface {
	ListFAQsByTenant(ctx context.Context, tenantID string) ([]domain.FAQ, error)
}

// KnowledgeFileReader lists a tenant's knowledge file records.
type KnowledgeFileReader interface {
	ListKnowledgeFilesByTenant(ctx context.Context, tenantID string) ([]domain.KnowledgeFile, error)
}

// WebsiteReader lists a tenant's websites and their scraped pages.
type WebsiteReader interface {
	ListWebsitesByTenant(ctx context.Context, tenantID string) ([]domain.Website, error)
	ListPagesByWebsite(ctx context.Context, websiteID string) ([]domain.WebsitePage, error)
}
