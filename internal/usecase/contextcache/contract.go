package contextcache

import (
	"context"

	"github.com/kailas-cloud/grounder/internal/domain"
)

// Retriever runs the semantic pre-filter over a project's chunks.
type Retriever interface {
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}

// ProjectReader resolves a project and its documents.
type ProjectReader interface {
	GetProjectWithDocuments(ctx context.Context, id string) (domain.Project, []domain.Document, error)
}

// ChunkReader reads content chunks for context assembly.
type ChunkReader interface {
	ListChunksByDocument(ctx context.Context, documentID string) ([]domain.ContentChunk, error)
	ListChunksByIDs(ctx context.Context, ids []string) ([]domain.ContentChunk, error)
}

// SessionStore persists lightweight cache descriptors for cross-process
// continuity: a restarted instance reads them back to recognize warm
// sessions. Failures here degrade to "in-memory only", never to errors.
type SessionStore interface {
	Save(ctx context.Context, rec domain.SessionRecord) error
	Get(ctx context.Context, sessionID string) (domain.SessionRecord, error)
	Touch(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}
