package search

import (
	"context"
	"errors"

	"github.com/kailas-cloud/grounder/internal/domain"
)

// mockContent is an in-memory content store implementing every reader
// interface, with a single switch to fail all reads.
type mockContent struct {
	docs   map[string][]domain.Document
	chunks map[string][]domain.ContentChunk
	faqs   map[string][]domain.FAQ
	files  map[string][]domain.KnowledgeFile
	sites  map[string][]domain.Website
	pages  map[string][]domain.WebsitePage

	savedEmbeddings map[string][]float32
	failReads       bool
}

func newMockContent() *mockContent {
	return &mockContent{
		docs:            make(map[string][]domain.Document),
		chunks:          make(map[string][]domain.ContentChunk),
		faqs:            make(map[string][]domain.FAQ),
		files:           make(map[string][]domain.KnowledgeFile),
		sites:           make(map[string][]domain.Website),
		pages:           make(map[string][]domain.WebsitePage),
		savedEmbeddings: make(map[string][]float32),
	}
}

var errStoreDown = errors.New("store down")

func (m *mockContent) ListDocumentsByTenant(_ context.Context, tenantID string) ([]domain.Document, error) {
	if m.failReads {
		return nil, errStoreDown
	}
	return m.docs[tenantID], nil
}

func (m *mockContent) ListChunksByDocument(_ context.Context, documentID string) ([]domain.ContentChunk, error) {
	if m.failReads {
		return nil, errStoreDown
	}
	return m.chunks[documentID], nil
}

func (m *mockContent) ListChunksByIDs(_ context.Context, ids []string) ([]domain.ContentChunk, error) {
	if m.failReads {
		return nil, errStoreDown
	}
	var out []domain.ContentChunk
	for _, chunks := range m.chunks {
		for _, c := range chunks {
			for _, id := range ids {
				if c.ID == id {
					out = append(out, c)
				}
			}
		}
	}
	return out, nil
}

func (m *mockContent) SaveChunkEmbedding(_ context.Context, chunkID string, embedding []float32) error {
	if m.failReads {
		return errStoreDown
	}
	m.savedEmbeddings[chunkID] = embedding
	return nil
}

func (m *mockContent) ListFAQsByTenant(_ context.Context, tenantID string) ([]domain.FAQ, error) {
	if m.failReads {
		return nil, errStoreDown
	}
	return m.faqs[tenantID], nil
}

func (m *mockContent) ListKnowledgeFilesByTenant(_ context.Context, tenantID string) ([]domain.KnowledgeFile, error) {
	if m.failReads {
		return nil, errStoreDown
	}
	return m.files[tenantID], nil
}

func (m *mockContent) ListWebsitesByTenant(_ context.Context, tenantID string) ([]domain.Website, error) {
	if m.failReads {
		return nil, errStoreDown
	}
	return m.sites[tenantID], nil
}

func (m *mockContent) ListPagesByWebsite(_ context.Context, websiteID string) ([]domain.WebsitePage, error) {
	if m.failReads {
		return nil, errStoreDown
	}
	return m.pages[websiteID], nil
}

// scriptedEmbedder returns configured vectors per text, the zero sentinel
// for unknown texts, and counts calls.
type scriptedEmbedder struct {
	vectors    map[string][]float32
	embedCalls int
	batchCalls int
}

func (e *scriptedEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.embedCalls++
	return domain.EmbeddingResult{Embedding: e.vectorFor(text)}, nil
}

func (e *scriptedEmbedder) EmbedBatch(_ context.Context, texts []string) ([]domain.EmbeddingResult, error) {
	e.batchCalls++
	out := make([]domain.EmbeddingResult, len(texts))
	for i, t := range texts {
		out[i] = domain.EmbeddingResult{Embedding: e.vectorFor(t)}
	}
	return out, nil
}

func (e *scriptedEmbedder) vectorFor(text string) []float32 {
	if v, ok := e.vectors[text]; ok {
		return v
	}
	return domain.ZeroVector()
}

// seedScopedTenant registers an enabled knowledge file and one linked
// document so chunk searchers have an in-scope target.
func (m *mockContent) seedScopedTenant(tenantID, docID, docName string) {
	m.files[tenantID] = append(m.files[tenantID], domain.KnowledgeFile{
		ID: "kf-" + docID, TenantID: tenantID, Name: docName, Enabled: true,
	})
	m.docs[tenantID] = append(m.docs[tenantID], domain.Document{
		ID: docID, TenantID: tenantID, Name: docName,
		Metadata: map[string]string{domain.MetaKnowledgeFileID: "kf-" + docID},
	})
}
