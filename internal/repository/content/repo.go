// Package content is the rueidis-backed read side of the knowledge base:
// documents, chunks, FAQs, knowledge files, websites and pages, addressed by
// JSON values plus tenant/project membership sets.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/grounder/internal/db"
	"github.com/kailas-cloud/grounder/internal/domain"
)

// store is the consumer interface for the content repository (ISP).
type store interface {
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	JSONSet(ctx context.Context, key, path string, data []byte) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Repo reads knowledge-base entities for the search use cases.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a content repository. keyPrefix namespaces all keys in the
// shared store.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// GetDocument returns a document by ID.
func (r *Repo) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	var doc domain.Document
	if err := r.getJSON(ctx, r.docKey(id), &doc); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Document{}, domain.ErrNotFound
		}
		return domain.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// ListDocumentsByTenant returns all documents registered for a tenant.
func (r *Repo) ListDocumentsByTenant(ctx context.Context, tenantID string) ([]domain.Document, error) {
	ids, err := r.store.SMembers(ctx, r.tenantKey(tenantID, "docs"))
	if err != nil {
		return nil, fmt.Errorf("list tenant documents %s: %w", tenantID, err)
	}
	return r.documentsByIDs(ctx, ids)
}

// ListDocumentsByIDs returns the documents for the given IDs, skipping any
// that no longer exist.
func (r *Repo) ListDocumentsByIDs(ctx context.Context, ids []string) ([]domain.Document, error) {
	return r.documentsByIDs(ctx, ids)
}

// ListChunksByDocument returns a document's chunks ordered by ordinal.
func (r *Repo) ListChunksByDocument(ctx context.Context, documentID string) ([]domain.ContentChunk, error) {
	ids, err := r.store.SMembers(ctx, r.docChunksKey(documentID))
	if err != nil {
		return nil, fmt.Errorf("list document chunks %s: %w", documentID, err)
	}
	chunks, err := r.chunksByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Ordinal < chunks[j].Ordinal })
	return chunks, nil
}

// ListChunksByIDs returns the chunks for the given IDs, skipping missing ones.
func (r *Repo) ListChunksByIDs(ctx context.Context, ids []string) ([]domain.ContentChunk, error) {
	return r.chunksByIDs(ctx, ids)
}

// SaveChunkEmbedding persists a computed embedding on an existing chunk.
func (r *Repo) SaveChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("marshal chunk embedding: %w", err)
	}
	if err := r.store.JSONSet(ctx, r.chunkKey(chunkID), "$.embedding", data); err != nil {
		return fmt.Errorf("save chunk embedding %s: %w", chunkID, err)
	}
	return nil
}

// ListFAQsByTenant returns all FAQ entries for a tenant, enabled or not.
// Filtering on Enabled is the searcher's concern.
func (r *Repo) ListFAQsByTenant(ctx context.Context, tenantID string) ([]domain.FAQ, error) {
	ids, err := r.store.SMembers(ctx, r.tenantKey(tenantID, "faqs"))
	if err != nil {
		return nil, fmt.Errorf("list tenant faqs %s: %w", tenantID, err)
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key("faq:" + id)
	}
	raws, err := r.multiGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch faqs: %w", err)
	}
	out := make([]domain.FAQ, 0, len(raws))
	for _, raw := range raws {
		var f domain.FAQ
		if err := decodeJSON(raw, &f); err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// ListKnowledgeFilesByTenant returns a tenant's knowledge file records.
func (r *Repo) ListKnowledgeFilesByTenant(ctx context.Context, tenantID string) ([]domain.KnowledgeFile, error) {
	ids, err := r.store.SMembers(ctx, r.tenantKey(tenantID, "files"))
	if err != nil {
		return nil, fmt.Errorf("list tenant knowledge files %s: %w", tenantID, err)
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key("kfile:" + id)
	}
	raws, err := r.multiGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch knowledge files: %w", err)
	}
	out := make([]domain.KnowledgeFile, 0, len(raws))
	for _, raw := range raws {
		var kf domain.KnowledgeFile
		if err := decodeJSON(raw, &kf); err != nil {
			continue
		}
		out = append(out, kf)
	}
	return out, nil
}

// ListWebsitesByTenant returns a tenant's registered websites.
func (r *Repo) ListWebsitesByTenant(ctx context.Context, tenantID string) ([]domain.Website, error) {
	ids, err := r.store.SMembers(ctx, r.tenantKey(tenantID, "websites"))
	if err != nil {
		return nil, fmt.Errorf("list tenant websites %s: %w", tenantID, err)
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key("website:" + id)
	}
	raws, err := r.multiGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch websites: %w", err)
	}
	out := make([]domain.Website, 0, len(raws))
	for _, raw := range raws {
		var w domain.Website
		if err := decodeJSON(raw, &w); err != nil {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

// ListPagesByWebsite returns the scraped pages of one website.
func (r *Repo) ListPagesByWebsite(ctx context.Context, websiteID string) ([]domain.WebsitePage, error) {
	ids, err := r.store.SMembers(ctx, r.key("website:"+websiteID+":pages"))
	if err != nil {
		return nil, fmt.Errorf("list website pages %s: %w", websiteID, err)
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key("page:" + id)
	}
	raws, err := r.multiGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch pages: %w", err)
	}
	out := make([]domain.WebsitePage, 0, len(raws))
	for _, raw := range raws {
		var p domain.WebsitePage
		if err := decodeJSON(raw, &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GetProject returns a project by ID.
func (r *Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	if err := r.getJSON(ctx, r.key("project:"+id), &p); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Project{}, domain.ErrProjectNotFound
		}
		return domain.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}
	return p, nil
}

// GetProjectWithDocuments returns a project and its resolved documents.
// Documents deleted since project assembly are skipped.
func (r *Repo) GetProjectWithDocuments(ctx context.Context, id string) (domain.Project, []domain.Document, error) {
	p, err := r.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, nil, err
	}
	docs, err := r.documentsByIDs(ctx, p.DocumentIDs)
	if err != nil {
		return domain.Project{}, nil, fmt.Errorf("resolve project documents %s: %w", id, err)
	}
	return p, docs, nil
}

func (r *Repo) documentsByIDs(ctx context.Context, ids []string) ([]domain.Document, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(id)
	}
	raws, err := r.multiGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}
	out := make([]domain.Document, 0, len(raws))
	for _, raw := range raws {
		var d domain.Document
		if err := decodeJSON(raw, &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *Repo) chunksByIDs(ctx context.Context, ids []string) ([]domain.ContentChunk, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.chunkKey(id)
	}
	raws, err := r.multiGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}
	out := make([]domain.ContentChunk, 0, len(raws))
	for _, raw := range raws {
		var c domain.ContentChunk
		if err := decodeJSON(raw, &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// multiGet filters the nil entries JSONGetMulti leaves for missing keys.
func (r *Repo) multiGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	raws, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

func (r *Repo) getJSON(ctx context.Context, key string, v any) error {
	raw, err := r.store.JSONGet(ctx, key)
	if err != nil {
		return err
	}
	return decodeJSON(raw, v)
}

func (r *Repo) key(suffix string) string {
	return r.keyPrefix + suffix
}

func (r *Repo) docKey(id string) string {
	return r.key("doc:" + id)
}

func (r *Repo) chunkKey(id string) string {
	return r.key("chunk:" + id)
}

func (r *Repo) docChunksKey(id string) string {
	return r.docKey(id) + ":chunks"
}

func (r *Repo) tenantKey(tenantID, kind string) string {
	return r.key("tenant:" + tenantID + ":" + kind)
}
