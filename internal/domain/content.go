package domain

import "time"

// MetaKnowledgeFileID is the document metadata key linking a document to the
// knowledge file it was ingested from. Tenant scoping of chunk search runs
// through this indirection: only documents whose file is enabled for the
// tenant are searchable.
const MetaKnowledgeFileID = "knowledge_file_id"

// Document is an ingested document owned by the content store.
type Document struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenant_id"`
	ProjectID string            `json:"project_id,omitempty"`
	Name      string            `json:"name"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// KnowledgeFileID returns the linked knowledge file ID, if any.
func (d Document) KnowledgeFileID() string {
	return d.Metadata[MetaKnowledgeFileID]
}

// ContentChunk is a bounded slice of a document, the unit of embedding and
// keyword scoring. The retrieval core reads chunks and may write back a
// computed embedding; it never mutates content.
type ContentChunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	Ordinal    int       `json:"ordinal"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// DocumentRef is a lightweight document pointer kept in session cache entries.
type DocumentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FAQ is a curated question/answer pair.
type FAQ struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	Enabled      bool   `json:"enabled"`
	DisplayOrder int    `json:"display_order"`
}

// KnowledgeFile is an uploaded file record. Documents reference it via
// MetaKnowledgeFileID; disabled files hide their documents from search.
type KnowledgeFile struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// Website is a scraped site registered for a tenant.
type Website struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Status      string `json:"status"`
}

// WebsitePage is a single scraped page of a website.
type WebsitePage struct {
	ID        string `json:"id"`
	WebsiteID string `json:"website_id"`
	TenantID  string `json:"tenant_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	URL       string `json:"url"`
}

// Project groups the documents that back one chatbot deployment.
type Project struct {
	ID          string   `json:"id"`
	TenantID    string   `json:"tenant_id"`
	Name        string   `json:"name"`
	DocumentIDs []string `json:"document_ids"`
}

// SessionRecord is the durable conversation-session state persisted for
// cross-process session-cache continuity.
type SessionRecord struct {
	SessionID   string    `json:"session_id"`
	ProjectID   string    `json:"project_id"`
	DocumentIDs []string  `json:"document_ids,omitempty"`
	ChunkCount  int       `json:"chunk_count"`
	CachedAt    time.Time `json:"cached_at"`
}
