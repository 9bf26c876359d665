package domain

// SourceType identifies which content store produced a search result.
type SourceType string

// The closed set of searchable sources.
const (
	SourceFAQ           SourceType = "faq"
	SourceDocument      SourceType = "document"
	SourceKnowledgeFile SourceType = "knowledge_file"
	SourceWebsite       SourceType = "website"
	SourceWebsitePage   SourceType = "website_page"
)

// Valid reports whether t is one of the five known source types.
func (t SourceType) Valid() bool {
	switch t {
	case SourceFAQ, SourceDocument, SourceKnowledgeFile, SourceWebsite, SourceWebsitePage:
		return true
	}
	return false
}

// SearchResult is the common output of every source searcher.
// Score is always within [0,1]; fusion produces a new clamped value
// rather than mutating results in place.
type SearchResult struct {
	ID       string
	Source   SourceType
	Title    string
	Content  string
	Score    float64
	URL      string
	TenantID string
	Metadata map[string]string
}

// ClampScore bounds a score to [0,1].
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// SearchOptions carries the per-call knobs shared by all source searchers.
type SearchOptions struct {
	// TenantID scopes the search to one assistant's content. Required.
	TenantID string
	// Limit bounds the number of returned results.
	Limit int
	// Threshold is the minimum cosine similarity for vector matches.
	// Zero means "use the searcher default".
	Threshold float64
	// IncludeDisabled widens FAQ search to disabled entries.
	IncludeDisabled bool
}

// Validate rejects option sets that indicate an integration bug upstream.
func (o SearchOptions) Validate() error {
	if o.TenantID == "" {
		return ErrMissingScope
	}
	return nil
}
