package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/grounder/internal/domain"
	"github.com/kailas-cloud/grounder/internal/normalize"
)

// The metadata searchers cover the small, flat sources: websites, scraped
// pages and knowledge file records. All three share the FAQ shape: substring
// candidacy, ordinal scoring.

// WebsiteSearcher matches registered websites on name, description and URL.
type WebsiteSearcher struct {
	store WebsiteReader
}

// NewWebsiteSearcher creates a website searcher.
func NewWebsiteSearcher(store WebsiteReader) *WebsiteSearcher {
	return &WebsiteSearcher{store: store}
}

var _ Searcher = (*WebsiteSearcher)(nil)

func (s *WebsiteSearcher) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	sites, err := s.store.ListWebsitesByTenant(ctx, opts.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}

	m := newSubstringMatcher(query)
	var results []domain.SearchResult
	for _, w := range sites {
		if !m.matches(w.Name, w.Description, w.URL) {
			continue
		}
		results = append(results, domain.SearchResult{
			ID:       w.ID,
			Source:   domain.SourceWebsite,
			Title:    w.Name,
			Content:  w.Description,
			URL:      w.URL,
			TenantID: w.TenantID,
		})
	}
	assignOrdinalScores(results)
	return truncate(results, opts.Limit), nil
}

// PageSearcher matches scraped website pages on title, content and URL.
type PageSearcher struct {
	store WebsiteReader
}

// NewPageSearcher creates a page searcher.
func NewPageSearcher(store WebsiteReader) *PageSearcher {
	return &PageSearcher{store: store}
}

var _ Searcher = (*PageSearcher)(nil)

func (s *PageSearcher) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	sites, err := s.store.ListWebsitesByTenant(ctx, opts.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}

	m := newSubstringMatcher(query)
	var results []domain.SearchResult
	for _, w := range sites {
		pages, err := s.store.ListPagesByWebsite(ctx, w.ID)
		if err != nil {
			return nil, fmt.Errorf("list pages of %s: %w", w.ID, err)
		}
		for _, p := range pages {
			if !m.matches(p.Title, p.Content, p.URL) {
				continue
			}
			results = append(results, domain.SearchResult{
				ID:       p.ID,
				Source:   domain.SourceWebsitePage,
				Title:    p.Title,
				Content:  p.Content,
				URL:      p.URL,
				TenantID: p.TenantID,
			})
		}
	}
	assignOrdinalScores(results)
	return truncate(results, opts.Limit), nil
}

// FileSearcher matches knowledge file records on name and description.
type FileSearcher struct {
	store KnowledgeFileReader
}

// NewFileSearcher creates a knowledge file searcher.
func NewFileSearcher(store KnowledgeFileReader) *FileSearcher {
	return &FileSearcher{store: store}
}

var _ Searcher = (*FileSearcher)(nil)

func (s *FileSearcher) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	files, err := s.store.ListKnowledgeFilesByTenant(ctx, opts.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list knowledge files: %w", err)
	}

	m := newSubstringMatcher(query)
	var results []domain.SearchResult
	for _, kf := range files {
		if !kf.Enabled && !opts.IncludeDisabled {
			continue
		}
		if !m.matches(kf.Name, kf.Description) {
			continue
		}
		results = append(results, domain.SearchResult{
			ID:       kf.ID,
			Source:   domain.SourceKnowledgeFile,
			Title:    kf.Name,
			Content:  kf.Description,
			TenantID: kf.TenantID,
		})
	}
	assignOrdinalScores(results)
	return truncate(results, opts.Limit), nil
}

// substringMatcher tests fields against the raw query and its expanded
// keyword list, all case-insensitive.
type substringMatcher struct {
	needle   string
	keywords []string
}

func newSubstringMatcher(query string) substringMatcher {
	return substringMatcher{
		needle:   strings.ToLower(strings.TrimSpace(query)),
		keywords: normalize.Keywords(query),
	}
}

func (m substringMatcher) matches(fields ...string) bool {
	for _, f := range fields {
		low := strings.ToLower(f)
		if m.needle != "" && strings.Contains(low, m.needle) {
			return true
		}
		for _, kw := range m.keywords {
			if strings.Contains(low, kw) {
				return true
			}
		}
	}
	return false
}

// assignOrdinalScores scores matches by encounter rank, first match highest.
func assignOrdinalScores(results []domain.SearchResult) {
	for i := range results {
		results[i].Score = ordinalScore(i, len(results))
	}
}
