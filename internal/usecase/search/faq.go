package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/grounder/internal/domain"
	"github.com/kailas-cloud/grounder/internal/normalize"
)

// FAQSearcher matches curated question/answer pairs by substring. Scoring is
// purely ordinal: matches are ranked by display order and the first gets 1.0.
type FAQSearcher struct {
	store FAQReader
}

// NewFAQSearcher creates an FAQ searcher.
func NewFAQSearcher(store FAQReader) *FAQSearcher {
	return &FAQSearcher{store: store}
}

var _ Searcher = (*FAQSearcher)(nil)

// Search returns the tenant's FAQ entries whose question or answer contains
// the query or one of its synonym-expanded keywords.
func (s *FAQSearcher) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	faqs, err := s.store.ListFAQsByTenant(ctx, opts.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	keywords := normalize.Keywords(query)

	var matches []domain.FAQ
	for _, f := range faqs {
		if !f.Enabled && !opts.IncludeDisabled {
			continue
		}
		if faqMatches(f, needle, keywords) {
			matches = append(matches, f)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DisplayOrder < matches[j].DisplayOrder
	})

	results := make([]domain.SearchResult, len(matches))
	for i, f := range matches {
		results[i] = domain.SearchResult{
			ID:       f.ID,
			Source:   domain.SourceFAQ,
			Title:    f.Question,
			Content:  f.Answer,
			Score:    ordinalScore(i, len(matches)),
			TenantID: f.TenantID,
		}
	}
	return truncate(results, opts.Limit), nil
}

// faqMatches checks the raw query first for exact-substring benefit, then the
// expanded keyword list so a different surface form still hits.
func faqMatches(f domain.FAQ, needle string, keywords []string) bool {
	q := strings.ToLower(f.Question)
	a := strings.ToLower(f.Answer)

	if needle != "" && (strings.Contains(q, needle) || strings.Contains(a, needle)) {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(q, kw) || strings.Contains(a, kw) {
			return true
		}
	}
	return false
}
