package search

import (
	"github.com/kailas-cloud/grounder/internal/domain"
)

// Fusion weights: agreement between the semantic and lexical signal is
// stronger evidence than either alone, with the semantic side dominant.
const (
	vectorWeight = 0.7
	textWeight   = 0.3
)

// fuseWeighted merges vector and text results by ID. Vector results seed the
// map at 70% weight; a text result for the same ID adds its 30% share, a new
// ID enters at 30% alone. Fused scores are clamped and the vector entry's
// fields win on agreement.
func fuseWeighted(vector, text []domain.SearchResult, limit int) []domain.SearchResult {
	merged := make(map[string]*domain.SearchResult, len(vector)+len(text))
	order := make([]string, 0, len(vector)+len(text))

	for _, r := range vector {
		fused := r
		fused.Score = r.Score * vectorWeight
		merged[r.ID] = &fused
		order = append(order, r.ID)
	}

	for _, r := range text {
		if existing, ok := merged[r.ID]; ok {
			existing.Score += r.Score * textWeight
			continue
		}
		fused := r
		fused.Score = r.Score * textWeight
		merged[r.ID] = &fused
		order = append(order, r.ID)
	}

	results := make([]domain.SearchResult, 0, len(order))
	for _, id := range order {
		res := *merged[id]
		res.Score = domain.ClampScore(res.Score)
		results = append(results, res)
	}

	sortByScoreDesc(results)
	return truncate(results, limit)
}
