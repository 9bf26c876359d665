package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/grounder/internal/domain"
)

// tenantDocuments resolves the documents searchable for a tenant. Chunk
// search runs through a knowledge-file indirection: a document is in scope
// only when its metadata links it to an enabled knowledge file of the same
// tenant. A tenant with no enabled files gets an empty scope immediately,
// never a widened unscoped search.
func tenantDocuments(
	ctx context.Context, docs DocumentReader, files KnowledgeFileReader, tenantID string,
) ([]domain.Document, error) {
	kfs, err := files.ListKnowledgeFilesByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list knowledge files: %w", err)
	}

	enabled := make(map[string]struct{}, len(kfs))
	for _, kf := range kfs {
		if kf.Enabled {
			enabled[kf.ID] = struct{}{}
		}
	}
	if len(enabled) == 0 {
		return nil, nil
	}

	all, err := docs.ListDocumentsByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list tenant documents: %w", err)
	}

	scoped := make([]domain.Document, 0, len(all))
	for _, d := range all {
		if _, ok := enabled[d.KnowledgeFileID()]; ok {
			scoped = append(scoped, d)
		}
	}
	return scoped, nil
}

// ordinalScore turns a rank into a score: the first match gets 1.0 and each
// following match steps down by 1/total. Always positive for rank < total.
func ordinalScore(rank, total int) float64 {
	if total <= 0 {
		return 0
	}
	return domain.ClampScore(1 - float64(rank)/float64(total))
}

// sortByScoreDesc sorts results descending by score, preserving encounter
// order for equal scores.
func sortByScoreDesc(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func truncate(results []domain.SearchResult, limit int) []domain.SearchResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
