package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/grounder/internal/domain"
	"github.com/kailas-cloud/grounder/internal/metrics"
)

// chunkShareFactor widens the chunk searcher's slice of the limit: chunks
// are the densest source and need a larger candidate pool before the global
// truncation.
const chunkShareFactor = 2

// Orchestrator fans a query out to every source searcher concurrently and
// merges their contributions into one globally ranked list.
type Orchestrator struct {
	faq    Searcher
	file   Searcher
	site   Searcher
	page   Searcher
	vector *VectorChunkSearcher
	text   *TextChunkSearcher

	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

// NewOrchestrator creates the unified search orchestrator.
func NewOrchestrator(
	faq, file, site, page Searcher,
	vector *VectorChunkSearcher,
	text *TextChunkSearcher,
	defaultLimit, maxLimit int,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		faq:          faq,
		file:         file,
		site:         site,
		page:         page,
		vector:       vector,
		text:         text,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger,
	}
}

// validate rejects calls no searcher could serve: a blank query or a
// missing tenant scope.
func validate(query string, opts domain.SearchOptions) error {
	if strings.TrimSpace(query) == "" {
		return domain.ErrInvalidQuery
	}
	return opts.Validate()
}

// branch is one concurrent searcher invocation in the fan-out.
type branch struct {
	source   domain.SourceType
	limit    int
	searcher Searcher
}

// Search is the default entry point for the chat-answer flow: all five
// sources searched concurrently, results concatenated, sorted descending by
// score and truncated. A failing branch contributes nothing while its
// siblings still count; there is no fusion here.
func (o *Orchestrator) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if err := validate(query, opts); err != nil {
		return nil, err
	}
	limit := o.clampLimit(opts.Limit)
	smallShare := (limit + 4) / 5

	branches := []branch{
		{domain.SourceFAQ, smallShare, o.faq},
		{domain.SourceKnowledgeFile, smallShare, o.file},
		{domain.SourceWebsite, smallShare, o.site},
		{domain.SourceWebsitePage, smallShare, o.page},
		{domain.SourceDocument, limit * chunkShareFactor, o.vector},
	}

	slots := make([][]domain.SearchResult, len(branches))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range branches {
		i, b := i, b
		g.Go(func() error {
			slots[i] = o.runBranch(gctx, b, query, opts)
			return nil
		})
	}
	// Branches never return errors, so Wait is a pure join point.
	_ = g.Wait()

	var all []domain.SearchResult
	for _, slot := range slots {
		all = append(all, slot...)
	}
	sortByScoreDesc(all)
	return truncate(all, limit), nil
}

// HybridSearch fuses the semantic and lexical chunk rankings instead of
// concatenating sources. Callers use it when agreement between the two
// signals matters more than breadth.
func (o *Orchestrator) HybridSearch(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if err := validate(query, opts); err != nil {
		return nil, err
	}
	limit := o.clampLimit(opts.Limit)

	candOpts := opts
	candOpts.Limit = limit * chunkShareFactor

	var vres, tres []domain.SearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := o.vector.SearchSimilar(gctx, query, candOpts)
		if err != nil {
			o.logger.Warn("Hybrid vector branch failed", zap.Error(err))
			metrics.SearchRequestsTotal.WithLabelValues(string(domain.SourceDocument), "error").Inc()
			return nil
		}
		vres = res
		return nil
	})
	g.Go(func() error {
		res, err := o.text.Search(gctx, query, candOpts)
		if err != nil {
			o.logger.Warn("Hybrid text branch failed", zap.Error(err))
			metrics.SearchRequestsTotal.WithLabelValues(string(domain.SourceDocument), "error").Inc()
			return nil
		}
		tres = res
		return nil
	})
	_ = g.Wait()

	return fuseWeighted(vres, tres, limit), nil
}

// runBranch executes one searcher with its share of the limit, absorbing
// failure into an empty contribution.
func (o *Orchestrator) runBranch(
	ctx context.Context, b branch, query string, opts domain.SearchOptions,
) []domain.SearchResult {
	start := time.Now()
	branchOpts := opts
	branchOpts.Limit = b.limit

	results, err := b.searcher.Search(ctx, query, branchOpts)
	metrics.SearchDuration.WithLabelValues(string(b.source)).Observe(time.Since(start).Seconds())
	if err != nil {
		o.logger.Warn("Source searcher failed",
			zap.String("source", string(b.source)), zap.Error(err))
		metrics.SearchRequestsTotal.WithLabelValues(string(b.source), "error").Inc()
		return nil
	}
	metrics.SearchRequestsTotal.WithLabelValues(string(b.source), "ok").Inc()
	return results
}

func (o *Orchestrator) clampLimit(limit int) int {
	if limit <= 0 {
		return o.defaultLimit
	}
	if o.maxLimit > 0 && limit > o.maxLimit {
		return o.maxLimit
	}
	return limit
}
