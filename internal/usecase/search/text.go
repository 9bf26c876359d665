package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/grounder/internal/domain"
	"github.com/kailas-cloud/grounder/internal/normalize"
)

// headingWindow is how far after a "##" heading marker a keyword still
// counts as heading-proximate.
const headingWindow = 50

// overFetchFactor pads the candidate pool before scoring, so a coarse
// OR-of-keywords filter does not starve the post-scoring top-N.
const overFetchFactor = 5

// TextChunkSearcher scores document chunks by keyword overlap. It is both a
// standalone source and the fallback target of the vector searcher.
type TextChunkSearcher struct {
	docs   DocumentReader
	chunks ChunkReader
	files  KnowledgeFileReader
}

// NewTextChunkSearcher creates a keyword chunk searcher.
func NewTextChunkSearcher(docs DocumentReader, chunks ChunkReader, files KnowledgeFileReader) *TextChunkSearcher {
	return &TextChunkSearcher{docs: docs, chunks: chunks, files: files}
}

var _ Searcher = (*TextChunkSearcher)(nil)

// Search returns chunks containing at least one query keyword, scored by
// overlap fraction plus structural boosts.
func (s *TextChunkSearcher) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	keywords := normalize.Keywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	docs, err := tenantDocuments(ctx, s.docs, s.files, opts.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant scope: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	phrase := stripPunctuation(strings.ToLower(strings.TrimSpace(query)))
	maxCandidates := opts.Limit * overFetchFactor

	type candidate struct {
		chunk domain.ContentChunk
		doc   domain.Document
	}
	var candidates []candidate

collect:
	for _, doc := range docs {
		chunks, err := s.chunks.ListChunksByDocument(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("list chunks of %s: %w", doc.ID, err)
		}
		for _, c := range chunks {
			if !containsAnyKeyword(strings.ToLower(c.Content), keywords) {
				continue
			}
			candidates = append(candidates, candidate{chunk: c, doc: doc})
			if maxCandidates > 0 && len(candidates) >= maxCandidates {
				break collect
			}
		}
	}

	results := make([]domain.SearchResult, 0, len(candidates))
	for _, cand := range candidates {
		score := scoreChunk(cand.chunk.Content, keywords, phrase)
		results = append(results, domain.SearchResult{
			ID:       cand.chunk.ID,
			Source:   domain.SourceDocument,
			Title:    cand.doc.Name,
			Content:  cand.chunk.Content,
			Score:    score,
			TenantID: cand.doc.TenantID,
			Metadata: map[string]string{"document_id": cand.doc.ID},
		})
	}

	sortByScoreDesc(results)
	return truncate(results, opts.Limit), nil
}

// scoreChunk computes the keyword-overlap score with its boosts, clamped to 1.
func scoreChunk(content string, keywords []string, phrase string) float64 {
	low := strings.ToLower(content)

	matched := 0
	for _, kw := range keywords {
		if strings.Contains(low, kw) {
			matched++
		}
	}
	score := float64(matched) / float64(len(keywords))

	if matched == len(keywords) {
		score *= 1.5
	}
	if phrase != "" && strings.Contains(low, phrase) {
		score += 0.3
	}
	if anyKeywordNearHeading(low, keywords) {
		score += 0.4
	}
	if anyKeywordStartsLine(low, keywords) {
		score += 0.15
	}
	return domain.ClampScore(score)
}

func containsAnyKeyword(lowContent string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowContent, kw) {
			return true
		}
	}
	return false
}

// anyKeywordNearHeading reports whether a keyword appears within the window
// right after a Markdown "##" marker. Heading proximity is a strong signal
// in structured documents.
func anyKeywordNearHeading(lowContent string, keywords []string) bool {
	for pos := 0; ; {
		idx := strings.Index(lowContent[pos:], "##")
		if idx < 0 {
			return false
		}
		start := pos + idx + 2
		end := start + headingWindow
		if end > len(lowContent) {
			end = len(lowContent)
		}
		window := lowContent[start:end]
		for _, kw := range keywords {
			if strings.Contains(window, kw) {
				return true
			}
		}
		pos = start
	}
}

func anyKeywordStartsLine(lowContent string, keywords []string) bool {
	for _, line := range strings.Split(lowContent, "\n") {
		trimmed := strings.TrimSpace(line)
		for _, kw := range keywords {
			if strings.HasPrefix(trimmed, kw) {
				return true
			}
		}
	}
	return false
}

// stripPunctuation removes everything except letters, digits and spaces,
// collapsing runs of spaces, for verbatim-phrase matching.
func stripPunctuation(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t':
			if !lastSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				lastSpace = true
			}
		case isWordRune(r):
			sb.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 'à' && r <= 'ÿ'
}
