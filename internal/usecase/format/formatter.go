// Package format renders ranked search results into the context string the
// answer-generation backend consumes.
package format

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/grounder/internal/domain"
)

// NoContextSentinel is returned for an empty result set. Callers compare
// against it to detect "nothing found" and switch to a fallback answer; it
// is never a usable context block.
const NoContextSentinel = "Geen relevante informatie gevonden in de kennisbank."

// blockSeparator joins the rendered source blocks.
const blockSeparator = "\n\n---\n\n"

// Context renders results as labeled source blocks in input order. Input is
// already rank-sorted upstream; this function is pure and deterministic.
func Context(results []domain.SearchResult) string {
	if len(results) == 0 {
		return NoContextSentinel
	}

	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = renderBlock(i+1, r)
	}
	return strings.Join(blocks, blockSeparator)
}

func renderBlock(n int, r domain.SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[Source %d - %s]\n", n, strings.ToUpper(string(r.Source)))
	if title := strings.TrimSpace(r.Title); title != "" {
		sb.WriteString(title)
		sb.WriteByte('\n')
	}
	if content := strings.TrimSpace(r.Content); content != "" {
		sb.WriteString(content)
		sb.WriteByte('\n')
	}
	if r.URL != "" {
		fmt.Fprintf(&sb, "URL: %s\n", r.URL)
	}
	fmt.Fprintf(&sb, "Relevance: %.0f%%", r.Score*100)
	return sb.String()
}
