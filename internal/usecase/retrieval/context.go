package retrieval

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/knowbase-io/knowbase/internal/domain"
)

const (
	// blockSeparator joins rendered blocks; it is not charged to the budget.
	blockSeparator = "\n\n"
	// blockDelimiter ends every rendered block.
	blockDelimiter = "---"
	// minTruncatedChars is the smallest partial block worth including.
	minTruncatedChars = 100
	truncationMark    = "..."
)

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// renderBlock formats one document for the prompt context: source label,
// relevance to two decimals, cleaned content, delimiter line.
func renderBlock(doc domain.Document) string {
	return fmt.Sprintf("Source: %s\nRelevance: %.2f\nContent: %s\n%s",
		doc.Metadata.SourceLabel(), doc.Similarity, cleanContent(doc.Content), blockDelimiter)
}

// assembleContext packs rendered document blocks into a single context
// string, preserving rank order. Block lengths are charged against maxChars.
// A block that does not fit whole is truncated with a "..." mark, but only
// when at least 100 characters of budget remain; otherwise packing stops.
func assembleContext(docs []domain.Document, maxChars int) string {
	var parts []string
	used := 0

	for _, doc := range docs {
		if used >= maxChars {
			break
		}

		block := renderBlock(doc)
		if used+len(block) <= maxChars {
			parts = append(parts, block)
			used += len(block)
			continue
		}

		if remaining := maxChars - used; remaining >= minTruncatedChars {
			parts = append(parts, block[:remaining-len(truncationMark)]+truncationMark)
		}
		break
	}

	return strings.Join(parts, blockSeparator)
}

// cleanContent normalizes whitespace so the prompt stays compact: CRLF to
// LF, runs of spaces and tabs to one space, 3+ blank lines to one.
func cleanContent(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = spaceRuns.ReplaceAllString(s, " ")
	s = newlineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
