package retrieval

import (
	"strings"
	"testing"

	"github.com/knowbase-io/knowbase/internal/domain"
)

func doc(source, content string, similarity float64) domain.Document {
	return domain.Document{
		Content:    content,
		Metadata:   domain.Metadata{Source: source},
		Similarity: similarity,
	}
}

func TestAssembleContext_RendersBlocks(t *testing.T) {
	docs := []domain.Document{
		doc("guide.pdf", "alpha", 0.913),
		doc("", "beta", 0.8),
	}

	got := assembleContext(docs, 4000)
	want := "Source: guide.pdf\nRelevance: 0.91\nContent: alpha\n---" +
		"\n\n" +
		"Source: Unknown\nRelevance: 0.80\nContent: beta\n---"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAssembleContext_BudgetRespected(t *testing.T) {
	docs := []domain.Document{
		doc("s", strings.Repeat("a", 300), 0.9),
		doc("s", strings.Repeat("b", 300), 0.9),
	}

	got := assembleContext(docs, 500)
	if len(got) > 500+len(blockSeparator) {
		t.Fatalf("context exceeds budget: %d chars", len(got))
	}
	if !strings.HasSuffix(got, truncationMark) {
		t.Errorf("truncated context must end with %q, got tail %q",
			truncationMark, got[len(got)-10:])
	}
	if !strings.Contains(got, strings.Repeat("a", 300)) {
		t.Error("first block should fit whole")
	}
}

func TestAssembleContext_SkipsTinyTruncation(t *testing.T) {
	first := doc("s", strings.Repeat("a", 420), 0.9)
	docs := []domain.Document{
		first,
		doc("s", strings.Repeat("b", 300), 0.9),
	}

	// The first block leaves under 100 chars of budget; the second block is
	// dropped rather than truncated that small.
	got := assembleContext(docs, 500)
	if strings.Contains(got, "b") {
		t.Errorf("second block should be dropped entirely, got %d chars", len(got))
	}
	if got != renderBlock(first) {
		t.Errorf("expected just the first block, got %q", got)
	}
}

func TestAssembleContext_Empty(t *testing.T) {
	if got := assembleContext(nil, 4000); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestCleanContent(t *testing.T) {
	in := "line one\t\twith   spaces\r\n\r\n\r\n\r\nline two  "
	got := cleanContent(in)
	want := "line one with spaces\n\nline two"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
