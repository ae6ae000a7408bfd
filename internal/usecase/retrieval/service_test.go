package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/knowbase-io/knowbase/internal/domain"
)

// --- Mocks ---

type mockSearcher struct {
	docs      []domain.Document
	err       error
	gotVector []float32
	gotThresh float64
	gotLimit  int
	calls     int
}

func (m *mockSearcher) SearchKNN(
	_ context.Context, vector []float32, threshold float64, limit int,
) ([]domain.Document, error) {
	m.calls++
	m.gotVector = vector
	m.gotThresh = threshold
	m.gotLimit = limit
	return m.docs, m.err
}

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return m.result, nil
}

// --- RetrieveContext ---

func TestRetrieveContext_Success(t *testing.T) {
	searcher := &mockSearcher{docs: []domain.Document{
		{ID: "a", Content: "alpha content", Similarity: 0.9},
		{ID: "b", Content: "beta content", Similarity: 0.8},
	}}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}}

	svc := New(searcher, embed, zap.NewNop())

	result, err := svc.RetrieveContext(context.Background(), "what is alpha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if searcher.gotThresh != DefaultSimilarityThreshold {
		t.Errorf("threshold = %f, want %f", searcher.gotThresh, DefaultSimilarityThreshold)
	}
	if searcher.gotLimit != DefaultMaxDocuments {
		t.Errorf("limit = %d, want %d", searcher.gotLimit, DefaultMaxDocuments)
	}
	if len(result.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(result.Documents))
	}
	if result.Context == "" {
		t.Error("expected assembled context")
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Errorf("confidence out of range: %f", result.Confidence)
	}
}

func TestRetrieveContext_ZeroVectorShortCircuits(t *testing.T) {
	searcher := &mockSearcher{}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: make([]float32, 8)}}

	svc := New(searcher, embed, zap.NewNop())

	result, err := svc.RetrieveContext(context.Background(), "anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if searcher.calls != 0 {
		t.Error("search must be skipped for a zero query vector")
	}
	if result.Confidence != 0 || len(result.Documents) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestRetrieveContext_NoMatches(t *testing.T) {
	searcher := &mockSearcher{}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}

	svc := New(searcher, embed, zap.NewNop())

	result, err := svc.RetrieveContext(context.Background(), "unknown topic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 0 || result.Context != "" {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestRetrieveContext_EmbedError(t *testing.T) {
	svc := New(&mockSearcher{}, &mockEmbedder{err: domain.ErrEmbeddingProviderError}, zap.NewNop())

	_, err := svc.RetrieveContext(context.Background(), "query")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected embedding error, got %v", err)
	}
}

func TestRetrieveContext_SearchError(t *testing.T) {
	searcher := &mockSearcher{err: errors.New("index offline")}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}

	svc := New(searcher, embed, zap.NewNop())

	_, err := svc.RetrieveContext(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRetrieveContext_RerankReordersResults(t *testing.T) {
	// Server order by raw similarity puts "plain" first; the verified boost
	// must flip the order.
	searcher := &mockSearcher{docs: []domain.Document{
		{ID: "plain", Content: "plain doc content here", Similarity: 0.80},
		{ID: "verified", Content: "verified doc content here", Similarity: 0.75,
			Metadata: domain.Metadata{Verified: true}},
	}}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}

	svc := New(searcher, embed, zap.NewNop())

	result, err := svc.RetrieveContext(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Documents[0].ID != "verified" {
		t.Errorf("expected verified doc first, got %s", result.Documents[0].ID)
	}
	// Context follows the reranked order.
	vi := strings.Index(result.Context, "verified doc content")
	pi := strings.Index(result.Context, "plain doc content")
	if vi < 0 || pi < 0 || vi > pi {
		t.Errorf("context should list the verified doc first, got %q", result.Context)
	}
}

func TestWithParams(t *testing.T) {
	searcher := &mockSearcher{}
	embed := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}

	svc := New(searcher, embed, zap.NewNop()).WithParams(0.5, 10, 2000)

	if _, err := svc.RetrieveContext(context.Background(), "query"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if searcher.gotThresh != 0.5 || searcher.gotLimit != 10 {
		t.Errorf("params not applied: threshold=%f limit=%d", searcher.gotThresh, searcher.gotLimit)
	}
}
