package retrieval

import (
	"context"

	"github.com/knowbase-io/knowbase/internal/domain"
)

// Searcher runs vector similarity search over stored documents.
type Searcher interface {
	SearchKNN(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.Document, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
