// Package retrieval finds the most relevant knowledge base documents for a
// query and assembles them into a bounded context with a confidence score.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/knowbase-io/knowbase/internal/domain"
)

// Defaults for the retrieval parameters.
const (
	DefaultSimilarityThreshold = 0.7
	DefaultMaxDocuments        = 3
	DefaultMaxContextChars     = 4000
)

// Service retrieves and ranks context for answering queries.
type Service struct {
	searcher  Searcher
	embedder  Embedder
	logger    *zap.Logger
	threshold float64
	maxDocs   int
	maxChars  int
	now       func() time.Time
}

// New creates a retrieval service with default parameters.
func New(searcher Searcher, embedder Embedder, logger *zap.Logger) *Service {
	return &Service{
		searcher:  searcher,
		embedder:  embedder,
		logger:    logger,
		threshold: DefaultSimilarityThreshold,
		maxDocs:   DefaultMaxDocuments,
		maxChars:  DefaultMaxContextChars,
		now:       time.Now,
	}
}

// WithParams overrides the retrieval parameters. Zero values keep defaults.
func (s *Service) WithParams(threshold float64, maxDocs, maxChars int) *Service {
	if threshold > 0 {
		s.threshold = threshold
	}
	if maxDocs > 0 {
		s.maxDocs = maxDocs
	}
	if maxChars > 0 {
		s.maxChars = maxChars
	}
	return s
}

// RetrieveContext embeds the query, searches the knowledge base, reranks
// the hits, and assembles the context. A query whose embedding is the zero
// vector (the embedding fallback) matches nothing and returns an empty
// result rather than an error.
func (s *Service) RetrieveContext(ctx context.Context, query string) (domain.RetrievalResult, error) {
	embResult, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("vectorize query: %w", err)
	}

	if domain.IsZeroVector(embResult.Embedding) {
		s.logger.Warn("query embedding is zero vector, skipping search")
		return domain.RetrievalResult{}, nil
	}

	docs, err := s.searcher.SearchKNN(ctx, embResult.Embedding, s.threshold, s.maxDocs)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("search knn: %w", err)
	}
	if len(docs) == 0 {
		return domain.RetrievalResult{}, nil
	}

	docs = rerank(docs, s.now())

	similarities := make([]float64, len(docs))
	for i, d := range docs {
		similarities[i] = d.Similarity
	}

	result := domain.RetrievalResult{
		Documents:  docs,
		Context:    assembleContext(docs, s.maxChars),
		Confidence: confidence(similarities),
	}

	s.logger.Debug("context retrieved",
		zap.Int("documents", len(docs)),
		zap.Float64("confidence", result.Confidence),
		zap.Int("context_chars", len(result.Context)),
	)

	return result, nil
}
