package domain

import (
	"context"

	"go.uber.org/zap"
)

// DefaultVectorDim is the embedding dimension used when the config does not
// override it (text-embedding-ada-002 family).
const DefaultVectorDim = 1536

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call. The result
// preserves input order: one vector per input text, by index.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// EstimateTokens approximates token usage for a text (~4 characters per token).
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// ZeroVector returns an all-zero embedding of the given dimension.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}

// IsZeroVector reports whether every component of v is zero.
func IsZeroVector(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}

// FallbackEmbedder is a decorator that degrades transient provider failures
// into a zero vector of the configured dimension instead of surfacing an
// error. Writes proceed degraded rather than rejected; queries against a
// zero vector retrieve nothing.
type FallbackEmbedder struct {
	inner  Embedder
	dim    int
	logger *zap.Logger
}

// NewFallbackEmbedder creates the zero-vector fallback decorator.
func NewFallbackEmbedder(inner Embedder, dim int, logger *zap.Logger) *FallbackEmbedder {
	if dim <= 0 {
		dim = DefaultVectorDim
	}
	return &FallbackEmbedder{inner: inner, dim: dim, logger: logger}
}

// Embed delegates to the inner embedder, substituting a zero vector on failure.
func (e *FallbackEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, text)
	if err != nil {
		e.logger.Warn("embedding failed, substituting zero vector", zap.Error(err))
		return EmbeddingResult{Embedding: ZeroVector(e.dim)}, nil
	}
	return result, nil
}

// BatchEmbed delegates to the inner embedder, substituting zero vectors on
// failure — one per input text, so index re-association stays intact.
func (e *FallbackEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	be, ok := e.inner.(BatchEmbedder)
	if !ok {
		// No native batch support: embed one by one, each with its own fallback.
		embeddings := make([][]float32, len(texts))
		var prompt, total int
		for i, t := range texts {
			res, _ := e.Embed(ctx, t)
			embeddings[i] = res.Embedding
			prompt += res.PromptTokens
			total += res.TotalTokens
		}
		return BatchEmbeddingResult{Embeddings: embeddings, PromptTokens: prompt, TotalTokens: total}, nil
	}

	result, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		e.logger.Warn("batch embedding failed, substituting zero vectors", zap.Error(err))
		zeros := make([][]float32, len(texts))
		for i := range zeros {
			zeros[i] = ZeroVector(e.dim)
		}
		return BatchEmbeddingResult{Embeddings: zeros}, nil
	}
	return result, nil
}
