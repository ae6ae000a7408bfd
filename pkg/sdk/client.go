// Package knowbase is the embedded SDK: the full retrieval and question
// answering pipeline wired over a store, without running the HTTP server.
package knowbase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/knowbase-io/knowbase/internal/activity"
	"github.com/knowbase-io/knowbase/internal/domain"
	"github.com/knowbase-io/knowbase/internal/ratelimit"
	storeMemory "github.com/knowbase-io/knowbase/internal/store/memory"
	storeRedis "github.com/knowbase-io/knowbase/internal/store/redis"
	ingestuc "github.com/knowbase-io/knowbase/internal/usecase/ingest"
	knowledgeuc "github.com/knowbase-io/knowbase/internal/usecase/knowledge"
	queryuc "github.com/knowbase-io/knowbase/internal/usecase/query"
	retrievaluc "github.com/knowbase-io/knowbase/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// docStore is the storage surface the pipeline services need.
type docStore interface {
	EnsureIndex(ctx context.Context) error
	Insert(ctx context.Context, doc domain.Document) error
	Delete(ctx context.Context, id string) error
	SearchKNN(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.Document, error)
	SearchByMetadata(ctx context.Context, f domain.MetadataFilter) ([]domain.Document, error)
	Append(ctx context.Context, stream string, fields map[string]string) error
}

// Client is the knowbase SDK entry point.
type Client struct {
	store     docStore
	knowledge *knowledgeuc.Service
	retrieval *retrievaluc.Service
	query     *queryuc.Service
	ingest    *ingestuc.Service
}

// New creates a Client and prepares the vector index.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:    "memory",
		vectorDim: domain.DefaultVectorDim,
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, errors.New("knowbase: embedder required (use WithEmbedder)")
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.EnsureIndex(ctx); err != nil {
		closeStore(store)
		return nil, fmt.Errorf("knowbase: ensure index: %w", err)
	}

	return wireClient(store, cfg), nil
}

func createStore(ctx context.Context, cfg *clientConfig) (docStore, error) {
	switch cfg.driver {
	case "memory":
		return storeMemory.NewStore(), nil
	case "redis":
		s, err := storeRedis.NewStore(storeRedis.Config{
			Addrs:     cfg.addrs,
			Password:  cfg.password,
			KeyPrefix: cfg.keyPrefix,
			VectorDim: cfg.vectorDim,
		})
		if err != nil {
			return nil, fmt.Errorf("knowbase: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("knowbase: store not ready: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("knowbase: unknown driver %q", cfg.driver)
	}
}

func wireClient(store docStore, cfg *clientConfig) *Client {
	// Zero-vector fallback, same as the server wiring: a failing provider
	// degrades writes and retrieval instead of failing them.
	embedder := domain.NewFallbackEmbedder(
		&embedderAdapter{inner: cfg.embedder}, cfg.vectorDim, cfg.logger)

	var generator queryuc.Generator = noopGenerator{}
	if cfg.generator != nil {
		generator = cfg.generator
	}

	recorder := activity.NewRecorder(store, cfg.logger)

	window := ratelimit.DefaultWindow
	if cfg.rateWindowMs > 0 {
		window = time.Duration(cfg.rateWindowMs) * time.Millisecond
	}
	maxRequests := ratelimit.DefaultMax
	if cfg.rateMaxRequests > 0 {
		maxRequests = cfg.rateMaxRequests
	}
	limiter := ratelimit.New(window, maxRequests)

	retrieval := retrievaluc.New(store, embedder, cfg.logger).
		WithParams(cfg.similarityThreshold, cfg.maxDocuments, cfg.maxContextChars)
	knowledge := knowledgeuc.New(store, embedder, cfg.logger)
	query := queryuc.New(limiter, retrieval, generator, recorder, cfg.logger).
		WithThresholds(cfg.minConfidence, cfg.trailerConfidence)
	ingest := ingestuc.New(knowledge, ingestuc.TextExtractor{}, recorder, cfg.adminIDs, cfg.logger)

	return &Client{
		store:     store,
		knowledge: knowledge,
		retrieval: retrieval,
		query:     query,
		ingest:    ingest,
	}
}

// Close releases storage resources.
func (c *Client) Close() {
	closeStore(c.store)
}

func closeStore(store docStore) {
	if closer, ok := store.(interface{ Close() }); ok {
		closer.Close()
	}
}

// AddDocument vectorizes and stores a document, returning its generated ID.
func (c *Client) AddDocument(ctx context.Context, content string, meta Metadata) (string, error) {
	doc, err := c.knowledge.AddDocument(ctx, content, metaToDomain(meta))
	if err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}
	return doc.ID, nil
}

// DeleteDocument removes a document by ID.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if err := c.knowledge.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// ListDocuments returns documents matching an exact metadata filter.
func (c *Client) ListDocuments(ctx context.Context, f Filter) ([]Document, error) {
	docs, err := c.knowledge.SearchByMetadata(ctx, domain.MetadataFilter{
		Source:     f.Source,
		Type:       f.Type,
		Status:     f.Status,
		UploadedBy: f.UploadedBy,
		FileType:   f.FileType,
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = docFromDomain(d)
	}
	return out, nil
}

// RetrieveContext runs the retrieval stage alone.
func (c *Client) RetrieveContext(ctx context.Context, query string) (RetrievalResult, error) {
	result, err := c.retrieval.RetrieveContext(ctx, query)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("retrieve context: %w", err)
	}

	docs := make([]Document, len(result.Documents))
	for i, d := range result.Documents {
		docs[i] = docFromDomain(d)
	}
	return RetrievalResult{
		Documents:  docs,
		Context:    result.Context,
		Confidence: result.Confidence,
	}, nil
}

// Query runs the full question answering pipeline for an identity.
func (c *Client) Query(ctx context.Context, identity, query string) (QueryResult, error) {
	resp, err := c.query.HandleQuery(ctx, identity, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query: %w", err)
	}
	return QueryResult{
		Answer:     resp.Answer,
		Confidence: resp.Confidence,
		Sources:    resp.Sources,
		Outcome:    resp.Outcome,
		Duration:   resp.Duration,
	}, nil
}

// Upload ingests a file for an identity.
func (c *Client) Upload(ctx context.Context, identity string, file FileUpload) UploadResult {
	resp := c.ingest.HandleUpload(ctx, identity, domain.FileUpload{
		Name: file.Name,
		Size: file.Size,
		Text: file.Text,
	})
	return UploadResult{
		Message:  resp.Message,
		Accepted: resp.Accepted,
		DocID:    resp.DocID,
	}
}

// embedderAdapter wraps the public Embedder to satisfy the internal contract.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopGenerator fails Query when no generator is configured.
type noopGenerator struct{}

func (noopGenerator) Generate(context.Context, string) (string, error) {
	return "", errors.New("knowbase: generator not configured (use WithGenerator for Query)")
}

func metaToDomain(m Metadata) domain.Metadata {
	return domain.Metadata{
		Source:     m.Source,
		Verified:   m.Verified,
		Timestamp:  m.Timestamp,
		Type:       m.Type,
		Status:     m.Status,
		UploadedBy: m.UploadedBy,
		FileType:   m.FileType,
	}
}

func docFromDomain(d domain.Document) Document {
	return Document{
		ID:      d.ID,
		Content: d.Content,
		Metadata: Metadata{
			Source:     d.Metadata.Source,
			Verified:   d.Metadata.Verified,
			Timestamp:  d.Metadata.Timestamp,
			Type:       d.Metadata.Type,
			Status:     d.Metadata.Status,
			UploadedBy: d.Metadata.UploadedBy,
			FileType:   d.Metadata.FileType,
		},
		CreatedAt:  d.CreatedAt,
		Similarity: d.Similarity,
	}
}
