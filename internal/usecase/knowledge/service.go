// Package knowledge manages the knowledge base: adding, removing, and
// listing documents, with automatic vectorization at write time.
package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knowbase-io/knowbase/internal/domain"
)

// Service handles knowledge base document operations.
type Service struct {
	repo     Repository
	embedder Embedder
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// New creates a knowledge service.
func New(repo Repository, embedder Embedder, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// AddDocument validates, vectorizes, and stores a document. Returns the
// stored document with its generated ID.
func (s *Service) AddDocument(
	ctx context.Context, content string, meta domain.Metadata,
) (domain.Document, error) {
	content = strings.TrimSpace(content)
	if err := validateContent(content); err != nil {
		return domain.Document{}, err
	}

	result, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return domain.Document{}, fmt.Errorf("vectorize document: %w", err)
	}

	doc := domain.Document{
		ID:        s.newID(),
		Content:   content,
		Embedding: result.Embedding,
		Metadata:  applyDefaults(meta, s.now()),
		CreatedAt: s.now(),
	}

	if err := s.repo.Insert(ctx, doc); err != nil {
		return domain.Document{}, fmt.Errorf("insert document: %w", err)
	}

	s.logger.Info("document added",
		zap.String("id", doc.ID),
		zap.String("source", doc.Metadata.Source),
		zap.Int("content_chars", len(content)),
		zap.Int("tokens", result.TotalTokens),
	)

	return doc, nil
}

// Result reports the outcome of one item in a batch add.
type Result struct {
	ID  string
	Err error
}

// AddDocuments validates and stores several documents, vectorizing their
// contents in a single batch request when the embedder supports it.
// Results are positional: results[i] belongs to contents[i].
func (s *Service) AddDocuments(
	ctx context.Context, contents []string, meta domain.Metadata,
) []Result {
	results := make([]Result, len(contents))

	valid := make([]int, 0, len(contents))
	trimmed := make([]string, 0, len(contents))
	for i, c := range contents {
		c = strings.TrimSpace(c)
		if err := validateContent(c); err != nil {
			results[i] = Result{Err: err}
			continue
		}
		valid = append(valid, i)
		trimmed = append(trimmed, c)
	}
	if len(valid) == 0 {
		return results
	}

	embeddings, err := s.embedAll(ctx, trimmed)
	if err != nil {
		for _, i := range valid {
			results[i] = Result{Err: fmt.Errorf("vectorize batch: %w", err)}
		}
		return results
	}

	for j, i := range valid {
		doc := domain.Document{
			ID:        s.newID(),
			Content:   trimmed[j],
			Embedding: embeddings[j],
			Metadata:  applyDefaults(meta, s.now()),
			CreatedAt: s.now(),
		}
		if err := s.repo.Insert(ctx, doc); err != nil {
			results[i] = Result{Err: fmt.Errorf("insert document: %w", err)}
			continue
		}
		results[i] = Result{ID: doc.ID}
	}

	return results
}

// DeleteDocument removes a document by id.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("document id is required: %w", domain.ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.logger.Info("document deleted", zap.String("id", id))
	return nil
}

// SearchByMetadata lists documents matching an exact metadata filter.
func (s *Service) SearchByMetadata(
	ctx context.Context, f domain.MetadataFilter,
) ([]domain.Document, error) {
	docs, err := s.repo.SearchByMetadata(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("search by metadata: %w", err)
	}
	return docs, nil
}

// embedAll uses one batch request when available, falling back to
// per-item embedding otherwise.
func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if batch, ok := s.embedder.(BatchEmbedder); ok {
		result, err := batch.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, err
		}
		return result.Embeddings, nil
	}

	embeddings := make([][]float32, len(texts))
	for i, t := range texts {
		result, err := s.embedder.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		embeddings[i] = result.Embedding
	}
	return embeddings, nil
}

func validateContent(content string) error {
	if len(content) < domain.MinContentChars {
		return fmt.Errorf(
			"content too short: %d chars, minimum %d: %w",
			len(content), domain.MinContentChars, domain.ErrValidation,
		)
	}
	if len(content) > domain.MaxContentChars {
		return fmt.Errorf(
			"content too long: %d chars, maximum %d: %w",
			len(content), domain.MaxContentChars, domain.ErrValidation,
		)
	}
	return nil
}

// applyDefaults fills the metadata fields every stored document carries.
func applyDefaults(meta domain.Metadata, now time.Time) domain.Metadata {
	if meta.Type == "" {
		meta.Type = "document"
	}
	if meta.Status == "" {
		meta.Status = "active"
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = now
	}
	return meta
}
