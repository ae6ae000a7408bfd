package knowledge

import (
	"context"

	"github.com/knowbase-io/knowbase/internal/domain"
)

// Repository defines the storage contract for knowledge base documents.
type Repository interface {
	Insert(ctx context.Context, doc domain.Document) error
	Delete(ctx context.Context, id string) error
	SearchByMetadata(ctx context.Context, f domain.MetadataFilter) ([]domain.Document, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// BatchEmbedder vectorizes several texts in one request.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
