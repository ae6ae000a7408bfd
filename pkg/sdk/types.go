package knowbase

import (
	"context"
	"time"
)

// Document is a knowledge base entry.
type Document struct {
	ID         string
	Content    string
	Metadata   Metadata
	CreatedAt  time.Time
	Similarity float64
}

// Metadata holds the recognized document metadata fields.
type Metadata struct {
	Source     string
	Verified   bool
	Timestamp  time.Time
	Type       string
	Status     string
	UploadedBy string
	FileType   string
}

// Filter selects documents by exact metadata match. Empty fields match all.
type Filter struct {
	Source     string
	Type       string
	Status     string
	UploadedBy string
	FileType   string
}

// RetrievalResult is the outcome of context retrieval.
type RetrievalResult struct {
	Documents  []Document
	Context    string
	Confidence float64
}

// QueryResult is the outcome of a full question answering run.
type QueryResult struct {
	Answer     string
	Confidence float64
	Sources    []string
	Outcome    string
	Duration   time.Duration
}

// FileUpload describes a file submitted for ingestion.
type FileUpload struct {
	Name string
	Size int64
	Text string
}

// UploadResult is the outcome of an ingestion attempt.
type UploadResult struct {
	Message  string
	Accepted bool
	DocID    string
}

// EmbeddingResult carries an embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text. Implementations wrap whatever provider the
// application uses.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// Generator produces an answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
