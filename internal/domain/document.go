package domain

import "time"

// Content length bounds enforced at ingestion time.
const (
	MinContentChars = 50
	MaxContentChars = 1_000_000
)

// Document is a stored knowledge item. The embedding is computed once at
// write time and never changes; Similarity is transient and set only on
// query results.
type Document struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Metadata   Metadata  `json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`
	Similarity float64   `json:"similarity,omitempty"`
}

// Metadata holds the recognized document metadata fields. Unknown keys
// supplied by callers pass through opaquely in Extra.
type Metadata struct {
	Source       string            `json:"source,omitempty"`
	Verified     bool              `json:"verified,omitempty"`
	Timestamp    time.Time         `json:"timestamp,omitempty"`
	Type         string            `json:"type,omitempty"`
	Status       string            `json:"status,omitempty"`
	UploadedBy   string            `json:"uploaded_by,omitempty"`
	UploadedAt   time.Time         `json:"uploaded_at,omitempty"`
	FileType     string            `json:"file_type,omitempty"`
	OriginalSize int64             `json:"original_size,omitempty"`
	Chunks       float64           `json:"chunks,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// SourceLabel returns the source for display, "Unknown" when absent.
func (m Metadata) SourceLabel() string {
	if m.Source == "" {
		return "Unknown"
	}
	return m.Source
}

// MetadataFilter is an exact-match filter over recognized metadata fields.
// Empty fields are not matched against.
type MetadataFilter struct {
	Source     string
	Type       string
	Status     string
	UploadedBy string
	FileType   string
}

// IsEmpty reports whether the filter has no conditions.
func (f MetadataFilter) IsEmpty() bool {
	return f == MetadataFilter{}
}

// RetrievalResult is the outcome of the retrieval and ranking pipeline:
// reranked documents, the assembled bounded context, and a confidence
// scalar in [0,1].
type RetrievalResult struct {
	Documents  []Document `json:"documents"`
	Context    string     `json:"context"`
	Confidence float64    `json:"confidence"`
}

// FileUpload describes an uploaded file before its content is accepted.
// Size and Name are declared by the caller and validated before any
// extraction work. Text carries pre-converted content for front-ends that
// extract upstream.
type FileUpload struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Text string `json:"text,omitempty"`
}
