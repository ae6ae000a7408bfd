package redis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/knowbase-io/knowbase/internal/domain"
)

// jsonDoc is the flat persisted shape. Recognized metadata fields live at the
// top level so the FT index can reach them; verified is a "true"/"false" tag.
type jsonDoc struct {
	Content      string            `json:"content"`
	Vector       []float32         `json:"vector"`
	Source       string            `json:"source,omitempty"`
	Verified     string            `json:"verified,omitempty"`
	Timestamp    int64             `json:"timestamp,omitempty"` // unix seconds
	Type         string            `json:"type,omitempty"`
	Status       string            `json:"status,omitempty"`
	UploadedBy   string            `json:"uploaded_by,omitempty"`
	UploadedAt   string            `json:"uploaded_at,omitempty"` // RFC 3339
	FileType     string            `json:"file_type,omitempty"`
	OriginalSize int64             `json:"original_size,omitempty"`
	Chunks       float64           `json:"chunks,omitempty"`
	CreatedAt    string            `json:"created_at,omitempty"` // RFC 3339
	Extra        map[string]string `json:"extra,omitempty"`
}

func marshalDoc(doc domain.Document) ([]byte, error) {
	m := doc.Metadata
	jd := jsonDoc{
		Content:      doc.Content,
		Vector:       doc.Embedding,
		Source:       m.Source,
		Type:         m.Type,
		Status:       m.Status,
		UploadedBy:   m.UploadedBy,
		FileType:     m.FileType,
		OriginalSize: m.OriginalSize,
		Chunks:       m.Chunks,
		Extra:        m.Extra,
	}
	if m.Verified {
		jd.Verified = "true"
	}
	if !m.Timestamp.IsZero() {
		jd.Timestamp = m.Timestamp.Unix()
	}
	if !m.UploadedAt.IsZero() {
		jd.UploadedAt = m.UploadedAt.UTC().Format(time.RFC3339)
	}
	if !doc.CreatedAt.IsZero() {
		jd.CreatedAt = doc.CreatedAt.UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(jd)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return data, nil
}

// parseDoc hydrates a domain document from its persisted JSON.
func parseDoc(id string, raw []byte) (domain.Document, error) {
	var jd jsonDoc
	if err := json.Unmarshal(raw, &jd); err != nil {
		return domain.Document{}, fmt.Errorf("unmarshal document %s: %w", id, err)
	}

	doc := domain.Document{
		ID:        id,
		Content:   jd.Content,
		Embedding: jd.Vector,
		Metadata: domain.Metadata{
			Source:       jd.Source,
			Verified:     jd.Verified == "true",
			Type:         jd.Type,
			Status:       jd.Status,
			UploadedBy:   jd.UploadedBy,
			FileType:     jd.FileType,
			OriginalSize: jd.OriginalSize,
			Chunks:       jd.Chunks,
			Extra:        jd.Extra,
		},
	}
	if jd.Timestamp != 0 {
		doc.Metadata.Timestamp = time.Unix(jd.Timestamp, 0).UTC()
	}
	if jd.UploadedAt != "" {
		if ts, err := time.Parse(time.RFC3339, jd.UploadedAt); err == nil {
			doc.Metadata.UploadedAt = ts
		}
	}
	if jd.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, jd.CreatedAt); err == nil {
			doc.CreatedAt = ts
		}
	}
	return doc, nil
}
