package redis

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/knowbase-io/knowbase/internal/domain"
)

func TestMarshalParseDoc_RoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := domain.Document{
		ID:        "doc-1",
		Content:   "release notes for the ingestion service",
		Embedding: []float32{0.25, -0.5, 1},
		Metadata: domain.Metadata{
			Source:       "handbook.pdf",
			Verified:     true,
			Timestamp:    time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			Type:         "document",
			Status:       "active",
			UploadedBy:   "admin-1",
			UploadedAt:   created,
			FileType:     "pdf",
			OriginalSize: 2048,
			Chunks:       1.5,
			Extra:        map[string]string{"team": "platform"},
		},
		CreatedAt: created,
	}

	data, err := marshalDoc(doc)
	if err != nil {
		t.Fatalf("marshalDoc: %v", err)
	}

	got, err := parseDoc("doc-1", data)
	if err != nil {
		t.Fatalf("parseDoc: %v", err)
	}

	if got.ID != doc.ID || got.Content != doc.Content {
		t.Errorf("identity fields mismatch: %+v", got)
	}
	if len(got.Embedding) != 3 || got.Embedding[2] != 1 {
		t.Errorf("embedding mismatch: %v", got.Embedding)
	}
	if !got.Metadata.Verified {
		t.Error("verified flag lost")
	}
	if !got.Metadata.Timestamp.Equal(doc.Metadata.Timestamp) {
		t.Errorf("timestamp mismatch: %v", got.Metadata.Timestamp)
	}
	if !got.Metadata.UploadedAt.Equal(created) {
		t.Errorf("uploaded_at mismatch: %v", got.Metadata.UploadedAt)
	}
	if got.Metadata.OriginalSize != 2048 {
		t.Errorf("original_size mismatch: %d", got.Metadata.OriginalSize)
	}
	if got.Metadata.Extra["team"] != "platform" {
		t.Errorf("extra passthrough lost: %v", got.Metadata.Extra)
	}
	if got.Similarity != 0 {
		t.Errorf("similarity must not be persisted, got %f", got.Similarity)
	}
}

func TestMarshalDoc_UnverifiedOmitsTag(t *testing.T) {
	data, err := marshalDoc(domain.Document{ID: "x", Content: "c"})
	if err != nil {
		t.Fatalf("marshalDoc: %v", err)
	}
	got, err := parseDoc("x", data)
	if err != nil {
		t.Fatalf("parseDoc: %v", err)
	}
	if got.Metadata.Verified {
		t.Error("verified should default to false")
	}
	if !got.Metadata.Timestamp.IsZero() {
		t.Errorf("timestamp should stay zero, got %v", got.Metadata.Timestamp)
	}
}

func TestBuildMetadataQuery(t *testing.T) {
	tests := []struct {
		name   string
		filter domain.MetadataFilter
		want   string
	}{
		{"empty", domain.MetadataFilter{}, "*"},
		{"single", domain.MetadataFilter{Status: "active"}, "@status:{active}"},
		{
			"multiple",
			domain.MetadataFilter{Source: "guide.txt", Type: "document"},
			"@source:{guide\\.txt} @type:{document}",
		},
		{
			"escaping",
			domain.MetadataFilter{Source: "q3 report.pdf"},
			"@source:{q3\\ report\\.pdf}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildMetadataQuery(tt.filter); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVectorToBytes(t *testing.T) {
	v := []float32{1.5, -2.25}
	raw := []byte(vectorToBytes(v))

	if len(raw) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(raw))
	}
	first := math.Float32frombits(binary.LittleEndian.Uint32(raw[0:4]))
	second := math.Float32frombits(binary.LittleEndian.Uint32(raw[4:8]))
	if first != 1.5 || second != -2.25 {
		t.Errorf("round trip mismatch: %f %f", first, second)
	}
}
