// Package memory is an in-memory document store using brute-force cosine
// similarity. It backs tests and credential-less local runs (driver: memory).
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/knowbase-io/knowbase/internal/domain"
)

// Store keeps documents in insertion order; similarity ties preserve that
// order via a stable sort.
type Store struct {
	mu   sync.RWMutex
	docs []domain.Document

	streamMu sync.Mutex
	streams  map[string][]map[string]string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{streams: make(map[string][]map[string]string)}
}

// EnsureIndex is a no-op for the in-memory backend.
func (s *Store) EnsureIndex(context.Context) error { return nil }

// Insert appends a whole document row.
func (s *Store) Insert(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.Similarity = 0 // transient, never stored
	s.docs = append(s.docs, doc)
	return nil
}

// Delete removes a document by id, reporting domain.ErrNotFound when absent.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.docs {
		if d.ID == id {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// SearchKNN scores every stored document against the query vector, keeps
// those with similarity strictly greater than threshold, and returns at most
// limit entries sorted descending (stable on insertion order).
func (s *Store) SearchKNN(
	_ context.Context, vector []float32, threshold float64, limit int,
) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]domain.Document, 0, limit)
	for _, d := range s.docs {
		sim := cosineSimilarity(vector, d.Embedding)
		if sim > threshold {
			d.Similarity = sim
			matches = append(matches, d)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// SearchByMetadata returns documents whose recognized metadata fields
// exactly match the filter, in insertion order.
func (s *Store) SearchByMetadata(_ context.Context, f domain.MetadataFilter) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []domain.Document
	for _, d := range s.docs {
		if matchesFilter(d.Metadata, f) {
			matches = append(matches, d)
		}
	}
	return matches, nil
}

// Append records a stream entry (activity/error logs).
func (s *Store) Append(_ context.Context, stream string, fields map[string]string) error {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.streams[stream] = append(s.streams[stream], copied)
	return nil
}

// StreamEntries returns recorded stream entries (test helper).
func (s *Store) StreamEntries(stream string) []map[string]string {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return s.streams[stream]
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func matchesFilter(m domain.Metadata, f domain.MetadataFilter) bool {
	if f.Source != "" && m.Source != f.Source {
		return false
	}
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.UploadedBy != "" && m.UploadedBy != f.UploadedBy {
		return false
	}
	if f.FileType != "" && m.FileType != f.FileType {
		return false
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
