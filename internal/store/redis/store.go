// Package redis implements the document store on Redis Stack via rueidis:
// JSON documents indexed by FT.CREATE with an HNSW cosine vector field.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/knowbase-io/knowbase/internal/domain"
)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
	VectorDim int
}

// Store persists documents in Redis Stack.
type Store struct {
	client    rueidis.Client
	keyPrefix string
	vectorDim int
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "knowbase:"
	}
	if cfg.VectorDim <= 0 {
		cfg.VectorDim = domain.DefaultVectorDim
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, keyPrefix: cfg.KeyPrefix, vectorDim: cfg.VectorDim}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// EnsureIndex creates the document search index if it does not exist yet.
// The vector dimension is fixed per deployment; documents with a different
// dimension are never written to the same index.
func (s *Store) EnsureIndex(ctx context.Context) error {
	dim := strconv.Itoa(s.vectorDim)
	args := []string{
		s.indexName(),
		"ON", "JSON",
		"PREFIX", "1", s.docPrefix(),
		"SCHEMA",
		"$.vector", "AS", "vector",
		"VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", dim,
		"DISTANCE_METRIC", "COSINE",
		"M", "16",
		"EF_CONSTRUCTION", "200",
		"$.source", "AS", "source", "TAG",
		"$.verified", "AS", "verified", "TAG",
		"$.type", "AS", "type", "TAG",
		"$.status", "AS", "status", "TAG",
		"$.uploaded_by", "AS", "uploaded_by", "TAG",
		"$.file_type", "AS", "file_type", "TAG",
		"$.timestamp", "AS", "timestamp", "NUMERIC",
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return fmt.Errorf("ft.create %s: %w", s.indexName(), err)
	}
	return nil
}

// Insert writes a document as a whole row. Documents are immutable after
// insertion; there is no partial update path.
func (s *Store) Insert(ctx context.Context, doc domain.Document) error {
	data, err := marshalDoc(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	key := s.docKey(doc.ID)
	cmd := s.b().Arbitrary("JSON.SET").Keys(key).Args("$", string(data)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// Delete removes a document by id, reporting domain.ErrNotFound when absent.
func (s *Store) Delete(ctx context.Context, id string) error {
	key := s.docKey(id)

	existsCmd := s.b().Exists().Key(key).Build()
	n, err := s.do(ctx, existsCmd).AsInt64()
	if err != nil {
		return fmt.Errorf("exists %s: %w", key, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	delCmd := s.b().Del().Key(key).Build()
	if err := s.do(ctx, delCmd).Error(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func (s *Store) indexName() string {
	return s.keyPrefix + "doc:idx"
}

func (s *Store) docPrefix() string {
	return s.keyPrefix + "doc:"
}

func (s *Store) docKey(id string) string {
	return s.docPrefix() + id
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
