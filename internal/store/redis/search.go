package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/knowbase-io/knowbase/internal/domain"
)

// maxMetadataResults bounds unranked metadata searches.
const maxMetadataResults = 100

// SearchKNN runs a KNN vector similarity search via FT.SEARCH. Results carry
// similarity = 1 − cosine distance (clamped at 0), keep only entries with
// similarity strictly greater than threshold, and are ordered by similarity
// descending (server order).
func (s *Store) SearchKNN(
	ctx context.Context, vector []float32, threshold float64, limit int,
) ([]domain.Document, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @vector $BLOB]", limit)
	args := []string{
		s.indexName(), queryStr,
		"RETURN", "2", "$", "__vector_score",
		"SORTBY", "__vector_score",
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("ft.search knn: %w", err)
	}

	docs, err := s.parseSearchResult(raw, true)
	if err != nil {
		return nil, err
	}

	kept := docs[:0]
	for _, d := range docs {
		if d.Similarity > threshold {
			kept = append(kept, d)
		}
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, nil
}

// SearchByMetadata runs an exact-match tag filter over recognized metadata
// fields, without ranking.
func (s *Store) SearchByMetadata(ctx context.Context, f domain.MetadataFilter) ([]domain.Document, error) {
	queryStr := buildMetadataQuery(f)

	args := []string{
		s.indexName(), queryStr,
		"RETURN", "1", "$",
		"LIMIT", "0", strconv.Itoa(maxMetadataResults),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("ft.search metadata: %w", err)
	}

	return s.parseSearchResult(raw, false)
}

// Append adds a record to a stream (activity/error logs), best-effort at the caller.
func (s *Store) Append(ctx context.Context, stream string, fields map[string]string) error {
	cmd := s.b().Arbitrary("XADD").Keys(s.keyPrefix + stream).Args(xaddArgs(fields)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

func xaddArgs(fields map[string]string) []string {
	args := make([]string, 0, 1+2*len(fields))
	args = append(args, "*")
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

// parseSearchResult walks the RESP2 2-stride reply: [total, key1, fields1, ...].
func (s *Store) parseSearchResult(raw []rueidis.RedisMessage, withScore bool) ([]domain.Document, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	docs := make([]domain.Document, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fieldMsgs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(fieldMsgs)

		jsonStr, ok := fields["$"]
		if !ok {
			continue
		}
		doc, err := parseDoc(strings.TrimPrefix(key, s.docPrefix()), []byte(jsonStr))
		if err != nil {
			continue
		}

		if withScore {
			if scoreStr, ok := fields["__vector_score"]; ok {
				if dist, err := strconv.ParseFloat(scoreStr, 64); err == nil {
					doc.Similarity = math.Max(0, 1.0-dist) // cosine distance → similarity
				}
			}
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// buildMetadataQuery translates an exact-match filter into an FT.SEARCH query string.
func buildMetadataQuery(f domain.MetadataFilter) string {
	var parts []string
	if f.Source != "" {
		parts = append(parts, tagCondition("source", f.Source))
	}
	if f.Type != "" {
		parts = append(parts, tagCondition("type", f.Type))
	}
	if f.Status != "" {
		parts = append(parts, tagCondition("status", f.Status))
	}
	if f.UploadedBy != "" {
		parts = append(parts, tagCondition("uploaded_by", f.UploadedBy))
	}
	if f.FileType != "" {
		parts = append(parts, tagCondition("file_type", f.FileType))
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func tagCondition(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, tagEscaper.Replace(value))
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
