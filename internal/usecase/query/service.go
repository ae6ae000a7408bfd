// Package query runs the question answering pipeline: rate limiting, query
// validation, context retrieval, confidence gating, and answer generation.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/knowbase-io/knowbase/internal/activity"
	"github.com/knowbase-io/knowbase/internal/domain"
	"github.com/knowbase-io/knowbase/internal/metrics"
)

// Query length bounds.
const (
	MinQueryChars = 3
	MaxQueryChars = 500
)

// Confidence gates.
const (
	DefaultMinConfidence     = 0.6
	DefaultTrailerConfidence = 0.8
)

// User-facing replies for pipeline exits.
const (
	ReplyInvalidQuery  = "Please provide a valid question."
	ReplyNoInfo        = "I don't have enough information to answer that question confidently."
	ReplyLowConfidence = "I'm not confident enough to provide an accurate answer. Could you rephrase?"
	ReplyQueryError    = "Sorry, I encountered an error processing your query. Please try again."
)

// Pipeline outcomes, also used as metric labels.
const (
	OutcomeRateLimited   = "rate_limited"
	OutcomeInvalid       = "invalid"
	OutcomeNoMatches     = "no_matches"
	OutcomeLowConfidence = "low_confidence"
	OutcomeAnswered      = "answered"
	OutcomeError         = "error"
)

// Response is the result of one pipeline run.
type Response struct {
	Answer     string
	Confidence float64
	Sources    []string
	Outcome    string
	Duration   time.Duration
}

// Service orchestrates the question answering pipeline.
type Service struct {
	limiter       Limiter
	retriever     ContextRetriever
	generator     Generator
	recorder      Recorder
	logger        *zap.Logger
	minConfidence float64
	trailerConf   float64
	now           func() time.Time
}

// New creates a query service with default confidence gates.
func New(
	limiter Limiter, retriever ContextRetriever,
	generator Generator, recorder Recorder, logger *zap.Logger,
) *Service {
	return &Service{
		limiter:       limiter,
		retriever:     retriever,
		generator:     generator,
		recorder:      recorder,
		logger:        logger,
		minConfidence: DefaultMinConfidence,
		trailerConf:   DefaultTrailerConfidence,
		now:           time.Now,
	}
}

// WithThresholds overrides the confidence gates. Zero values keep defaults.
func (s *Service) WithThresholds(minConfidence, trailerConfidence float64) *Service {
	if minConfidence > 0 {
		s.minConfidence = minConfidence
	}
	if trailerConfidence > 0 {
		s.trailerConf = trailerConfidence
	}
	return s
}

// HandleQuery runs the full pipeline for one query. Rate-limited requests
// return domain.ErrRateLimited; every other exit, including internal
// failures, produces a user-facing answer.
func (s *Service) HandleQuery(ctx context.Context, identity, query string) (resp Response, err error) {
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			s.recorder.RecordError(ctx, "pipeline", identity, fmt.Errorf("panic: %v", r))
			resp = s.exit(ctx, identity, query, Response{
				Answer:  ReplyQueryError,
				Outcome: OutcomeError,
			}, start)
			err = nil
		}
	}()

	if !s.limiter.CheckLimit(identity) {
		s.exit(ctx, identity, query, Response{Outcome: OutcomeRateLimited}, start)
		return Response{}, fmt.Errorf("identity %q: %w", identity, domain.ErrRateLimited)
	}

	query = strings.TrimSpace(query)
	if n := utf8.RuneCountInString(query); n < MinQueryChars || n > MaxQueryChars {
		return s.exit(ctx, identity, query, Response{
			Answer:  ReplyInvalidQuery,
			Outcome: OutcomeInvalid,
		}, start), nil
	}

	retrieved, err := s.retriever.RetrieveContext(ctx, query)
	if err != nil {
		s.recorder.RecordError(ctx, "retrieval", identity, err)
		return s.exit(ctx, identity, query, Response{
			Answer:  ReplyQueryError,
			Outcome: OutcomeError,
		}, start), nil
	}

	metrics.QueryConfidence.Observe(retrieved.Confidence)

	if len(retrieved.Documents) == 0 || retrieved.Context == "" {
		return s.exit(ctx, identity, query, Response{
			Answer:  ReplyNoInfo,
			Outcome: OutcomeNoMatches,
		}, start), nil
	}

	if retrieved.Confidence < s.minConfidence {
		return s.exit(ctx, identity, query, Response{
			Answer:     ReplyLowConfidence,
			Confidence: retrieved.Confidence,
			Outcome:    OutcomeLowConfidence,
		}, start), nil
	}

	answer, err := s.generator.Generate(ctx, buildPrompt(retrieved.Context, query))
	if err != nil {
		s.recorder.RecordError(ctx, "generation", identity, err)
		return s.exit(ctx, identity, query, Response{
			Answer:     ReplyQueryError,
			Confidence: retrieved.Confidence,
			Outcome:    OutcomeError,
		}, start), nil
	}

	sources := distinctSources(retrieved.Documents)
	elapsed := s.now().Sub(start)

	if retrieved.Confidence > s.trailerConf {
		answer += buildTrailer(sources, elapsed)
	}

	return s.exit(ctx, identity, query, Response{
		Answer:     answer,
		Confidence: retrieved.Confidence,
		Sources:    sources,
		Outcome:    OutcomeAnswered,
	}, start), nil
}

// exit finalizes a pipeline run: duration, metrics, and activity recording.
func (s *Service) exit(
	ctx context.Context, identity, query string, resp Response, start time.Time,
) Response {
	resp.Duration = s.now().Sub(start)

	metrics.QueriesTotal.WithLabelValues(resp.Outcome).Inc()

	s.recorder.RecordQuery(ctx, activity.QueryEvent{
		Identity:   identity,
		Query:      query,
		Answer:     resp.Answer,
		Confidence: resp.Confidence,
		Outcome:    resp.Outcome,
		Duration:   resp.Duration,
	})

	return resp
}

// buildPrompt assembles the generation prompt from the retrieved context.
func buildPrompt(contextText, query string) string {
	return fmt.Sprintf(
		"Context information is below:\n%s\n\n"+
			"Given the context information, answer the following question:\n%s\n\n"+
			"If you can't answer the question based on the context, say so. Do not make up information.\n"+
			"Answer:",
		contextText, query,
	)
}

// buildTrailer formats the sources and timing footer shown on
// high-confidence answers.
func buildTrailer(sources []string, elapsed time.Duration) string {
	quoted := make([]string, len(sources))
	for i, src := range sources {
		quoted[i] = "`" + src + "`"
	}
	return fmt.Sprintf(
		"\n\n---\n📚 Sources: %s\n⚡ Response time: %dms",
		strings.Join(quoted, ", "), elapsed.Milliseconds(),
	)
}

// distinctSources returns source labels in first-seen order without duplicates.
func distinctSources(docs []domain.Document) []string {
	seen := make(map[string]struct{}, len(docs))
	var sources []string
	for _, d := range docs {
		label := d.Metadata.SourceLabel()
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		sources = append(sources, label)
	}
	return sources
}
