// Package activity records user-facing pipeline events to the structured log
// and to storage streams. Recording is best-effort: a failed write never
// changes the outcome of the operation being recorded.
package activity

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Streams written by the recorder.
const (
	QueryStream = "activity"
	ErrorStream = "errors"
)

// maxAnswerChars caps recorded answers so stream entries stay bounded.
const maxAnswerChars = 1000

// Appender adds an entry to a named stream.
type Appender interface {
	Append(ctx context.Context, stream string, fields map[string]string) error
}

// Recorder writes activity and error events.
type Recorder struct {
	appender Appender
	logger   *zap.Logger
}

// NewRecorder creates a recorder. The appender may be nil, in which case
// events go to the log only.
func NewRecorder(appender Appender, logger *zap.Logger) *Recorder {
	return &Recorder{appender: appender, logger: logger}
}

// QueryEvent describes one completed query pipeline run.
type QueryEvent struct {
	Identity   string
	Query      string
	Answer     string
	Confidence float64
	Outcome    string
	Duration   time.Duration
}

// RecordQuery records a query pipeline exit, whatever the outcome.
func (r *Recorder) RecordQuery(ctx context.Context, ev QueryEvent) {
	answer := ev.Answer
	if len(answer) > maxAnswerChars {
		answer = answer[:maxAnswerChars]
	}

	r.logger.Info("query processed",
		zap.String("identity", ev.Identity),
		zap.String("outcome", ev.Outcome),
		zap.Float64("confidence", ev.Confidence),
		zap.Duration("duration", ev.Duration),
	)

	r.append(ctx, QueryStream, map[string]string{
		"type":        "query",
		"identity":    ev.Identity,
		"query":       ev.Query,
		"answer":      answer,
		"confidence":  strconv.FormatFloat(ev.Confidence, 'f', 4, 64),
		"outcome":     ev.Outcome,
		"duration_ms": strconv.FormatInt(ev.Duration.Milliseconds(), 10),
	})
}

// UploadEvent describes one document upload attempt.
type UploadEvent struct {
	Identity string
	FileName string
	FileSize int64
	Outcome  string
	DocID    string
}

// RecordUpload records a document upload attempt, accepted or rejected.
func (r *Recorder) RecordUpload(ctx context.Context, ev UploadEvent) {
	r.logger.Info("upload processed",
		zap.String("identity", ev.Identity),
		zap.String("file", ev.FileName),
		zap.Int64("size", ev.FileSize),
		zap.String("outcome", ev.Outcome),
	)

	r.append(ctx, QueryStream, map[string]string{
		"type":     "upload",
		"identity": ev.Identity,
		"file":     ev.FileName,
		"size":     strconv.FormatInt(ev.FileSize, 10),
		"outcome":  ev.Outcome,
		"doc_id":   ev.DocID,
	})
}

// RecordError records a pipeline failure with its source stage.
func (r *Recorder) RecordError(ctx context.Context, stage, identity string, err error) {
	r.logger.Error("pipeline error",
		zap.String("stage", stage),
		zap.String("identity", identity),
		zap.Error(err),
	)

	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.append(ctx, ErrorStream, map[string]string{
		"stage":    stage,
		"identity": identity,
		"error":    msg,
	})
}

func (r *Recorder) append(ctx context.Context, stream string, fields map[string]string) {
	if r.appender == nil {
		return
	}
	if err := r.appender.Append(ctx, stream, fields); err != nil {
		r.logger.Warn("activity stream append failed",
			zap.String("stream", stream), zap.Error(err))
	}
}
