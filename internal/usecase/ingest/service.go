// Package ingest turns uploaded files into knowledge base documents:
// admin gating, size and type checks, text extraction, and storage.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/knowbase-io/knowbase/internal/activity"
	"github.com/knowbase-io/knowbase/internal/domain"
)

// Upload limits.
const (
	DefaultMaxFileBytes = 10 << 20 // 10 MiB
	chunkChars          = 1000
)

// DefaultAllowedTypes are the accepted file extensions.
var DefaultAllowedTypes = []string{"pdf", "docx", "txt"}

// User-facing replies for upload exits.
const (
	ReplyAdminsOnly     = "Sorry, only admins can add documents to the knowledge base."
	ReplyFileTooLarge   = "File too large. Maximum size is 10MB"
	ReplyInvalidContent = "Document content is too short or invalid."
	ReplyUploadSuccess  = "Document processed and added to knowledge base successfully!"
	ReplyUploadError    = "Sorry, I encountered an error processing the document. Please try again."
)

// Upload outcomes recorded with each attempt.
const (
	OutcomeForbidden       = "forbidden"
	OutcomeTooLarge        = "too_large"
	OutcomeUnsupportedType = "unsupported_type"
	OutcomeInvalidContent  = "invalid_content"
	OutcomeAdded           = "added"
	OutcomeError           = "error"
)

// Response is the result of one upload attempt.
type Response struct {
	Message  string
	Accepted bool
	DocID    string
}

// Service handles document uploads.
type Service struct {
	adder        DocumentAdder
	extractor    Extractor
	recorder     Recorder
	logger       *zap.Logger
	admins       map[string]struct{}
	maxFileBytes int64
	allowedTypes map[string]struct{}
	typesReply   string
	now          func() time.Time
}

// New creates an ingestion service. adminIDs is the set of identities
// allowed to upload.
func New(
	adder DocumentAdder, extractor Extractor, recorder Recorder,
	adminIDs []string, logger *zap.Logger,
) *Service {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	s := &Service{
		adder:        adder,
		extractor:    extractor,
		recorder:     recorder,
		logger:       logger,
		admins:       admins,
		maxFileBytes: DefaultMaxFileBytes,
		now:          time.Now,
	}
	return s.WithAllowedTypes(DefaultAllowedTypes)
}

// WithMaxFileBytes overrides the upload size limit.
func (s *Service) WithMaxFileBytes(n int64) *Service {
	if n > 0 {
		s.maxFileBytes = n
	}
	return s
}

// WithAllowedTypes overrides the accepted file extensions.
func (s *Service) WithAllowedTypes(types []string) *Service {
	if len(types) == 0 {
		return s
	}
	s.allowedTypes = make(map[string]struct{}, len(types))
	for _, t := range types {
		s.allowedTypes[strings.ToLower(t)] = struct{}{}
	}
	s.typesReply = fmt.Sprintf(
		"Unsupported file type. Allowed types: %s", strings.Join(types, ", "))
	return s
}

// HandleUpload runs the upload pipeline for one file. Every exit produces a
// user-facing message; internal failures are absorbed into an apology.
func (s *Service) HandleUpload(
	ctx context.Context, identity string, file domain.FileUpload,
) Response {
	if _, ok := s.admins[identity]; !ok {
		return s.exit(ctx, identity, file, Response{Message: ReplyAdminsOnly}, OutcomeForbidden, "")
	}

	if file.Size > s.maxFileBytes {
		return s.exit(ctx, identity, file, Response{Message: ReplyFileTooLarge}, OutcomeTooLarge, "")
	}

	ext := fileExtension(file.Name)
	if _, ok := s.allowedTypes[ext]; !ok {
		return s.exit(ctx, identity, file, Response{Message: s.typesReply}, OutcomeUnsupportedType, "")
	}

	content, err := s.extractor.Extract(ctx, file)
	if err != nil {
		s.recorder.RecordError(ctx, "extraction", identity, err)
		return s.exit(ctx, identity, file, Response{Message: ReplyUploadError}, OutcomeError, "")
	}

	content = strings.TrimSpace(content)
	if len(content) < domain.MinContentChars || len(content) > domain.MaxContentChars {
		return s.exit(ctx, identity, file, Response{Message: ReplyInvalidContent}, OutcomeInvalidContent, "")
	}

	doc, err := s.adder.AddDocument(ctx, content, domain.Metadata{
		Source:       file.Name,
		UploadedBy:   identity,
		UploadedAt:   s.now(),
		FileType:     ext,
		OriginalSize: file.Size,
		Chunks:       math.Ceil(float64(len(content)) / chunkChars),
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return s.exit(ctx, identity, file, Response{Message: ReplyInvalidContent}, OutcomeInvalidContent, "")
		}
		s.recorder.RecordError(ctx, "ingestion", identity, err)
		return s.exit(ctx, identity, file, Response{Message: ReplyUploadError}, OutcomeError, "")
	}

	s.logger.Info("document ingested",
		zap.String("id", doc.ID),
		zap.String("file", file.Name),
		zap.String("identity", identity),
	)

	return s.exit(ctx, identity, file, Response{
		Message:  ReplyUploadSuccess,
		Accepted: true,
		DocID:    doc.ID,
	}, OutcomeAdded, doc.ID)
}

func (s *Service) exit(
	ctx context.Context, identity string, file domain.FileUpload,
	resp Response, outcome, docID string,
) Response {
	s.recorder.RecordUpload(ctx, activity.UploadEvent{
		Identity: identity,
		FileName: file.Name,
		FileSize: file.Size,
		Outcome:  outcome,
		DocID:    docID,
	})
	return resp
}

// fileExtension returns the lowercase extension without the dot.
func fileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
