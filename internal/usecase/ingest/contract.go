package ingest

import (
	"context"

	"github.com/knowbase-io/knowbase/internal/activity"
	"github.com/knowbase-io/knowbase/internal/domain"
)

// DocumentAdder stores a vectorized document in the knowledge base.
type DocumentAdder interface {
	AddDocument(ctx context.Context, content string, meta domain.Metadata) (domain.Document, error)
}

// Extractor pulls plain text out of an uploaded file.
type Extractor interface {
	Extract(ctx context.Context, file domain.FileUpload) (string, error)
}

// Recorder logs upload attempts and failures.
type Recorder interface {
	RecordUpload(ctx context.Context, ev activity.UploadEvent)
	RecordError(ctx context.Context, stage, identity string, err error)
}
