package query

import (
	"context"

	"github.com/knowbase-io/knowbase/internal/activity"
	"github.com/knowbase-io/knowbase/internal/domain"
)

// Limiter admits or rejects a request for an identity.
type Limiter interface {
	CheckLimit(identity string) bool
}

// ContextRetriever finds relevant knowledge for a query.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, query string) (domain.RetrievalResult, error)
}

// Generator produces an answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recorder logs pipeline exits and failures.
type Recorder interface {
	RecordQuery(ctx context.Context, ev activity.QueryEvent)
	RecordError(ctx context.Context, stage, identity string, err error)
}
