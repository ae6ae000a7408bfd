package knowbase

import "github.com/knowbase-io/knowbase/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound                = domain.ErrNotFound
	ErrValidation              = domain.ErrValidation
	ErrForbidden               = domain.ErrForbidden
	ErrRateLimited             = domain.ErrRateLimited
	ErrEmbeddingProviderError  = domain.ErrEmbeddingProviderError
	ErrGenerationProviderError = domain.ErrGenerationProviderError
)
