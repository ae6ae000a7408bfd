package domain

import "errors"

var (
	// ErrNotFound signals a missing document.
	ErrNotFound = errors.New("document not found")
	// ErrValidation signals rejected user input (query length, file type/size, content length).
	ErrValidation = errors.New("validation failed")
	// ErrForbidden signals an operation restricted to privileged identities.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited signals a sliding-window admission rejection.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding backend failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals an answer-generation backend failure.
	ErrGenerationProviderError = errors.New("generation provider error")
)
