package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type no normaliser can handle.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidChunkingParameters indicates chunk_size <= 0, overlap < 0
	// or overlap >= chunk_size.
	ErrInvalidChunkingParameters = errors.New("invalid chunking parameters")

	// ErrExtraction indicates the document could not be read or parsed.
	ErrExtraction = errors.New("extraction failed")

	// ErrProvider indicates the embedding or generation provider failed.
	ErrProvider = errors.New("provider error")

	// ErrDimensionMismatch indicates a vector whose length differs from the index.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrUnknownDocument indicates an operation named a document that was never ingested.
	ErrUnknownDocument = errors.New("unknown document")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Summarisation falls back to extractive mode.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ProviderErrorKind classifies provider failures.
type ProviderErrorKind string

// Provider failure kinds.
const (
	ProviderRateLimited  ProviderErrorKind = "rate_limited"
	ProviderInvalidInput ProviderErrorKind = "invalid_input"
	ProviderUnavailable  ProviderErrorKind = "unavailable"
)

// ProviderError is returned by embedding and generation adapters.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error

	// RetryAfter is the server's hint for rate-limited failures, if any.
	RetryAfter time.Duration
}

// NewProviderError wraps err as a provider failure of the given kind.
func NewProviderError(provider string, kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s provider %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s provider %s: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is matches ErrProvider, and ErrRateLimited for rate-limited failures.
func (e *ProviderError) Is(target error) bool {
	if target == ErrProvider {
		return true
	}
	return target == ErrRateLimited && e.Kind == ProviderRateLimited
}

// ExtractionError records which path failed to extract.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is matches ErrExtraction.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

// DimensionMismatchError reports the expected and actual vector lengths.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: index has %d, got %d", e.Want, e.Got)
}

// Is matches ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// Error kinds reported on the tool surface.
const (
	KindInvalidChunkingParameters = "invalid_chunking_parameters"
	KindExtraction                = "extraction_error"
	KindProvider                  = "provider_error"
	KindDimensionMismatch         = "dimension_mismatch"
	KindUnknownDocument           = "unknown_document"
	KindInvalidInput              = "invalid_input"
	KindNotFound                  = "not_found"
	KindCanceled                  = "canceled"
	KindInternal                  = "internal"
)

// ErrorKind maps an error to the kind reported to tool callers.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidChunkingParameters):
		return KindInvalidChunkingParameters
	case errors.Is(err, ErrExtraction), errors.Is(err, ErrUnsupportedType):
		return KindExtraction
	case errors.Is(err, ErrDimensionMismatch):
		return KindDimensionMismatch
	case errors.Is(err, ErrProvider), errors.Is(err, ErrEmbeddingUnavailable):
		return KindProvider
	case errors.Is(err, ErrUnknownDocument):
		return KindUnknownDocument
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
