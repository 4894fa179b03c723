package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent pipeline failures by scope.
// Adapters wrap them with %w so callers can branch with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates bad configuration or input, rejected before any I/O.
	ErrValidation = errors.New("validation failed")

	// ErrNoText indicates the input contained no text to chunk.
	ErrNoText = fmt.Errorf("%w: no text", ErrValidation)

	// ErrNoChunksProduced indicates every paragraph was filtered out.
	ErrNoChunksProduced = fmt.Errorf("%w: no chunks produced", ErrValidation)

	// ErrExtraction indicates text could not be extracted from the content.
	// It is fatal to the semantic branch only.
	ErrExtraction = errors.New("text extraction failed")

	// ErrProvider indicates the embedding provider failed a batch.
	ErrProvider = errors.New("embedding provider error")

	// ErrIndex indicates a vector index call failed for one chunk.
	ErrIndex = errors.New("vector index error")

	// ErrPersistence indicates reading or writing document state failed.
	ErrPersistence = errors.New("persistence error")

	// ErrRestoreInconsistency indicates a soft-deleted document's bytes are
	// missing from the deleted namespace.
	ErrRestoreInconsistency = errors.New("restore inconsistency")

	// ErrObjectNotFound indicates the object store has no such key.
	ErrObjectNotFound = errors.New("object not found")

	// ErrEmbeddingUnavailable indicates the embedding provider is not configured.
	// Semantic checks are skipped without it.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrUnsupportedType indicates no extractor handles a MIME type.
	ErrUnsupportedType = errors.New("unsupported type")
)

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ProviderErrorKind classifies embedding provider failures.
type ProviderErrorKind string

const (
	// ProviderAuth is a rejected credential. Not retried.
	ProviderAuth ProviderErrorKind = "auth"

	// ProviderRateLimit is a 429-style throttle. Retried after backoff.
	ProviderRateLimit ProviderErrorKind = "rate_limit"

	// ProviderValidation is a rejected input. Not retried.
	ProviderValidation ProviderErrorKind = "validation"

	// ProviderTransient is a network or 5xx failure. Retried.
	ProviderTransient ProviderErrorKind = "transient"
)

// ProviderError is returned by embedding provider adapters.
type ProviderError struct {
	Kind ProviderErrorKind

	// StatusCode is the HTTP status, if any.
	StatusCode int

	// RetryAfter is the server-advised wait in seconds, if any.
	RetryAfter int

	Err error
}

// NewProviderError creates a ProviderError.
func NewProviderError(kind ProviderErrorKind, statusCode int, err error) *ProviderError {
	return &ProviderError{Kind: kind, StatusCode: statusCode, Err: err}
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%s, status %d): %v", ErrProvider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", ErrProvider, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is matches ErrProvider.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// Retryable reports whether the call may succeed if repeated.
func (e *ProviderError) Retryable() bool {
	return e.Kind == ProviderTransient || e.Kind == ProviderRateLimit
}

// ProviderErrorKindForStatus maps an HTTP status code to a ProviderErrorKind.
func ProviderErrorKindForStatus(status int) ProviderErrorKind {
	switch {
	case status == 401 || status == 403:
		return ProviderAuth
	case status == 429:
		return ProviderRateLimit
	case status >= 500:
		return ProviderTransient
	default:
		return ProviderValidation
	}
}

// IsRetryable reports whether err is a retryable provider error.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}
