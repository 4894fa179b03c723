package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrValidation", ErrValidation},
		{"ErrNoText", ErrNoText},
		{"ErrNoChunksProduced", ErrNoChunksProduced},
		{"ErrExtraction", ErrExtraction},
		{"ErrProvider", ErrProvider},
		{"ErrIndex", ErrIndex},
		{"ErrPersistence", ErrPersistence},
		{"ErrRestoreInconsistency", ErrRestoreInconsistency},
		{"ErrObjectNotFound", ErrObjectNotFound},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrVectorIndexUnavailable", ErrVectorIndexUnavailable},
		{"ErrUnsupportedType", ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrors_Uniqueness tests that scope errors do not match each other
func TestErrors_Uniqueness(t *testing.T) {
	scopes := []error{
		ErrNotFound, ErrValidation, ErrExtraction, ErrProvider, ErrIndex,
		ErrPersistence, ErrRestoreInconsistency, ErrObjectNotFound,
	}
	for i, a := range scopes {
		for j, b := range scopes {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

func TestErrNoText_IsValidation(t *testing.T) {
	assert.ErrorIs(t, ErrNoText, ErrValidation)
	assert.ErrorIs(t, ErrNoChunksProduced, ErrValidation)
	assert.Equal(t, "validation failed: no text", ErrNoText.Error())
}

func TestErrors_WithWrapping(t *testing.T) {
	wrapped := fmt.Errorf("save document: %w", ErrPersistence)
	assert.ErrorIs(t, wrapped, ErrPersistence)
	assert.NotErrorIs(t, wrapped, ErrIndex)
	assert.Equal(t, "save document: persistence error", wrapped.Error())
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("overlap", "must not be negative")

	assert.Equal(t, "validation failed: overlap: must not be negative", err.Error())
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrExtraction)

	var ve *ValidationError
	wrapped := fmt.Errorf("chunk: %w", err)
	assert.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, "overlap", ve.Field)
}

func TestProviderError(t *testing.T) {
	cause := errors.New("connection reset")

	withStatus := NewProviderError(ProviderTransient, 503, cause)
	assert.Equal(t, "embedding provider error (transient, status 503): connection reset", withStatus.Error())
	assert.ErrorIs(t, withStatus, ErrProvider)
	assert.ErrorIs(t, withStatus, cause)

	noStatus := NewProviderError(ProviderAuth, 0, cause)
	assert.Equal(t, "embedding provider error (auth): connection reset", noStatus.Error())
}

func TestProviderError_Retryable(t *testing.T) {
	tests := []struct {
		kind     ProviderErrorKind
		expected bool
	}{
		{ProviderAuth, false},
		{ProviderValidation, false},
		{ProviderRateLimit, true},
		{ProviderTransient, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := NewProviderError(tt.kind, 0, errors.New("x"))
			assert.Equal(t, tt.expected, err.Retryable())
			assert.Equal(t, tt.expected, IsRetryable(fmt.Errorf("batch 2: %w", err)))
		})
	}
}

func TestIsRetryable_NonProviderError(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(ErrIndex))
}

func TestProviderErrorKindForStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ProviderErrorKind
	}{
		{401, ProviderAuth},
		{403, ProviderAuth},
		{429, ProviderRateLimit},
		{500, ProviderTransient},
		{503, ProviderTransient},
		{400, ProviderValidation},
		{404, ProviderValidation},
		{413, ProviderValidation},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, ProviderErrorKindForStatus(tt.status))
		})
	}
}
