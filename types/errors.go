package types

import (
	"errors"
	"fmt"
)

var (
	ErrExtraction    = errors.New("extraction failed")
	ErrEmbedding     = errors.New("embedding failed")
	ErrSummarization = errors.New("summarization failed")
	ErrTranscription = errors.New("transcription failed")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrUnsupported   = errors.New("operation not supported by provider")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
