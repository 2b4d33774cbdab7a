package models

import (
	"errors"
	"fmt"
)

// ExtractionErrorKind classifies an extraction failure.
type ExtractionErrorKind string

const (
	ExtractionEmptyInput ExtractionErrorKind = "empty_input"
	ExtractionMalformed  ExtractionErrorKind = "malformed"
)

// ExtractionError reports malformed or empty input to an extractor.
// Recoverable by the caller re-submitting better input.
type ExtractionError struct {
	Kind ExtractionErrorKind
	Msg  string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %s", e.Kind, e.Msg)
}

// NewExtractionError builds an ExtractionError.
func NewExtractionError(kind ExtractionErrorKind, format string, args ...any) *ExtractionError {
	return &ExtractionError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// ValidationError reports a malformed request field, rejected before scoring.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

var (
	// ErrMatchNotFound is returned when feedback references an unknown match.
	ErrMatchNotFound = errors.New("match not found")

	// ErrRetrainInProgress is returned when a retrain is requested while
	// another one is still running.
	ErrRetrainInProgress = errors.New("retrain already in progress")
)
