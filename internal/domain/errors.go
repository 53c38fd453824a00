package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoContext signals that retrieval produced no usable matches.
	ErrNoContext = errors.New("no relevant context")
	// ErrBelowThreshold signals that the best match scored under the confidence gate.
	ErrBelowThreshold = errors.New("best match below threshold")
	// ErrGenerationFailed signals that the generative model exhausted its retries.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrExamParse signals that the model reply could not be parsed into questions.
	ErrExamParse = errors.New("exam parse failed")
	// ErrEmptyDocument signals a corpus document with no extractable text.
	ErrEmptyDocument = errors.New("document is empty")
	// ErrFileNotFound signals a missing corpus file.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnsupportedFormat signals a corpus file with an unreadable extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrModelProviderError signals a model provider API failure.
	ErrModelProviderError = errors.New("model provider error")
)

// ParseError wraps ErrExamParse with the raw model reply so callers can
// report what the model actually said.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrExamParse.Error(), e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrExamParse }

// NewParseError creates an exam parse error carrying the raw reply.
func NewParseError(reason, raw string) error {
	return &ParseError{Reason: reason, Raw: raw}
}
