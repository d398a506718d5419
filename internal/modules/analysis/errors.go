package analysis

import (
	"errors"
	"fmt"
)

// ErrorKind classifies research tool failures.
type ErrorKind string

const (
	KindNetwork    ErrorKind = "network"
	KindAPI        ErrorKind = "api"
	KindValidation ErrorKind = "validation"
	KindContent    ErrorKind = "content"
)

// ToolError reports a failed research tool call.
type ToolError struct {
	Tool    string
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Tool, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }

func newToolError(tool string, kind ErrorKind, err error, format string, args ...any) *ToolError {
	return &ToolError{Tool: tool, Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether err wraps a ToolError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *ToolError
	return errors.As(err, &te) && te.Kind == kind
}

var (
	ErrNoPrimaryEntity   = errors.New("primary entity is required")
	ErrProviderNotReady  = errors.New("AI provider is not configured")
	ErrEmptyResponse     = errors.New("empty response from AI")
	ErrInvalidJSON       = errors.New("invalid JSON response from AI")
	ErrValidationFailure = errors.New("analysis failed validation")
)

// ValidationError carries the issues of the last rejected attempt.
type ValidationError struct {
	Attempts int
	Issues   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("analysis failed validation after %d attempts: %v", e.Attempts, e.Issues)
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailure }
