// Package errs defines the error kinds surfaced by invoice operations.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToBill means the filter matched no billable entries. It is an
	// informational outcome, not a failure.
	ErrNothingToBill = errors.New("nothing to bill")

	ErrNotFound          = errors.New("not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrAlreadyExported   = errors.New("entries already exported")
	ErrTemplateInUse     = errors.New("template is referenced by invoices")
	ErrInvalidTransition = errors.New("status change not allowed")
)

// ValidationError reports a bad input value for a named field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TokenReason names why an action token was refused
type TokenReason string

const (
	TokenMissing  TokenReason = "missing"
	TokenInvalid  TokenReason = "invalid"
	TokenExpired  TokenReason = "expired"
	TokenMismatch TokenReason = "mismatch"
	// TokenStale means the selection changed after the token was issued
	TokenStale TokenReason = "stale"
)

// TokenError is returned when an action or confirmation token is refused
type TokenError struct {
	Reason TokenReason
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("action token rejected: %s", e.Reason)
}

// NumberingFailure means no invoice number could be issued
type NumberingFailure struct {
	Err error
}

func (e *NumberingFailure) Error() string {
	return fmt.Sprintf("invoice numbering failed: %v", e.Err)
}

func (e *NumberingFailure) Unwrap() error { return e.Err }

// PersistenceFailure means a durable write failed and was rolled back
type PersistenceFailure struct {
	Op  string
	Err error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceFailure) Unwrap() error { return e.Err }

// RenderError names the template field a renderer could not do without
type RenderError struct {
	Renderer string
	Field    string
	Err      error
}

func (e *RenderError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("renderer %s: missing template field %q", e.Renderer, e.Field)
	}
	return fmt.Sprintf("renderer %s: %v", e.Renderer, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Kind classifies an error for transport layers
func Kind(err error) string {
	var (
		validation *ValidationError
		token      *TokenError
		numbering  *NumberingFailure
		persist    *PersistenceFailure
		render     *RenderError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &token):
		return "token"
	case errors.Is(err, ErrNothingToBill):
		return "nothing_to_bill"
	case errors.As(err, &render):
		return "render"
	case errors.As(err, &numbering):
		return "numbering"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDocumentNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExported):
		return "already_exported"
	case errors.Is(err, ErrTemplateInUse):
		return "template_in_use"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.As(err, &persist):
		return "persistence"
	default:
		return "internal"
	}
}
