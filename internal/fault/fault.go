// Package fault defines the error taxonomy shared across the orchestration
// engine. Callers branch on kind with errors.Is; messages stay human-readable
// because validation and ambiguity errors are surfaced as spoken replies.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad caller input (missing booking field, past time).
	// Surfaced as a clarification request, never a hard failure.
	ErrValidation = errors.New("validation")

	// ErrAmbiguous marks inputs matching more than one record; requires
	// human handling.
	ErrAmbiguous = errors.New("ambiguous")

	// ErrExternal marks a collaborator failure (model, calendar, SMS, voice
	// provider). Absorbed or retried per component policy.
	ErrExternal = errors.New("external service")

	// ErrConflict marks a duplicate idempotency key. Treated as success-no-op.
	ErrConflict = errors.New("idempotency conflict")

	// ErrNotFound marks a missing record or template.
	ErrNotFound = errors.New("not found")
)

// Validation wraps a message as a validation error.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Ambiguous wraps a message as an ambiguity error.
func Ambiguous(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAmbiguous, fmt.Sprintf(format, args...))
}

// External wraps a collaborator error, keeping the cause in the chain.
func External(svc string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrExternal, svc, err)
}

// NotFound wraps a message as a not-found error.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
