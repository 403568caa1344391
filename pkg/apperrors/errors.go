// Package apperrors defines the sentinel errors shared across the engine.
// Services wrap these with fmt.Errorf("...: %w", err) to add context;
// callers classify with errors.Is.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput is the root of the validation family. The specific
	// sentinels below wrap it, so errors.Is(err, ErrInvalidInput) matches
	// every synchronous rejection.
	ErrInvalidInput = errors.New("invalid input")

	ErrEmptyMention         = fmt.Errorf("%w: mention text is empty", ErrInvalidInput)
	ErrUnknownEntityType    = fmt.Errorf("%w: unknown entity type", ErrInvalidInput)
	ErrUnknownThemeCategory = fmt.Errorf("%w: unknown theme category", ErrInvalidInput)
	ErrInvalidWindow        = fmt.Errorf("%w: invalid time window", ErrInvalidInput)

	// ErrAmbiguousMatch marks a resolution whose top candidates were too
	// close to call. It never escapes Resolve; the escalation path handles it.
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrCollaboratorDown marks a collaborator call skipped by the circuit
	// breaker or failed after retries. Callers degrade to the safe default.
	ErrCollaboratorDown = errors.New("collaborator unavailable")
)
