/*
errors.go - Centralized error types for the punch engine

PURPOSE:
  All error kinds in one place. Every failure the engine can produce is a
  distinct, user-explainable kind; nothing is coerced into a generic error.

ERROR CATEGORIES:
  1. Sequence errors - The submitted punch does not fit the day's state
  2. Data errors     - The stored day violates the prefix invariant
  3. Race errors     - A concurrent submission won the ordinal slot

RETRY SEMANTICS:
  LimitExceeded and SequenceComplete are terminal for the day.
  UnexpectedType and StateChanged are resolved by re-fetching the day and
  resubmitting; the engine itself never retries.

USAGE:
  if errors.Is(err, punch.ErrSequenceComplete) { ... }

  var ute *punch.UnexpectedTypeError
  if errors.As(err, &ute) {
      prompt(ute.Expected)
  }

SEE ALSO:
  - sequencer.go: Produces sequence and data errors
  - store/sqlite: Translates duplicate-ordinal writes into ErrStateChanged
*/
package punch

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrLimitExceeded is returned when the day already holds four punches.
	// Terminal for that day, not retryable.
	ErrLimitExceeded = errors.New("daily punch limit reached")

	// ErrSequenceComplete is returned when the last punch was OUT.
	// The day is closed; no further punches are allowed.
	ErrSequenceComplete = errors.New("workday already closed")

	// ErrUnexpectedType is returned when the submitted type does not match
	// the expected next type. Retryable after the caller re-fetches state.
	ErrUnexpectedType = errors.New("unexpected punch type")

	// ErrMalformedDayData is returned when a day's stored punches violate
	// the prefix invariant (duplicate types, non-contiguous ordinals).
	// The sequencer refuses to append on top of corrupted state.
	ErrMalformedDayData = errors.New("malformed day data")

	// ErrStateChanged is returned when a concurrent submission claimed the
	// ordinal first. The caller should re-read the day and resubmit.
	ErrStateChanged = errors.New("punch state changed, retry")

	// ErrNotFound is returned when a referenced punch or worker is missing.
	ErrNotFound = errors.New("not found")

	// ErrNoEvidence is returned when a punch has no stored photo.
	ErrNoEvidence = errors.New("punch has no evidence")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnexpectedTypeError carries the expected type for user-facing messaging.
type UnexpectedTypeError struct {
	Submitted Type
	Expected  Type
}

func (e *UnexpectedTypeError) Error() string {
	return fmt.Sprintf("unexpected punch type %s, expected %s", e.Submitted, e.Expected)
}

func (e *UnexpectedTypeError) Unwrap() error { return ErrUnexpectedType }

// MalformedDayError describes how the stored day violates the invariant.
type MalformedDayError struct {
	Scope  ScopeKey
	Detail string
}

func (e *MalformedDayError) Error() string {
	return fmt.Sprintf("malformed day data for worker %s: %s", e.Scope.WorkerID, e.Detail)
}

func (e *MalformedDayError) Unwrap() error { return ErrMalformedDayData }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed after the caller
// re-fetches the current day and resubmits.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnexpectedType) || errors.Is(err, ErrStateChanged)
}

// IsClientError returns true if the error is due to invalid client input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrLimitExceeded) ||
		errors.Is(err, ErrSequenceComplete) ||
		errors.Is(err, ErrUnexpectedType) ||
		errors.Is(err, ErrMalformedDayData)
}
