/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place. Note how small this file is compared to the
  rest of the package: malformed DATA is never an error here - unparsable
  numbers become 0, unparsable dates fall out of ranged views, and
  normalization always succeeds. Errors exist only at the collaborator
  boundary (store, mileage service), where they are surfaced to the caller
  so a failed save can be retried rather than silently dropped.

USAGE:
  if errors.Is(err, ledger.ErrStoreUnavailable) { ... }

SEE ALSO:
  - cache.go: Wraps store failures with these errors
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStoreUnavailable is returned when the external data store cannot
	// complete an operation. The cache keeps its last-known-good contents.
	ErrStoreUnavailable = errors.New("data store unavailable")

	// ErrRecordNotFound is returned when a delete or update references an id
	// the store does not have.
	ErrRecordNotFound = errors.New("record not found")

	// ErrUnknownRangeKey is returned for a range selector outside the
	// {7D, 14D, 30D, MTD, YTD, ALL} vocabulary.
	ErrUnknownRangeKey = errors.New("unknown range key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StoreError wraps a store failure with the operation and entity involved.
type StoreError struct {
	Op     string // "refresh", "save", "delete"
	Entity string // "loop", "expense", "settings"
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error { return ErrStoreUnavailable }

// IsRetryable reports whether the operation might succeed if repeated.
// Store failures are retryable; a missing record is not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
