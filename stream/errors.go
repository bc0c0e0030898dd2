/*
errors.go - Centralized error types for the streaming engine

PURPOSE:
  All error kinds in one place. Every failure aborts the whole operation;
  nothing is recovered locally, so callers classify errors with the helpers
  below and re-derive state via the read-only queries.

ERROR CATEGORIES:
  1. Validation errors  - malformed creation parameters, rejected before
     any effect (no storage write, no transfer, no id allocated)
  2. Not-found          - unknown stream identifier
  3. Invalid-state      - transition not allowed from the current status
  4. Authorization      - caller cannot prove control of the principal
  5. Transfer           - propagated from the funds-transfer collaborator

SEE ALSO:
  - validate.go: Produces the validation errors
  - engine.go: Produces not-found / invalid-state / authorization errors
*/
package stream

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNonPositiveDeposit is returned when deposit_amount is zero or negative.
	ErrNonPositiveDeposit = errors.New("deposit_amount must be positive")

	// ErrNonPositiveRate is returned when rate_per_second is zero or negative.
	ErrNonPositiveRate = errors.New("rate_per_second must be positive")

	// ErrSameSenderRecipient is returned when a stream targets its own funder.
	ErrSameSenderRecipient = errors.New("sender and recipient must be different")

	// ErrInvalidTimeRange is returned when start_time is not before end_time.
	ErrInvalidTimeRange = errors.New("start_time must be before end_time")

	// ErrCliffOutOfRange is returned when cliff_time falls outside
	// [start_time, end_time].
	ErrCliffOutOfRange = errors.New("cliff_time must be within [start_time, end_time]")

	// ErrInsufficientDeposit is returned when the deposit cannot cover
	// rate_per_second * (end_time - start_time).
	ErrInsufficientDeposit = errors.New("deposit_amount must cover total streamable amount")

	// ErrStreamableOverflow is returned when computing the total streamable
	// amount itself overflows the 128-bit range. Deliberately distinct from
	// ErrInsufficientDeposit so the two stay separately testable.
	ErrStreamableOverflow = errors.New("overflow computing total streamable amount")

	// ErrBatchDepositOverflow is returned when summing the deposits of a
	// batch overflows the 128-bit range.
	ErrBatchDepositOverflow = errors.New("overflow computing total batch deposit")

	// ErrAmountOutOfRange is returned when parsing a value outside the
	// signed 128-bit integer domain.
	ErrAmountOutOfRange = errors.New("amount outside signed 128-bit range")

	// ErrStreamNotFound is returned when an operation references a stream
	// identifier that was never allocated.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrInvalidState is the sentinel wrapped by InvalidStateError.
	ErrInvalidState = errors.New("invalid stream state")

	// ErrUnauthorized is returned when the caller cannot prove control of
	// the required principal.
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrNotInitialized is returned when an operation runs before Init.
	ErrNotInitialized = errors.New("engine not initialised: missing config")

	// ErrAlreadyInitialized is returned when Init runs twice.
	ErrAlreadyInitialized = errors.New("engine already initialised")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidStateError reports which transition was attempted from which status.
type InvalidStateError struct {
	Op     string
	ID     StreamID
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s stream %d: status is %s", e.Op, e.ID, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true for parameter validation failures.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNonPositiveDeposit) ||
		errors.Is(err, ErrNonPositiveRate) ||
		errors.Is(err, ErrSameSenderRecipient) ||
		errors.Is(err, ErrInvalidTimeRange) ||
		errors.Is(err, ErrCliffOutOfRange) ||
		errors.Is(err, ErrInsufficientDeposit) ||
		errors.Is(err, ErrStreamableOverflow) ||
		errors.Is(err, ErrBatchDepositOverflow) ||
		errors.Is(err, ErrAmountOutOfRange)
}

// IsNotFound returns true if the error indicates a missing stream.
func IsNotFound(err error) bool { return errors.Is(err, ErrStreamNotFound) }

// IsInvalidState returns true for transition-guard failures.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

// IsUnauthorized returns true for authorization failures.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
