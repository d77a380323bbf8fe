/*
errors.go - Centralized error types for the accounting engine

PURPOSE:
  All financial error kinds in one place. Domain packages wrap these with
  additional context; the HTTP layer maps them to status codes with
  errors.Is.

ERROR CATEGORIES:
  1. Input errors - bad amounts, out-of-range percentages
  2. Lookup errors - referenced records that do not exist
  3. Ledger errors - idempotency violations on append

SEE ALSO:
  - workflow/errors.go: Request lifecycle errors (AlreadyResolved,
    DuplicatePending)
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
	// ErrInvalidAmount is returned for a non-positive abono amount or a
	// negative session cost / payment amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrOutOfRange is returned when a value falls outside its documented
	// range and cannot be clamped.
	ErrOutOfRange = errors.New("value out of range")

	// ErrDuplicateIdempotencyKey is returned when an entry with the same
	// idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrProfessionalNotFound is returned when a referenced professional
	// does not exist.
	ErrProfessionalNotFound = errors.New("professional not found")

	// ErrAppointmentNotFound is returned when a referenced appointment
	// does not exist.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrEntryNotFound is returned when a referenced ledger entry does
	// not exist.
	ErrEntryNotFound = errors.New("ledger entry not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidAmountError reports which amount was rejected and why.
type InvalidAmountError struct {
	Field  string
	Amount Money
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Amount)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrOutOfRange) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProfessionalNotFound) ||
		errors.Is(err, ErrAppointmentNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}
