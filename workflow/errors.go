package workflow

import (
	"errors"
	"fmt"

	"github.com/solhealth/clinic-core/ledger"
)

var (
	// ErrAlreadyResolved is returned when resolving a request that is no
	// longer pending. The caller surfaces "already resolved" instead of
	// double-applying the side effect.
	ErrAlreadyResolved = errors.New("request already resolved")

	// ErrDuplicatePending is returned when the patient already has a
	// pending request of the same kind.
	ErrDuplicatePending = errors.New("pending request of this kind already exists")

	// ErrRequestNotFound is returned when the request id does not exist.
	ErrRequestNotFound = errors.New("request not found")

	// ErrPatientNotFound is returned when the referenced patient does
	// not exist.
	ErrPatientNotFound = errors.New("patient not found")
)

// DuplicatePendingError carries the blocking request's identity.
type DuplicatePendingError struct {
	PatientID ledger.PatientID
	Kind      RequestKind
	Existing  RequestID
}

func (e *DuplicatePendingError) Error() string {
	return fmt.Sprintf("patient %s already has a pending %s request (%s)", e.PatientID, e.Kind, e.Existing)
}

func (e *DuplicatePendingError) Unwrap() error { return ErrDuplicatePending }

// IsClientError returns true if the error is due to invalid client input
// or a stale action, as opposed to a store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAlreadyResolved) ||
		errors.Is(err, ErrDuplicatePending)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrPatientNotFound)
}
