/*
Package workflow implements the change-request approval machine.

PURPOSE:
  Professionals request changes to a patient's status or session
  frequency; an admin approves or rejects. One generic state machine
  serves both request kinds:

      pending ──▶ approved  (terminal, applies the patient side effect)
      pending ──▶ rejected  (terminal)

  No other transition exists. Resolving a non-pending request fails with
  ErrAlreadyResolved - never a silent double-application - because the
  notification-driven UI can race: a stale notification may be acted on
  after the request was resolved elsewhere.

SINGLE-PENDING INVARIANT:
  At most one pending request of a given kind may exist per patient.
  Enforced here at creation time and again by the store's conditional
  transition (and, in SQLite, a partial unique index).

SEE ALSO:
  - workflow.go: Service orchestrating the lifecycle
  - activity: Notifications emitted on every transition
*/
package workflow

import (
	"time"

	"github.com/solhealth/clinic-core/ledger"
)

// =============================================================================
// REQUEST
// =============================================================================

type RequestID string

type RequestKind string

const (
	KindStatusChange    RequestKind = "status_change"
	KindFrequencyChange RequestKind = "frequency_change"
)

func (k RequestKind) Valid() bool {
	switch k {
	case KindStatusChange, KindFrequencyChange:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func (d Decision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionRejected:
		return true
	}
	return false
}

// Request is one change request. CurrentValue is captured from the
// patient record at creation time; RequestedValue is a PatientStatus or
// SessionFrequency depending on Kind.
type Request struct {
	ID             RequestID
	Kind           RequestKind
	PatientID      ledger.PatientID
	ProfessionalID ledger.ProfessionalID

	CurrentValue   string
	RequestedValue string
	Reason         string

	Status        RequestStatus
	AdminResponse string

	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// =============================================================================
// PATIENT
// =============================================================================

type PatientStatus string

const (
	PatientActive   PatientStatus = "active"
	PatientInactive PatientStatus = "inactive"
)

func (s PatientStatus) Valid() bool {
	switch s {
	case PatientActive, PatientInactive:
		return true
	}
	return false
}

type SessionFrequency string

const (
	FrequencyWeekly   SessionFrequency = "weekly"
	FrequencyBiweekly SessionFrequency = "biweekly"
	FrequencyMonthly  SessionFrequency = "monthly"
)

func (f SessionFrequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// Patient carries the fields approval side effects touch.
type Patient struct {
	ID               ledger.PatientID
	Name             string
	Status           PatientStatus
	SessionFrequency SessionFrequency

	// Stamped once, the first time the patient is activated through an
	// approved status-change request.
	ActivatedAt *time.Time

	CreatedAt time.Time
}
