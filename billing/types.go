/*
Package billing implements the balance/commission reconciliation engine.

PURPOSE:
  Keeps a professional's saldoTotal (cumulative gross session revenue)
  and saldoPendiente (outstanding commission debt to the institute)
  consistent with the set of completed, attended appointments and the
  abonos recorded against that debt.

  Balances are not stored: they are a projection replayed from the
  ledger (see balance.go), so completion, deletion, and abono recording
  each reduce to appending a single immutable entry.

KEY CONCEPTS IN THIS FILE (types.go):
  - Appointment with an explicit status lifecycle
  - ProfessionalAccount with its commission percentage
  - Abono, the payment-toward-debt view derived from abono entries

SEE ALSO:
  - commission.go: Revenue split between institute and professional
  - engine.go: The reconciliation operations
  - balance.go: Projection from ledger entries
*/
package billing

import (
	"fmt"
	"time"

	"github.com/solhealth/clinic-core/ledger"
)

// =============================================================================
// APPOINTMENT
// =============================================================================

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is a known status. Keep the switch exhaustive:
// adding a status must be a compile-visible change here, not a stray
// string compare elsewhere.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the lifecycle ends at s.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled:
		return true
	case StatusScheduled:
		return false
	}
	return false
}

type AppointmentType string

const (
	TypeRegular   AppointmentType = "regular"
	TypeFirstTime AppointmentType = "first_time"
	TypeEmergency AppointmentType = "emergency"
)

// Appointment is a session between a patient and a professional.
// Created scheduled; moves exactly once to completed (stamping
// CompletedAt, Attended, PaymentAmount) or cancelled.
type Appointment struct {
	ID             ledger.AppointmentID
	PatientID      ledger.PatientID
	ProfessionalID ledger.ProfessionalID

	Date      time.Time
	StartTime string
	EndTime   string
	Type      AppointmentType
	Status    AppointmentStatus

	SessionCost ledger.Money

	// Meaningful only once Status is completed.
	Attended            bool
	PaymentAmount       ledger.Money
	NoShowPaymentAmount ledger.Money
	CompletedAt         *time.Time
}

// AmountCollected is what was actually collected for this appointment.
func (a Appointment) AmountCollected() ledger.Money {
	if a.Attended {
		return a.PaymentAmount
	}
	return a.NoShowPaymentAmount
}

// RemainingBalance is always derived, never stored or edited directly.
// Negative means the patient overpaid and holds a credit.
func (a Appointment) RemainingBalance() ledger.Money {
	return a.SessionCost.Sub(a.AmountCollected()).Round2()
}

// Validate checks the invariants an appointment record must hold before
// any reconciliation operation touches it.
func (a Appointment) Validate() error {
	if !a.Status.Valid() {
		return fmt.Errorf("unknown appointment status %q: %w", a.Status, ledger.ErrOutOfRange)
	}
	if a.SessionCost.IsNegative() {
		return &ledger.InvalidAmountError{Field: "sessionCost", Amount: a.SessionCost}
	}
	if a.PaymentAmount.IsNegative() {
		return &ledger.InvalidAmountError{Field: "paymentAmount", Amount: a.PaymentAmount}
	}
	if a.NoShowPaymentAmount.IsNegative() {
		return &ledger.InvalidAmountError{Field: "noShowPaymentAmount", Amount: a.NoShowPaymentAmount}
	}
	return nil
}

// =============================================================================
// PROFESSIONAL ACCOUNT
// =============================================================================

// ProfessionalAccount is the billing-relevant subset of a professional.
// It carries no balance fields: saldoTotal and saldoPendiente live in
// the ledger projection.
type ProfessionalAccount struct {
	ID         ledger.ProfessionalID
	Name       string
	Commission Percent
	CreatedAt  time.Time
}

// =============================================================================
// ABONO - Payment toward commission debt
// =============================================================================

// Abono is a partial payment by a professional toward their accrued
// commission debt. Immutable once recorded; there is no update or
// delete. The record is the abono ledger entry itself, surfaced in this
// shape for the dashboard.
type Abono struct {
	ID             string
	ProfessionalID ledger.ProfessionalID
	Amount         ledger.Money
	Date           time.Time
}

// AbonoFromEntry projects a ledger entry of type EntryAbono.
func AbonoFromEntry(e ledger.Entry) Abono {
	return Abono{
		ID:             string(e.ID),
		ProfessionalID: e.ProfessionalID,
		Amount:         e.InstituteShare.Neg().Round2(),
		Date:           e.EffectiveAt,
	}
}
