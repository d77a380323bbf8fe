/*
Package ledger provides the financial ledger at the core of the clinic
accounting engine.

PURPOSE:
  This package contains the primitives shared by the billing and workflow
  components: exact money arithmetic, immutable ledger entries, and the
  append-only persistence contract. A professional's balances are never
  stored as mutable fields; they are always recomputed by replaying the
  entries recorded here.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal amount rounded half-up to 2 places at the boundaries
  - Entry: An immutable ledger record (accrual, reversal, or abono)
  - ProfessionalID / PatientID / AppointmentID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Entries are never modified, only reversed
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Auditability: Every entry carries a reference, reason, and
     idempotency key

SEE ALSO:
  - ledger.go: Append-only ledger over the Store interface
  - errors.go: Sentinel errors shared across the engine
  - billing: Commission split and balance projection built on entries
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal currency amount
// =============================================================================

// Money is a currency amount. Arithmetic is exact; call Round2 before
// persisting or serializing so stored values are stable under
// recomputation.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func Zero() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(b Money) Money        { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money        { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Neg() Money               { return Money{Value: m.Value.Neg()} }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) Equal(b Money) bool       { return m.Value.Equal(b.Value) }
func (m Money) GreaterThan(b Money) bool { return m.Value.GreaterThan(b.Value) }
func (m Money) LessThan(b Money) bool    { return m.Value.LessThan(b.Value) }

// Round2 rounds half-up to 2 decimal places. Applied at persistence and
// presentation boundaries; intermediate arithmetic stays exact.
func (m Money) Round2() Money { return Money{Value: m.Value.Round(2)} }

// FloorZero clamps negative amounts to zero. Used by the pending-debt
// projection: excess abono payments are accepted but never tracked as a
// credit.
func (m Money) FloorZero() Money {
	if m.Value.IsNegative() {
		return Zero()
	}
	return m
}

func (m Money) Float64() float64 {
	f, _ := m.Value.Float64()
	return f
}

func (m Money) String() string { return m.Value.StringFixed(2) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntryID string
type ProfessionalID string
type PatientID string
type AppointmentID string

// =============================================================================
// ENTRY - Immutable ledger record
// =============================================================================

type EntryType string

const (
	// EntryAccrual records revenue from a completed appointment:
	// a positive Gross delta and the institute's commission share.
	EntryAccrual EntryType = "accrual"

	// EntryReversal is the exact negation of a prior accrual, recorded
	// when a completed appointment is deleted. The original entry stays
	// in the ledger.
	EntryReversal EntryType = "reversal"

	// EntryAbono records a payment by a professional toward their
	// commission debt: Gross is zero, InstituteShare is negative.
	EntryAbono EntryType = "abono"
)

// Entry is one row of a professional's financial ledger.
//
// Gross is the delta applied to saldoTotal (cumulative session revenue).
// InstituteShare is the delta applied to saldoPendiente (outstanding
// commission debt). Both are signed; reversals carry the negation of the
// entry they undo.
type Entry struct {
	ID             EntryID
	ProfessionalID ProfessionalID
	Type           EntryType
	Gross          Money
	InstituteShare Money

	// ReferenceID links the entry to its source: an appointment ID for
	// accruals and reversals, the entry's own ID for abonos.
	ReferenceID string

	Reason         string
	IdempotencyKey string
	Metadata       map[string]string

	EffectiveAt time.Time
	CreatedAt   time.Time
}
