/*
ledger.go - Append-only financial log

PURPOSE:
  The Ledger is the immutable source of truth for every balance change.
  Every appointment accrual, deletion reversal, and abono is recorded
  here. saldoTotal and saldoPendiente are always computed by replaying
  entries - there is no mutable balance field that can drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, entries cannot be modified
  3. AUDITABLE: Every balance change is traceable with full context
  4. IDEMPOTENT: Same idempotency key = same entry (no duplicates)

CORRECTIONS:
  When a completed appointment is deleted, its accrual is not edited.
  Instead a reversal entry with the opposite sign is appended, linked by
  the appointment's reference ID. Both remain in the ledger; the net
  effect is the correction, but history is preserved. This is also why
  deletion round-trips balances exactly even if the professional's
  commission rate changed in between: the reversal negates the original
  entry instead of recomputing the split.

SEE ALSO:
  - store/sqlite: Production persistence
  - ledger/store: In-memory Store for tests
  - billing: Balance projection replaying these entries
*/
package ledger

import "context"

// =============================================================================
// LEDGER - Append-only entry log
// =============================================================================

// Ledger is the source of truth for professional balances.
//
// INVARIANTS:
//   - Append-only: No Update, No Delete. EVER.
//   - Immutable: Once written, entries cannot be modified.
//
// Corrections are made via reversal entries, not edits.
type Ledger interface {
	// Append adds an entry. Fails with ErrDuplicateIdempotencyKey if the
	// idempotency key exists. This is the ONLY write operation.
	Append(ctx context.Context, e Entry) error

	// Entries returns all entries for a professional in recording order
	// (the order operations actually happened, not EffectiveAt order).
	Entries(ctx context.Context, professionalID ProfessionalID) ([]Entry, error)

	// EntriesByReference returns entries linked to a source record
	// (e.g. all accruals and reversals for one appointment).
	EntriesByReference(ctx context.Context, referenceID string) ([]Entry, error)
}

// =============================================================================
// STORE - Persistence interface (append-only)
// =============================================================================

// Store handles persistence of entries.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// Append persists an entry. The single insert is the atomic unit:
	// balances are derived by replay, so no read-modify-write on stored
	// balances ever happens.
	Append(ctx context.Context, e Entry) error

	// Load returns all entries for a professional in recording order
	// (CreatedAt, then insertion order for ties). EffectiveAt is display
	// metadata and never drives replay.
	Load(ctx context.Context, professionalID ProfessionalID) ([]Entry, error)

	// LoadByReference returns all entries with the given reference ID.
	LoadByReference(ctx context.Context, referenceID string) ([]Entry, error)

	// Exists checks if an idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store Store
}

func New(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Append(ctx context.Context, e Entry) error {
	if e.IdempotencyKey != "" {
		exists, err := l.Store.Exists(ctx, e.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.Append(ctx, e)
}

func (l *DefaultLedger) Entries(ctx context.Context, professionalID ProfessionalID) ([]Entry, error) {
	return l.Store.Load(ctx, professionalID)
}

func (l *DefaultLedger) EntriesByReference(ctx context.Context, referenceID string) ([]Entry, error) {
	return l.Store.LoadByReference(ctx, referenceID)
}
