/*
balance.go - Balance projection from ledger entries

PURPOSE:
  Computes a professional's saldoTotal and saldoPendiente by replaying
  their ledger entries in order. This is the central calculation that
  answers "what does this professional owe the institute?"

KEY INSIGHT:
  Balances are a projection, not state. Any sequence of completions,
  deletions, and abonos produces the same balances no matter when the
  projection runs, and a deleted appointment's reversal entry negates
  the original accrual exactly - no rate-change drift.

FLOOR RULE:
  saldoPendiente never goes negative. The floor applies after every
  entry during replay, and replay runs in RECORDING order - the sequence
  operations actually happened - so each abono pays down exactly the
  debt that existed when it was recorded, even when its EffectiveAt is
  backdated. An abono larger than the current debt is accepted, but the
  excess is not tracked as a credit. EffectiveAt is display metadata
  only and never reorders the replay.
*/
package billing

import (
	"context"

	"github.com/solhealth/clinic-core/ledger"
)

// =============================================================================
// ACCOUNT BALANCE - Computed state
// =============================================================================

// AccountBalance is the replayed financial position of one professional.
type AccountBalance struct {
	ProfessionalID ledger.ProfessionalID

	// SaldoTotal: cumulative gross session revenue attributed to the
	// professional.
	SaldoTotal ledger.Money

	// SaldoPendiente: outstanding commission debt owed to the institute.
	SaldoPendiente ledger.Money
}

// Replay computes balances from entries, which must be in recording
// order (the order the ledger returns them).
func Replay(professionalID ledger.ProfessionalID, entries []ledger.Entry) AccountBalance {
	total := ledger.Zero()
	pending := ledger.Zero()

	for _, e := range entries {
		total = total.Add(e.Gross)
		pending = pending.Add(e.InstituteShare).FloorZero()
	}

	return AccountBalance{
		ProfessionalID: professionalID,
		SaldoTotal:     total.Round2(),
		SaldoPendiente: pending.Round2(),
	}
}

// =============================================================================
// BALANCE CALCULATOR
// =============================================================================

type BalanceCalculator struct {
	Ledger ledger.Ledger
}

func (bc *BalanceCalculator) Balance(ctx context.Context, professionalID ledger.ProfessionalID) (AccountBalance, error) {
	entries, err := bc.Ledger.Entries(ctx, professionalID)
	if err != nil {
		return AccountBalance{}, err
	}
	return Replay(professionalID, entries), nil
}
