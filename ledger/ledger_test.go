package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solhealth/clinic-core/ledger"
	"github.com/solhealth/clinic-core/ledger/store"
)

func entry(id, key string, at time.Time) ledger.Entry {
	return ledger.Entry{
		ID:             ledger.EntryID(id),
		ProfessionalID: "prof-1",
		Type:           ledger.EntryAccrual,
		Gross:          ledger.NewMoney(100),
		InstituteShare: ledger.NewMoney(20),
		ReferenceID:    "appt-" + id,
		IdempotencyKey: key,
		EffectiveAt:    at,
		CreatedAt:      at,
	}
}

func TestLedger_Append_RejectsDuplicateIdempotencyKey(t *testing.T) {
	// GIVEN: An appended entry
	// WHEN: A second append reuses the idempotency key
	// THEN: ErrDuplicateIdempotencyKey; the ledger still has one entry

	l := ledger.New(store.NewMemory())
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, l.Append(ctx, entry("e-1", "complete:appt-1", now)))

	err := l.Append(ctx, entry("e-2", "complete:appt-1", now))
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)

	entries, err := l.Entries(ctx, "prof-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedger_Append_EmptyKeySkipsIdempotencyCheck(t *testing.T) {
	// GIVEN: Entries without idempotency keys
	// WHEN: Several are appended
	// THEN: All land - empty keys never collide

	l := ledger.New(store.NewMemory())
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, l.Append(ctx, entry("e-1", "", now)))
	require.NoError(t, l.Append(ctx, entry("e-2", "", now)))

	entries, err := l.Entries(ctx, "prof-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLedger_Entries_RecordingOrder(t *testing.T) {
	// GIVEN: Entries appended with effective dates newest-first
	// WHEN: Reading the ledger
	// THEN: Entries come back in the order they were recorded, not in
	//       EffectiveAt order

	l := ledger.New(store.NewMemory())
	ctx := context.Background()

	base := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(ctx, entry("e-3", "k3", base.AddDate(0, 0, 2))))
	require.NoError(t, l.Append(ctx, entry("e-1", "k1", base)))
	require.NoError(t, l.Append(ctx, entry("e-2", "k2", base.AddDate(0, 0, 1))))

	entries, err := l.Entries(ctx, "prof-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ledger.EntryID("e-3"), entries[0].ID)
	assert.Equal(t, ledger.EntryID("e-1"), entries[1].ID)
	assert.Equal(t, ledger.EntryID("e-2"), entries[2].ID)
}

func TestLedger_EntriesByReference(t *testing.T) {
	// GIVEN: An accrual and its reversal sharing a reference
	// WHEN: Loading by that reference
	// THEN: Both are returned; unrelated entries are not

	l := ledger.New(store.NewMemory())
	ctx := context.Background()
	now := time.Now().UTC()

	accrual := entry("e-1", "complete:appt-1", now)
	reversal := entry("e-2", "delete:appt-1", now)
	reversal.Type = ledger.EntryReversal
	reversal.ReferenceID = accrual.ReferenceID
	reversal.Gross = accrual.Gross.Neg()
	reversal.InstituteShare = accrual.InstituteShare.Neg()
	other := entry("e-3", "complete:appt-2", now)

	require.NoError(t, l.Append(ctx, accrual))
	require.NoError(t, l.Append(ctx, reversal))
	require.NoError(t, l.Append(ctx, other))

	entries, err := l.EntriesByReference(ctx, accrual.ReferenceID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// =============================================================================
// MONEY TESTS
// =============================================================================

func TestMoney_Round2_HalfUp(t *testing.T) {
	assert.Equal(t, "3.34", ledger.NewMoney(3.335).Round2().String())
	assert.Equal(t, "3.33", ledger.NewMoney(3.334).Round2().String())
	assert.Equal(t, "-3.34", ledger.NewMoney(-3.335).Round2().String())
}

func TestMoney_FloorZero(t *testing.T) {
	assert.Equal(t, "0.00", ledger.NewMoney(-5).FloorZero().String())
	assert.Equal(t, "5.00", ledger.NewMoney(5).FloorZero().String())
	assert.Equal(t, "0.00", ledger.Zero().FloorZero().String())
}

func TestMoney_ArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 == 0.3 exactly, which is the whole point of decimals.
	sum := ledger.NewMoney(0.1).Add(ledger.NewMoney(0.2))
	assert.True(t, sum.Equal(ledger.NewMoney(0.3)))
}
