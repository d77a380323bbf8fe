package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solhealth/clinic-core/billing"
	"github.com/solhealth/clinic-core/ledger"
	"github.com/solhealth/clinic-core/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T, opts billing.Options) (*billing.Engine, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := billing.NewEngine(ledger.New(store), store, nil, opts)
	return engine, store
}

func saveProfessional(t *testing.T, store *sqlite.Store, id string, commission float64) billing.ProfessionalAccount {
	p := billing.ProfessionalAccount{
		ID:         ledger.ProfessionalID(id),
		Name:       "Dr. " + id,
		Commission: billing.NewPercent(commission),
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.SaveProfessional(context.Background(), p))
	return p
}

func completedAppointment(id, profID string, attended bool, payment float64) billing.Appointment {
	now := time.Now().UTC()
	return billing.Appointment{
		ID:             ledger.AppointmentID(id),
		PatientID:      "pat-1",
		ProfessionalID: ledger.ProfessionalID(profID),
		Date:           now,
		Type:           billing.TypeRegular,
		Status:         billing.StatusCompleted,
		SessionCost:    ledger.NewMoney(payment),
		Attended:       attended,
		PaymentAmount:  ledger.NewMoney(payment),
		CompletedAt:    &now,
	}
}

// =============================================================================
// APPOINTMENT COMPLETION TESTS
// =============================================================================

func TestEngine_AttendedCompletion_AccruesRevenueAndCommission(t *testing.T) {
	// GIVEN: A professional with a 20% commission rate
	// WHEN: An attended appointment completes with a 100.00 payment
	// THEN: saldoTotal +100.00, saldoPendiente +20.00

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	balance, err := engine.OnAppointmentCompleted(ctx, completedAppointment("appt-1", "prof-1", true, 100))
	require.NoError(t, err)

	assert.Equal(t, "100.00", balance.SaldoTotal.String())
	assert.Equal(t, "20.00", balance.SaldoPendiente.String())
}

func TestEngine_Completion_IsIdempotentPerAppointment(t *testing.T) {
	// GIVEN: An appointment already reconciled
	// WHEN: The completion is processed again (e.g. a retried request)
	// THEN: The retry converges - same balance, no error, and still a
	//       single accrual entry

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	appt := completedAppointment("appt-1", "prof-1", true, 100)
	_, err := engine.OnAppointmentCompleted(ctx, appt)
	require.NoError(t, err)

	balance, err := engine.OnAppointmentCompleted(ctx, appt)
	require.NoError(t, err)
	assert.Equal(t, "100.00", balance.SaldoTotal.String())
	assert.Equal(t, "20.00", balance.SaldoPendiente.String())

	entries, err := store.Load(ctx, "prof-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEngine_NoShow_DefaultPolicy_RecordsNothing(t *testing.T) {
	// GIVEN: NoShowCommission disabled (the default)
	// WHEN: A no-show completes, even with a no-show fee collected
	// THEN: Balances are untouched and no ledger entry is written

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	appt := completedAppointment("appt-1", "prof-1", false, 0)
	appt.NoShowPaymentAmount = ledger.NewMoney(50)

	balance, err := engine.OnAppointmentCompleted(ctx, appt)
	require.NoError(t, err)

	assert.True(t, balance.SaldoTotal.IsZero())
	assert.True(t, balance.SaldoPendiente.IsZero())

	entries, err := engine.Statement(ctx, "prof-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEngine_NoShow_WithCommissionEnabled_AccruesFee(t *testing.T) {
	// GIVEN: NoShowCommission enabled
	// WHEN: A no-show completes with a 50.00 no-show fee
	// THEN: The fee accrues like regular revenue (+50.00 / +10.00 at 20%)

	engine, store := newTestEngine(t, billing.Options{NoShowCommission: true})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	appt := completedAppointment("appt-1", "prof-1", false, 0)
	appt.NoShowPaymentAmount = ledger.NewMoney(50)

	balance, err := engine.OnAppointmentCompleted(ctx, appt)
	require.NoError(t, err)

	assert.Equal(t, "50.00", balance.SaldoTotal.String())
	assert.Equal(t, "10.00", balance.SaldoPendiente.String())
}

func TestEngine_Completion_RejectsNonCompletedStatus(t *testing.T) {
	// GIVEN: An appointment still scheduled
	// WHEN: Reconciliation is attempted
	// THEN: Rejected; nothing reaches the ledger

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	appt := completedAppointment("appt-1", "prof-1", true, 100)
	appt.Status = billing.StatusScheduled

	_, err := engine.OnAppointmentCompleted(ctx, appt)
	assert.ErrorIs(t, err, ledger.ErrOutOfRange)
}

func TestEngine_Completion_UnknownProfessional(t *testing.T) {
	// GIVEN: No professional with the appointment's owner ID
	// WHEN: Reconciliation is attempted
	// THEN: ErrProfessionalNotFound

	engine, _ := newTestEngine(t, billing.Options{})

	_, err := engine.OnAppointmentCompleted(context.Background(),
		completedAppointment("appt-1", "ghost", true, 100))
	assert.ErrorIs(t, err, ledger.ErrProfessionalNotFound)
}

// =============================================================================
// APPOINTMENT DELETION TESTS
// =============================================================================

func TestEngine_Deletion_RestoresPreCompletionBalances(t *testing.T) {
	// GIVEN: Two reconciled appointments
	// WHEN: One is deleted
	// THEN: Balances return exactly to the values before its completion

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	appt1 := completedAppointment("appt-1", "prof-1", true, 100)
	appt2 := completedAppointment("appt-2", "prof-1", true, 74.99)
	_, err := engine.OnAppointmentCompleted(ctx, appt1)
	require.NoError(t, err)
	before, err := engine.Balance(ctx, "prof-1")
	require.NoError(t, err)
	_, err = engine.OnAppointmentCompleted(ctx, appt2)
	require.NoError(t, err)

	after, err := engine.OnAppointmentDeleted(ctx, appt2)
	require.NoError(t, err)

	assert.True(t, after.SaldoTotal.Equal(before.SaldoTotal),
		"saldoTotal %s != %s", after.SaldoTotal, before.SaldoTotal)
	assert.True(t, after.SaldoPendiente.Equal(before.SaldoPendiente),
		"saldoPendiente %s != %s", after.SaldoPendiente, before.SaldoPendiente)
}

func TestEngine_Deletion_SurvivesCommissionRateChange(t *testing.T) {
	// GIVEN: An appointment reconciled at 20%, then the rate raised to 35%
	// WHEN: The appointment is deleted
	// THEN: The reversal negates the original entry, so balances return
	//       to zero instead of drifting by the rate difference

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	_, err := engine.OnAppointmentCompleted(ctx, completedAppointment("appt-1", "prof-1", true, 100))
	require.NoError(t, err)

	require.NoError(t, store.UpdateCommission(ctx, "prof-1", billing.NewPercent(35)))

	balance, err := engine.OnAppointmentDeleted(ctx, completedAppointment("appt-1", "prof-1", true, 100))
	require.NoError(t, err)

	assert.True(t, balance.SaldoTotal.IsZero(), "saldoTotal = %s", balance.SaldoTotal)
	assert.True(t, balance.SaldoPendiente.IsZero(), "saldoPendiente = %s", balance.SaldoPendiente)
}

func TestEngine_Deletion_KeepsFullAuditTrail(t *testing.T) {
	// GIVEN: A reconciled appointment
	// WHEN: It is deleted
	// THEN: Both the accrual and the reversal remain in the ledger

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	appt := completedAppointment("appt-1", "prof-1", true, 100)
	_, err := engine.OnAppointmentCompleted(ctx, appt)
	require.NoError(t, err)
	_, err = engine.OnAppointmentDeleted(ctx, appt)
	require.NoError(t, err)

	entries, err := engine.Statement(ctx, "prof-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.EntryAccrual, entries[0].Type)
	assert.Equal(t, ledger.EntryReversal, entries[1].Type)
	assert.True(t, entries[1].Gross.Equal(entries[0].Gross.Neg()))
	assert.True(t, entries[1].InstituteShare.Equal(entries[0].InstituteShare.Neg()))
}

func TestEngine_Deletion_OfUnreconciledAppointment_IsNoOp(t *testing.T) {
	// GIVEN: An appointment that never accrued (e.g. still scheduled)
	// WHEN: It is deleted
	// THEN: No reversal is written; balances are unchanged

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	appt := completedAppointment("appt-9", "prof-1", true, 100)
	balance, err := engine.OnAppointmentDeleted(ctx, appt)
	require.NoError(t, err)

	assert.True(t, balance.SaldoTotal.IsZero())

	entries, err := engine.Statement(ctx, "prof-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEngine_Deletion_Twice_ReversesOnlyOnce(t *testing.T) {
	// GIVEN: A deleted appointment (accrual + reversal in the ledger)
	// WHEN: Deletion runs again
	// THEN: The net by reference is zero, so nothing more is appended

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	appt := completedAppointment("appt-1", "prof-1", true, 100)
	_, err := engine.OnAppointmentCompleted(ctx, appt)
	require.NoError(t, err)
	_, err = engine.OnAppointmentDeleted(ctx, appt)
	require.NoError(t, err)

	balance, err := engine.OnAppointmentDeleted(ctx, appt)
	require.NoError(t, err)
	assert.True(t, balance.SaldoTotal.IsZero())

	entries, err := engine.Statement(ctx, "prof-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestEngine_Deletion_AfterPartialAbono_FloorsPendingAtZero(t *testing.T) {
	// GIVEN: A reconciled appointment (pending 20.00) paid down to 5.00
	//        by a 15.00 abono
	// WHEN: The appointment is deleted, reversing the full -20.00 share
	// THEN: saldoPendiente floors at 0.00 rather than going negative,
	//       saldoTotal returns to zero, and all three entries remain

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	appt := completedAppointment("appt-1", "prof-1", true, 100)
	_, err := engine.OnAppointmentCompleted(ctx, appt)
	require.NoError(t, err)

	_, balance, err := engine.RecordAbono(ctx, "prof-1", ledger.NewMoney(15), time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, "5.00", balance.SaldoPendiente.String())

	balance, err = engine.OnAppointmentDeleted(ctx, appt)
	require.NoError(t, err)
	assert.Equal(t, "0.00", balance.SaldoTotal.String())
	assert.Equal(t, "0.00", balance.SaldoPendiente.String())

	entries, err := engine.Statement(ctx, "prof-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ledger.EntryAccrual, entries[0].Type)
	assert.Equal(t, ledger.EntryAbono, entries[1].Type)
	assert.Equal(t, ledger.EntryReversal, entries[2].Type)
}

// =============================================================================
// ABONO TESTS
// =============================================================================

func TestEngine_Abono_ReducesPendingDebtOnly(t *testing.T) {
	// GIVEN: saldoPendiente of 20.00 from a reconciled appointment
	// WHEN: An abono of 15.00 is recorded
	// THEN: saldoPendiente drops to 5.00; saldoTotal is untouched

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	_, err := engine.OnAppointmentCompleted(ctx, completedAppointment("appt-1", "prof-1", true, 100))
	require.NoError(t, err)

	abono, balance, err := engine.RecordAbono(ctx, "prof-1", ledger.NewMoney(15), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "15.00", abono.Amount.String())
	assert.Equal(t, "100.00", balance.SaldoTotal.String())
	assert.Equal(t, "5.00", balance.SaldoPendiente.String())
}

func TestEngine_Abono_BackdatedStillReducesDebt(t *testing.T) {
	// GIVEN: saldoPendiente of 20.00 from a reconciled appointment
	// WHEN: An abono of 15.00 is recorded with a date before the accrual
	// THEN: The payment still counts - replay runs in recording order,
	//       so the backdated abono pays down the debt outstanding now

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	_, err := engine.OnAppointmentCompleted(ctx, completedAppointment("appt-1", "prof-1", true, 100))
	require.NoError(t, err)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	abono, balance, err := engine.RecordAbono(ctx, "prof-1", ledger.NewMoney(15), yesterday)
	require.NoError(t, err)

	assert.Equal(t, yesterday, abono.Date)
	assert.Equal(t, "100.00", balance.SaldoTotal.String())
	assert.Equal(t, "5.00", balance.SaldoPendiente.String())
}

func TestEngine_Abono_OverpaymentFloorsAtZero(t *testing.T) {
	// GIVEN: saldoPendiente of 20.00
	// WHEN: An abono of 50.00 is recorded
	// THEN: saldoPendiente floors at 0.00; no credit is tracked

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	_, err := engine.OnAppointmentCompleted(ctx, completedAppointment("appt-1", "prof-1", true, 100))
	require.NoError(t, err)

	_, balance, err := engine.RecordAbono(ctx, "prof-1", ledger.NewMoney(50), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "0.00", balance.SaldoPendiente.String())
}

func TestEngine_Abono_OverpaymentDoesNotOffsetLaterDebt(t *testing.T) {
	// GIVEN: A 50.00 abono against a 20.00 debt (floored to zero)
	// WHEN: Another appointment accrues 20.00 of commission
	// THEN: saldoPendiente is the full 20.00 - the floor consumed the
	//       excess, it is not carried as credit

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	_, err := engine.OnAppointmentCompleted(ctx, completedAppointment("appt-1", "prof-1", true, 100))
	require.NoError(t, err)
	_, _, err = engine.RecordAbono(ctx, "prof-1", ledger.NewMoney(50), time.Now().UTC())
	require.NoError(t, err)

	balance, err := engine.OnAppointmentCompleted(ctx, completedAppointment("appt-2", "prof-1", true, 100))
	require.NoError(t, err)

	assert.Equal(t, "20.00", balance.SaldoPendiente.String())
}

func TestEngine_Abono_RejectsNonPositiveAmounts(t *testing.T) {
	// GIVEN: A professional
	// WHEN: Recording an abono of 0 or a negative amount
	// THEN: Rejected with InvalidAmountError; nothing reaches the ledger

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	for _, amount := range []float64{0, -10} {
		_, _, err := engine.RecordAbono(ctx, "prof-1", ledger.NewMoney(amount), time.Now().UTC())
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "amount=%v", amount)

		var invalidErr *ledger.InvalidAmountError
		assert.ErrorAs(t, err, &invalidErr)
	}

	entries, err := engine.Statement(ctx, "prof-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEngine_Abonos_ListsHistoryOldestFirst(t *testing.T) {
	// GIVEN: Two abonos on different dates
	// WHEN: Listing the history
	// THEN: Both appear, oldest first

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)

	jan := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC)
	_, _, err := engine.RecordAbono(ctx, "prof-1", ledger.NewMoney(10), feb)
	require.NoError(t, err)
	_, _, err = engine.RecordAbono(ctx, "prof-1", ledger.NewMoney(5), jan)
	require.NoError(t, err)

	abonos, err := engine.Abonos(ctx, "prof-1")
	require.NoError(t, err)
	require.Len(t, abonos, 2)
	assert.Equal(t, "5.00", abonos[0].Amount.String())
	assert.Equal(t, "10.00", abonos[1].Amount.String())
}

// =============================================================================
// AGGREGATE TESTS
// =============================================================================

func TestEngine_TotalDebt_SumsAcrossProfessionals(t *testing.T) {
	// GIVEN: Two professionals with debt and one with no history
	// WHEN: Computing the dashboard total
	// THEN: The sum covers all of them; the empty one contributes zero

	engine, store := newTestEngine(t, billing.Options{})
	ctx := context.Background()
	saveProfessional(t, store, "prof-1", 20)
	saveProfessional(t, store, "prof-2", 30)
	saveProfessional(t, store, "prof-3", 25)

	_, err := engine.OnAppointmentCompleted(ctx, completedAppointment("appt-1", "prof-1", true, 100))
	require.NoError(t, err)
	_, err = engine.OnAppointmentCompleted(ctx, completedAppointment("appt-2", "prof-2", true, 200))
	require.NoError(t, err)

	total, err := engine.TotalDebt(ctx)
	require.NoError(t, err)

	// 20.00 + 60.00 + 0.00
	assert.Equal(t, "80.00", total.String())
}

func TestEngine_Balance_UnknownProfessional(t *testing.T) {
	// GIVEN: No professional with the given ID
	// WHEN: Asking for a balance
	// THEN: ErrProfessionalNotFound (not a silent zero balance)

	engine, _ := newTestEngine(t, billing.Options{})

	_, err := engine.Balance(context.Background(), "ghost")
	assert.ErrorIs(t, err, ledger.ErrProfessionalNotFound)
}
