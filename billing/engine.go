/*
engine.go - Balance reconciliation operations

PURPOSE:
  The Engine is called by the HTTP layer whenever an appointment is
  completed or deleted, or an abono is recorded. Each operation appends
  one immutable ledger entry; balances are replayed on read. Because no
  stored balance is ever read-modified-written, two back-to-back
  completions for the same professional cannot lose an update - the only
  write is an insert guarded by the idempotency unique index.

OPERATIONS:
  OnAppointmentCompleted: accrue revenue + institute commission share
  OnAppointmentDeleted:   append the exact negation of the accrual
  RecordAbono:            pay down commission debt (floored at zero)
  AggregateDebt:          dashboard sum of all pending debts

NO-SHOW POLICY:
  Whether no-show payments generate institute commission is genuinely
  unresolved product-side. It is an explicit option here
  (NoShowCommission) and defaults to off: an unattended completion
  records nothing unless the option is set, in which case the no-show
  payment is split like regular revenue.

SEE ALSO:
  - balance.go: The projection these operations feed
  - workflow: Request/approval side of the system
*/
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solhealth/clinic-core/activity"
	"github.com/solhealth/clinic-core/ledger"
)

// AccountStore provides professional lookups.
type AccountStore interface {
	GetProfessional(ctx context.Context, id ledger.ProfessionalID) (*ProfessionalAccount, error)
	ListProfessionals(ctx context.Context) ([]ProfessionalAccount, error)
}

// Options tune engine policy.
type Options struct {
	// NoShowCommission controls whether no-show payments accrue revenue
	// and institute commission. Off by default; pending product
	// clarification.
	NoShowCommission bool
}

type Engine struct {
	Ledger   ledger.Ledger
	Accounts AccountStore
	Notifier activity.Notifier
	Opts     Options
}

func NewEngine(l ledger.Ledger, accounts AccountStore, notifier activity.Notifier, opts Options) *Engine {
	if notifier == nil {
		notifier = activity.Discard{}
	}
	return &Engine{Ledger: l, Accounts: accounts, Notifier: notifier, Opts: opts}
}

// =============================================================================
// APPOINTMENT COMPLETION
// =============================================================================

// OnAppointmentCompleted accrues a completed appointment into the owning
// professional's ledger and returns the updated balance.
//
// Attended appointments accrue PaymentAmount as gross revenue plus the
// commission split. Unattended ones accrue nothing unless
// NoShowCommission is set, in which case NoShowPaymentAmount is treated
// like regular revenue.
//
// Idempotent per appointment: retries after a partial failure converge
// on a single accrual entry.
func (e *Engine) OnAppointmentCompleted(ctx context.Context, appt Appointment) (AccountBalance, error) {
	if err := appt.Validate(); err != nil {
		return AccountBalance{}, err
	}
	if appt.Status != StatusCompleted {
		return AccountBalance{}, fmt.Errorf("appointment %s is %s, not completed: %w",
			appt.ID, appt.Status, ledger.ErrOutOfRange)
	}

	prof, err := e.Accounts.GetProfessional(ctx, appt.ProfessionalID)
	if err != nil {
		return AccountBalance{}, err
	}
	if prof == nil {
		return AccountBalance{}, ledger.ErrProfessionalNotFound
	}

	var gross ledger.Money
	switch {
	case appt.Attended:
		gross = appt.PaymentAmount
	case e.Opts.NoShowCommission:
		gross = appt.NoShowPaymentAmount
	default:
		// No-show with commission disabled: no state change at all.
		return e.balance(ctx, appt.ProfessionalID)
	}

	split := ComputeSplit(gross, prof.Commission)

	effectiveAt := time.Now().UTC()
	if appt.CompletedAt != nil {
		effectiveAt = *appt.CompletedAt
	}

	entry := ledger.Entry{
		ID:             ledger.EntryID(uuid.NewString()),
		ProfessionalID: appt.ProfessionalID,
		Type:           ledger.EntryAccrual,
		Gross:          gross.Round2(),
		InstituteShare: split.InstituteShare,
		ReferenceID:    string(appt.ID),
		Reason:         "appointment completed",
		IdempotencyKey: "complete:" + string(appt.ID),
		EffectiveAt:    effectiveAt,
		CreatedAt:      time.Now().UTC(),
	}

	if err := e.Ledger.Append(ctx, entry); err != nil {
		if errors.Is(err, ledger.ErrDuplicateIdempotencyKey) {
			// Already accrued by an earlier attempt. Converge: the
			// existing entry stands, no second activity is emitted.
			return e.balance(ctx, appt.ProfessionalID)
		}
		return AccountBalance{}, err
	}

	balance, err := e.balance(ctx, appt.ProfessionalID)
	if err != nil {
		return AccountBalance{}, err
	}

	e.Notifier.Emit(ctx, activity.Activity{
		Type:        activity.TypeAppointmentCompleted,
		Title:       "Appointment completed",
		Description: fmt.Sprintf("%s collected %s (commission %s)", prof.Name, entry.Gross, entry.InstituteShare),
		Metadata: map[string]string{
			"appointmentId":    string(appt.ID),
			"patientId":        string(appt.PatientID),
			"professionalId":   string(appt.ProfessionalID),
			"professionalName": prof.Name,
			"amount":           entry.Gross.String(),
			"instituteShare":   entry.InstituteShare.String(),
		},
	})

	return balance, nil
}

// =============================================================================
// APPOINTMENT DELETION
// =============================================================================

// OnAppointmentDeleted reverses whatever the appointment previously
// accrued. The reversal negates the original entry rather than
// recomputing the split, so balances return exactly to their
// pre-completion values even if the commission rate changed in between.
// Deleting an appointment that never accrued is a no-op.
func (e *Engine) OnAppointmentDeleted(ctx context.Context, appt Appointment) (AccountBalance, error) {
	entries, err := e.Ledger.EntriesByReference(ctx, string(appt.ID))
	if err != nil {
		return AccountBalance{}, err
	}

	gross := ledger.Zero()
	share := ledger.Zero()
	for _, entry := range entries {
		gross = gross.Add(entry.Gross)
		share = share.Add(entry.InstituteShare)
	}

	// Net of accruals and any prior reversal. Zero means nothing to undo.
	if gross.IsZero() && share.IsZero() {
		return e.balance(ctx, appt.ProfessionalID)
	}

	reversal := ledger.Entry{
		ID:             ledger.EntryID(uuid.NewString()),
		ProfessionalID: appt.ProfessionalID,
		Type:           ledger.EntryReversal,
		Gross:          gross.Neg(),
		InstituteShare: share.Neg(),
		ReferenceID:    string(appt.ID),
		Reason:         "appointment deleted",
		IdempotencyKey: "delete:" + string(appt.ID),
		EffectiveAt:    time.Now().UTC(),
		CreatedAt:      time.Now().UTC(),
	}

	if err := e.Ledger.Append(ctx, reversal); err != nil {
		return AccountBalance{}, err
	}

	balance, err := e.balance(ctx, appt.ProfessionalID)
	if err != nil {
		return AccountBalance{}, err
	}

	e.Notifier.Emit(ctx, activity.Activity{
		Type:        activity.TypeAppointmentReversed,
		Title:       "Appointment reversed",
		Description: fmt.Sprintf("reversed %s of revenue for appointment %s", gross, appt.ID),
		Metadata: map[string]string{
			"appointmentId":  string(appt.ID),
			"professionalId": string(appt.ProfessionalID),
			"amount":         gross.String(),
		},
	})

	return balance, nil
}

// =============================================================================
// ABONOS
// =============================================================================

// RecordAbono records a payment toward the professional's commission
// debt and returns the created abono with the updated balance. The
// projection floors saldoPendiente at zero: overpayment is accepted but
// not tracked as credit.
func (e *Engine) RecordAbono(ctx context.Context, professionalID ledger.ProfessionalID, amount ledger.Money, date time.Time) (Abono, AccountBalance, error) {
	if !amount.IsPositive() {
		return Abono{}, AccountBalance{}, &ledger.InvalidAmountError{Field: "amount", Amount: amount}
	}

	prof, err := e.Accounts.GetProfessional(ctx, professionalID)
	if err != nil {
		return Abono{}, AccountBalance{}, err
	}
	if prof == nil {
		return Abono{}, AccountBalance{}, ledger.ErrProfessionalNotFound
	}

	if date.IsZero() {
		date = time.Now().UTC()
	}

	id := uuid.NewString()
	entry := ledger.Entry{
		ID:             ledger.EntryID(id),
		ProfessionalID: professionalID,
		Type:           ledger.EntryAbono,
		Gross:          ledger.Zero(),
		InstituteShare: amount.Round2().Neg(),
		ReferenceID:    id,
		Reason:         "abono",
		IdempotencyKey: "abono:" + id,
		// Display date only. A backdated abono still replays at its
		// recording position, paying down the debt outstanding now.
		EffectiveAt: date,
		CreatedAt:   time.Now().UTC(),
	}

	if err := e.Ledger.Append(ctx, entry); err != nil {
		return Abono{}, AccountBalance{}, err
	}

	balance, err := e.balance(ctx, professionalID)
	if err != nil {
		return Abono{}, AccountBalance{}, err
	}

	abono := AbonoFromEntry(entry)

	e.Notifier.Emit(ctx, activity.Activity{
		Type:        activity.TypeAbonoRecorded,
		Title:       "Abono recorded",
		Description: fmt.Sprintf("%s paid %s toward commission debt", prof.Name, abono.Amount),
		Metadata: map[string]string{
			"abonoId":          abono.ID,
			"professionalId":   string(professionalID),
			"professionalName": prof.Name,
			"amount":           abono.Amount.String(),
		},
	})

	return abono, balance, nil
}

// Abonos lists the professional's recorded abonos, oldest first.
func (e *Engine) Abonos(ctx context.Context, professionalID ledger.ProfessionalID) ([]Abono, error) {
	entries, err := e.Ledger.Entries(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	var abonos []Abono
	for _, entry := range entries {
		if entry.Type == ledger.EntryAbono {
			abonos = append(abonos, AbonoFromEntry(entry))
		}
	}
	return abonos, nil
}

// =============================================================================
// READS
// =============================================================================

// Balance returns the professional's replayed financial position.
func (e *Engine) Balance(ctx context.Context, professionalID ledger.ProfessionalID) (AccountBalance, error) {
	prof, err := e.Accounts.GetProfessional(ctx, professionalID)
	if err != nil {
		return AccountBalance{}, err
	}
	if prof == nil {
		return AccountBalance{}, ledger.ErrProfessionalNotFound
	}
	return e.balance(ctx, professionalID)
}

func (e *Engine) balance(ctx context.Context, professionalID ledger.ProfessionalID) (AccountBalance, error) {
	calc := BalanceCalculator{Ledger: e.Ledger}
	return calc.Balance(ctx, professionalID)
}

// Statement returns the professional's full ledger history, oldest
// first. Backs the financial dashboard drill-down.
func (e *Engine) Statement(ctx context.Context, professionalID ledger.ProfessionalID) ([]ledger.Entry, error) {
	return e.Ledger.Entries(ctx, professionalID)
}

// AggregateDebt sums saldoPendiente across professionals for the
// dashboard total. Professionals with no ledger history contribute zero.
func (e *Engine) AggregateDebt(ctx context.Context, professionals []ProfessionalAccount) (ledger.Money, error) {
	total := ledger.Zero()
	for _, p := range professionals {
		balance, err := e.balance(ctx, p.ID)
		if err != nil {
			return ledger.Zero(), err
		}
		total = total.Add(balance.SaldoPendiente)
	}
	return total.Round2(), nil
}

// TotalDebt is AggregateDebt over every known professional.
func (e *Engine) TotalDebt(ctx context.Context) (ledger.Money, error) {
	professionals, err := e.Accounts.ListProfessionals(ctx)
	if err != nil {
		return ledger.Zero(), err
	}
	return e.AggregateDebt(ctx, professionals)
}
