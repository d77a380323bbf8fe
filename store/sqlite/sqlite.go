/*
Package sqlite provides the SQLite-backed implementation of every
storage interface in the system.

PURPOSE:
  One Store implements ledger.Store, billing.AccountStore,
  workflow.RequestStore, workflow.PatientStore, and activity.Feed, plus
  the appointment persistence the API layer needs. In production the
  same patterns apply to PostgreSQL - only minor dialect differences.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statement ever touches ledger_entries. Corrections
  are reversal entries appended by the billing engine.

CONCURRENCY DISCIPLINE:
  Balance arithmetic never read-modifies-writes a stored value: the only
  financial write is an INSERT guarded by the idempotency unique index,
  and balances are replayed on read. The remaining check-then-act spots
  are protected in SQL:
    - request resolution: UPDATE ... WHERE status = 'pending' with an
      affected-row check, so two concurrent approvals resolve once
    - appointment completion: UPDATE ... WHERE status = 'scheduled'
    - single pending request per patient+kind: partial unique index

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/clinic.db")   // or ":memory:"

SEE ALSO:
  - ledger/store/memory.go: In-memory ledger store for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/solhealth/clinic-core/activity"
	"github.com/solhealth/clinic-core/billing"
	"github.com/solhealth/clinic-core/ledger"
	"github.com/solhealth/clinic-core/workflow"
)

// timeFormat is a fixed-width RFC 3339 layout. Fixed width keeps
// lexicographic TEXT comparison identical to chronological order, and
// nanosecond precision keeps entries written in the same second in
// insertion order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) a SQLite store. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Ledger entries (append-only)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		professional_id TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		gross TEXT NOT NULL,
		institute_share TEXT NOT NULL,
		reference_id TEXT,
		reason TEXT,
		idempotency_key TEXT UNIQUE,
		metadata_json TEXT,
		effective_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Balance replay (hot path)
	CREATE INDEX IF NOT EXISTS idx_ledger_professional_recorded
		ON ledger_entries(professional_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_ledger_reference
		ON ledger_entries(reference_id) WHERE reference_id IS NOT NULL;

	-- Professionals
	CREATE TABLE IF NOT EXISTS professionals (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		commission TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Patients
	CREATE TABLE IF NOT EXISTS patients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		session_frequency TEXT NOT NULL,
		activated_at TEXT,
		created_at TEXT NOT NULL
	);

	-- Appointments
	CREATE TABLE IF NOT EXISTS appointments (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		professional_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT,
		end_time TEXT,
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		session_cost TEXT NOT NULL,
		attended BOOLEAN DEFAULT FALSE,
		payment_amount TEXT NOT NULL DEFAULT '0',
		no_show_payment_amount TEXT NOT NULL DEFAULT '0',
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_appointments_professional
		ON appointments(professional_id, date);
	CREATE INDEX IF NOT EXISTS idx_appointments_patient
		ON appointments(patient_id, date);
	CREATE INDEX IF NOT EXISTS idx_appointments_status
		ON appointments(status);

	-- Change requests (approval workflow)
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		patient_id TEXT NOT NULL,
		professional_id TEXT NOT NULL,
		current_value TEXT NOT NULL,
		requested_value TEXT NOT NULL,
		reason TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		admin_response TEXT,
		created_at TEXT NOT NULL,
		resolved_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);

	-- CRITICAL: at most one pending request per patient per kind
	CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_single_pending
		ON requests(patient_id, kind)
		WHERE status = 'pending';

	-- Activity feed
	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		date TEXT NOT NULL,
		read BOOLEAN DEFAULT FALSE,
		metadata_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_activities_date
		ON activities(date DESC);
	CREATE INDEX IF NOT EXISTS idx_activities_unread
		ON activities(read) WHERE read = FALSE;
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// Append adds an entry to the ledger. The single INSERT is the atomic
// unit of every reconciliation operation.
func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadataJSON, _ := json.Marshal(e.Metadata)

	query := `
		INSERT INTO ledger_entries
		(id, professional_id, entry_type, gross, institute_share,
		 reference_id, reason, idempotency_key, metadata_json, effective_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.ProfessionalID,
		e.Type,
		e.Gross.Value.String(),
		e.InstituteShare.Value.String(),
		nullString(e.ReferenceID),
		e.Reason,
		nullString(e.IdempotencyKey),
		string(metadataJSON),
		e.EffectiveAt.Format(timeFormat),
		createdAt.Format(timeFormat),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, professionalID ledger.ProfessionalID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, professional_id, entry_type, gross, institute_share,
		       reference_id, reason, idempotency_key, metadata_json, effective_at, created_at
		FROM ledger_entries
		WHERE professional_id = ?
		ORDER BY created_at ASC, rowid ASC
	`
	return s.queryEntries(ctx, query, professionalID)
}

func (s *Store) LoadByReference(ctx context.Context, referenceID string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, professional_id, entry_type, gross, institute_share,
		       reference_id, reason, idempotency_key, metadata_json, effective_at, created_at
		FROM ledger_entries
		WHERE reference_id = ?
		ORDER BY created_at ASC, rowid ASC
	`
	return s.queryEntries(ctx, query, referenceID)
}

func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ledger_entries WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			e                           ledger.Entry
			gross, share                string
			referenceID, reason         sql.NullString
			idempotencyKey, metadataStr sql.NullString
			effectiveAt, createdAt      string
		)
		if err := rows.Scan(
			&e.ID, &e.ProfessionalID, &e.Type, &gross, &share,
			&referenceID, &reason, &idempotencyKey, &metadataStr, &effectiveAt, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		e.Gross = ledger.MustParseMoney(gross)
		e.InstituteShare = ledger.MustParseMoney(share)
		e.ReferenceID = referenceID.String
		e.Reason = reason.String
		e.IdempotencyKey = idempotencyKey.String
		e.EffectiveAt, _ = time.Parse(time.RFC3339, effectiveAt)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if metadataStr.Valid && metadataStr.String != "" {
			json.Unmarshal([]byte(metadataStr.String), &e.Metadata)
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// PROFESSIONAL STORE (billing.AccountStore interface)
// =============================================================================

func (s *Store) SaveProfessional(ctx context.Context, p billing.ProfessionalAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO professionals (id, name, commission, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			commission = excluded.commission
	`

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Commission.Decimal().String(),
		createdAt.Format(timeFormat),
	)
	return err
}

func (s *Store) GetProfessional(ctx context.Context, id ledger.ProfessionalID) (*billing.ProfessionalAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p                     billing.ProfessionalAccount
		commission, createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, commission, created_at FROM professionals WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &commission, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.Commission = billing.NewPercentFromDecimal(ledger.MustParseMoney(commission).Value)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (s *Store) ListProfessionals(ctx context.Context) ([]billing.ProfessionalAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, commission, created_at FROM professionals ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var professionals []billing.ProfessionalAccount
	for rows.Next() {
		var (
			p                     billing.ProfessionalAccount
			commission, createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &commission, &createdAt); err != nil {
			return nil, err
		}
		p.Commission = billing.NewPercentFromDecimal(ledger.MustParseMoney(commission).Value)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		professionals = append(professionals, p)
	}
	return professionals, rows.Err()
}

// UpdateCommission changes the professional's rate. Non-retroactive:
// past ledger entries keep the shares computed at their time.
func (s *Store) UpdateCommission(ctx context.Context, id ledger.ProfessionalID, commission billing.Percent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE professionals SET commission = ? WHERE id = ?",
		commission.Decimal().String(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrProfessionalNotFound
	}
	return nil
}

// =============================================================================
// PATIENT STORE (workflow.PatientStore interface)
// =============================================================================

func (s *Store) SavePatient(ctx context.Context, p workflow.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO patients (id, name, status, session_frequency, activated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			session_frequency = excluded.session_frequency,
			activated_at = excluded.activated_at
	`

	var activatedAt *string
	if p.ActivatedAt != nil {
		t := p.ActivatedAt.Format(timeFormat)
		activatedAt = &t
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Status, p.SessionFrequency,
		activatedAt, createdAt.Format(timeFormat),
	)
	return err
}

func (s *Store) GetPatient(ctx context.Context, id ledger.PatientID) (*workflow.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p           workflow.Patient
		activatedAt sql.NullString
		createdAt   string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, status, session_frequency, activated_at, created_at FROM patients WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &p.Status, &p.SessionFrequency, &activatedAt, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if activatedAt.Valid {
		t, _ := time.Parse(time.RFC3339, activatedAt.String)
		p.ActivatedAt = &t
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (s *Store) ListPatients(ctx context.Context) ([]workflow.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, status, session_frequency, activated_at, created_at FROM patients ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []workflow.Patient
	for rows.Next() {
		var (
			p           workflow.Patient
			activatedAt sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Status, &p.SessionFrequency, &activatedAt, &createdAt); err != nil {
			return nil, err
		}
		if activatedAt.Valid {
			t, _ := time.Parse(time.RFC3339, activatedAt.String)
			p.ActivatedAt = &t
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// =============================================================================
// APPOINTMENT STORE
// =============================================================================

func (s *Store) SaveAppointment(ctx context.Context, a billing.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO appointments
		(id, patient_id, professional_id, date, start_time, end_time, type, status,
		 session_cost, attended, payment_amount, no_show_payment_amount, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			type = excluded.type,
			status = excluded.status,
			session_cost = excluded.session_cost,
			attended = excluded.attended,
			payment_amount = excluded.payment_amount,
			no_show_payment_amount = excluded.no_show_payment_amount,
			completed_at = excluded.completed_at
	`

	var completedAt *string
	if a.CompletedAt != nil {
		t := a.CompletedAt.Format(timeFormat)
		completedAt = &t
	}

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.PatientID, a.ProfessionalID,
		a.Date.Format(timeFormat),
		a.StartTime, a.EndTime, a.Type, a.Status,
		a.SessionCost.Value.String(),
		a.Attended,
		a.PaymentAmount.Value.String(),
		a.NoShowPaymentAmount.Value.String(),
		completedAt,
		time.Now().UTC().Format(timeFormat),
	)
	return err
}

func (s *Store) GetAppointment(ctx context.Context, id ledger.AppointmentID) (*billing.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appointments, err := s.queryAppointments(ctx, appointmentSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(appointments) == 0 {
		return nil, nil
	}
	return &appointments[0], nil
}

func (s *Store) ListAppointmentsByProfessional(ctx context.Context, professionalID ledger.ProfessionalID) ([]billing.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAppointments(ctx,
		appointmentSelect+" WHERE professional_id = ? ORDER BY date ASC", professionalID)
}

// CompleteAppointment transitions scheduled → completed, stamping the
// completion fields. The conditional UPDATE is the staleness guard: the
// first completion wins, and a retry against an already-completed
// appointment returns the stored record unchanged so callers can
// converge on the reconciliation. Completing a cancelled appointment
// is an error.
func (s *Store) CompleteAppointment(
	ctx context.Context,
	id ledger.AppointmentID,
	attended bool,
	payment, noShowPayment ledger.Money,
	completedAt time.Time,
) (*billing.Appointment, error) {
	s.mu.Lock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE appointments
		SET status = 'completed', attended = ?, payment_amount = ?,
		    no_show_payment_amount = ?, completed_at = ?
		WHERE id = ? AND status = 'scheduled'
	`,
		attended,
		payment.Round2().Value.String(),
		noShowPayment.Round2().Value.String(),
		completedAt.Format(timeFormat),
		id,
	)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	affected, err := res.RowsAffected()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if affected == 0 {
		existing, err := s.GetAppointment(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ledger.ErrAppointmentNotFound
		}
		if existing.Status == billing.StatusCompleted {
			// Retry path. The stored completion stands; the caller
			// re-runs the idempotency-keyed reconciliation against it.
			return existing, nil
		}
		return nil, fmt.Errorf("appointment %s is %s, not scheduled: %w",
			id, existing.Status, ledger.ErrOutOfRange)
	}

	return s.GetAppointment(ctx, id)
}

// CancelAppointment transitions scheduled → cancelled.
func (s *Store) CancelAppointment(ctx context.Context, id ledger.AppointmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE appointments SET status = 'cancelled' WHERE id = ? AND status = 'scheduled'", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrAppointmentNotFound
	}
	return nil
}

// DeleteAppointment removes the appointment row. The billing engine
// appends the ledger reversal first; the ledger rows referencing the
// appointment stay, as the audit trail.
func (s *Store) DeleteAppointment(ctx context.Context, id ledger.AppointmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM appointments WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrAppointmentNotFound
	}
	return nil
}

const appointmentSelect = `
	SELECT id, patient_id, professional_id, date, start_time, end_time, type, status,
	       session_cost, attended, payment_amount, no_show_payment_amount, completed_at
	FROM appointments
`

func (s *Store) queryAppointments(ctx context.Context, query string, args ...any) ([]billing.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appointments []billing.Appointment
	for rows.Next() {
		var (
			a                     billing.Appointment
			date                  string
			startTime, endTime    sql.NullString
			cost, payment, noShow string
			completedAt           sql.NullString
		)
		if err := rows.Scan(
			&a.ID, &a.PatientID, &a.ProfessionalID, &date, &startTime, &endTime,
			&a.Type, &a.Status, &cost, &a.Attended, &payment, &noShow, &completedAt,
		); err != nil {
			return nil, err
		}

		a.Date, _ = time.Parse(time.RFC3339, date)
		a.StartTime = startTime.String
		a.EndTime = endTime.String
		a.SessionCost = ledger.MustParseMoney(cost)
		a.PaymentAmount = ledger.MustParseMoney(payment)
		a.NoShowPaymentAmount = ledger.MustParseMoney(noShow)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			a.CompletedAt = &t
		}

		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

// =============================================================================
// REQUEST STORE (workflow.RequestStore interface)
// =============================================================================

func (s *Store) SaveRequest(ctx context.Context, r workflow.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO requests
		(id, kind, patient_id, professional_id, current_value, requested_value,
		 reason, status, admin_response, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var resolvedAt *string
	if r.ResolvedAt != nil {
		t := r.ResolvedAt.Format(timeFormat)
		resolvedAt = &t
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Kind, r.PatientID, r.ProfessionalID,
		r.CurrentValue, r.RequestedValue, r.Reason, r.Status,
		nullString(r.AdminResponse),
		r.CreatedAt.Format(timeFormat),
		resolvedAt,
	)
	if err != nil && isUniqueConstraintError(err) {
		// Partial unique index on (patient_id, kind) WHERE pending.
		return &workflow.DuplicatePendingError{PatientID: r.PatientID, Kind: r.Kind}
	}
	return err
}

func (s *Store) GetRequest(ctx context.Context, id workflow.RequestID) (*workflow.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests, err := s.queryRequests(ctx, requestSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	return &requests[0], nil
}

func (s *Store) PendingRequest(ctx context.Context, patientID ledger.PatientID, kind workflow.RequestKind) (*workflow.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests, err := s.queryRequests(ctx,
		requestSelect+" WHERE patient_id = ? AND kind = ? AND status = 'pending' LIMIT 1",
		patientID, kind)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	return &requests[0], nil
}

func (s *Store) PendingRequests(ctx context.Context) ([]workflow.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRequests(ctx,
		requestSelect+" WHERE status = 'pending' ORDER BY created_at ASC")
}

// Transition conditionally resolves a pending request. The WHERE clause
// is the whole point: the losing call of a race sees zero affected rows
// and the workflow surfaces ErrAlreadyResolved.
func (s *Store) Transition(ctx context.Context, id workflow.RequestID, to workflow.RequestStatus, adminResponse string, resolvedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE requests
		SET status = ?, admin_response = ?, resolved_at = ?
		WHERE id = ? AND status = 'pending'
	`,
		to, nullString(adminResponse), resolvedAt.Format(timeFormat), id,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

const requestSelect = `
	SELECT id, kind, patient_id, professional_id, current_value, requested_value,
	       reason, status, admin_response, created_at, resolved_at
	FROM requests
`

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]workflow.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []workflow.Request
	for rows.Next() {
		var (
			r                     workflow.Request
			reason, adminResponse sql.NullString
			createdAt             string
			resolvedAt            sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.Kind, &r.PatientID, &r.ProfessionalID,
			&r.CurrentValue, &r.RequestedValue, &reason, &r.Status,
			&adminResponse, &createdAt, &resolvedAt,
		); err != nil {
			return nil, err
		}

		r.Reason = reason.String
		r.AdminResponse = adminResponse.String
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if resolvedAt.Valid {
			t, _ := time.Parse(time.RFC3339, resolvedAt.String)
			r.ResolvedAt = &t
		}

		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// =============================================================================
// ACTIVITY FEED (activity.Feed interface)
// =============================================================================

func (s *Store) Save(ctx context.Context, a activity.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadataJSON, _ := json.Marshal(a.Metadata)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, type, title, description, date, read, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.Type, a.Title, a.Description,
		a.Date.Format(timeFormat), a.Read, string(metadataJSON),
	)
	return err
}

func (s *Store) List(ctx context.Context) ([]activity.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, title, description, date, read, metadata_json
		FROM activities
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []activity.Activity
	for rows.Next() {
		var (
			a           activity.Activity
			description sql.NullString
			date        string
			metadataStr sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Type, &a.Title, &description, &date, &a.Read, &metadataStr); err != nil {
			return nil, err
		}
		a.Description = description.String
		a.Date, _ = time.Parse(time.RFC3339, date)
		if metadataStr.Valid && metadataStr.String != "" {
			json.Unmarshal([]byte(metadataStr.String), &a.Metadata)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (s *Store) UnreadCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM activities WHERE read = FALSE",
	).Scan(&count)
	return count, err
}

func (s *Store) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "UPDATE activities SET read = TRUE WHERE id = ?", id)
	return err
}

func (s *Store) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "UPDATE activities SET read = TRUE")
	return err
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM activities")
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo). The ledger is included:
// this is the one deliberate exception to append-only, reachable only
// through this admin call.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"ledger_entries", "appointments", "requests", "activities", "patients", "professionals"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
