/*
handlers.go - HTTP API handlers for the clinic accounting engine

PURPOSE:
  Exposes the reconciliation engine and approval workflow via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Professionals:
    GET    /api/professionals                     List with balances
    POST   /api/professionals                     Create professional
    GET    /api/professionals/{id}                Get with balances
    PUT    /api/professionals/{id}/commission     Update commission rate
    GET    /api/professionals/{id}/balance        Replayed balance
    GET    /api/professionals/{id}/statement      Full ledger statement
    GET    /api/professionals/{id}/abonos         Abono history
    POST   /api/professionals/{id}/abonos         Record abono

  Patients:
    GET    /api/patients                          List patients
    POST   /api/patients                          Create patient
    GET    /api/patients/{id}                     Get patient

  Appointments:
    POST   /api/appointments                      Schedule appointment
    GET    /api/appointments/{id}                 Get appointment
    POST   /api/appointments/{id}/complete        Complete (accrues revenue)
    POST   /api/appointments/{id}/cancel          Cancel (no financial effect)
    DELETE /api/appointments/{id}                 Delete (reverses accrual)

  Requests:
    POST   /api/requests                          Open change request
    GET    /api/requests/pending                  List pending requests
    POST   /api/requests/{id}/approve             Approve (applies change)
    POST   /api/requests/{id}/reject              Reject

  Dashboard:
    GET    /api/dashboard/debt                    Aggregate commission debt

  Activity:
    GET    /api/activity                          Feed, newest first
    GET    /api/activity/unread-count             Badge count
    POST   /api/activity/{id}/read                Mark one read
    POST   /api/activity/read-all                 Mark all read
    DELETE /api/activity                          Clear feed

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid amounts, bad state transitions
  - 404: Resource not found
  - 409: Conflict (already-resolved request, duplicate pending)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/solhealth/clinic-core/billing"
	"github.com/solhealth/clinic-core/ledger"
	"github.com/solhealth/clinic-core/store/sqlite"
	"github.com/solhealth/clinic-core/workflow"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Engine   *billing.Engine
	Workflow *workflow.Service
}

// NewHandler creates a new handler.
func NewHandler(store *sqlite.Store, engine *billing.Engine, wf *workflow.Service) *Handler {
	return &Handler{Store: store, Engine: engine, Workflow: wf}
}

// =============================================================================
// PROFESSIONAL HANDLERS
// =============================================================================

// ListProfessionals returns all professionals with their replayed
// balances.
func (h *Handler) ListProfessionals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	professionals, err := h.Store.ListProfessionals(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list professionals", err)
		return
	}

	dtos := make([]ProfessionalDTO, len(professionals))
	for i, p := range professionals {
		balance, err := h.Engine.Balance(ctx, p.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
			return
		}
		dtos[i] = toProfessionalDTO(p, balance)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetProfessional returns a single professional with balances.
func (h *Handler) GetProfessional(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ledger.ProfessionalID(chi.URLParam(r, "id"))

	p, err := h.Store.GetProfessional(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get professional", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Professional not found", nil)
		return
	}

	balance, err := h.Engine.Balance(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfessionalDTO(*p, balance))
}

// CreateProfessional creates a new professional account.
func (h *Handler) CreateProfessional(w http.ResponseWriter, r *http.Request) {
	var req CreateProfessionalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	p := billing.ProfessionalAccount{
		ID:         ledger.ProfessionalID(req.ID),
		Name:       req.Name,
		Commission: billing.NewPercent(req.Commission),
		CreatedAt:  time.Now().UTC(),
	}

	if err := h.Store.SaveProfessional(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create professional", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProfessionalDTO(p, billing.AccountBalance{
		ProfessionalID: p.ID,
		SaldoTotal:     ledger.Zero(),
		SaldoPendiente: ledger.Zero(),
	}))
}

// UpdateCommission changes a professional's rate for future
// completions. Existing ledger entries are untouched.
func (h *Handler) UpdateCommission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ledger.ProfessionalID(chi.URLParam(r, "id"))

	var req UpdateCommissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Store.UpdateCommission(ctx, id, billing.NewPercent(req.Commission)); err != nil {
		writeDomainError(w, "Failed to update commission", err)
		return
	}

	p, err := h.Store.GetProfessional(ctx, id)
	if err != nil || p == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload professional", err)
		return
	}

	balance, err := h.Engine.Balance(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfessionalDTO(*p, balance))
}

// GetBalance returns the professional's balance projection.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ledger.ProfessionalID(chi.URLParam(r, "id"))

	if err := h.requireProfessional(w, r, id); err != nil {
		return
	}

	balance, err := h.Engine.Balance(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// GetStatement returns the professional's full ledger, oldest first.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ledger.ProfessionalID(chi.URLParam(r, "id"))

	if err := h.requireProfessional(w, r, id); err != nil {
		return
	}

	entries, err := h.Engine.Statement(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load statement", err)
		return
	}

	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLedgerEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAbonos returns the professional's abono history.
func (h *Handler) ListAbonos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ledger.ProfessionalID(chi.URLParam(r, "id"))

	if err := h.requireProfessional(w, r, id); err != nil {
		return
	}

	abonos, err := h.Engine.Abonos(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load abonos", err)
		return
	}

	dtos := make([]AbonoDTO, len(abonos))
	for i, a := range abonos {
		dtos[i] = toAbonoDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordAbono records a payment toward commission debt.
func (h *Handler) RecordAbono(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ledger.ProfessionalID(chi.URLParam(r, "id"))

	var req RecordAbonoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		date = parsed
	}

	abono, balance, err := h.Engine.RecordAbono(ctx, id, ledger.NewMoney(req.Amount), date)
	if err != nil {
		writeDomainError(w, "Failed to record abono", err)
		return
	}

	writeJSON(w, http.StatusCreated, RecordAbonoResponse{
		Abono:   toAbonoDTO(abono),
		Balance: toBalanceDTO(balance),
	})
}

// requireProfessional writes a 404/500 and returns a non-nil error when
// the professional does not exist.
func (h *Handler) requireProfessional(w http.ResponseWriter, r *http.Request, id ledger.ProfessionalID) error {
	p, err := h.Store.GetProfessional(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get professional", err)
		return err
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Professional not found", nil)
		return ledger.ErrProfessionalNotFound
	}
	return nil
}

// =============================================================================
// PATIENT HANDLERS
// =============================================================================

// ListPatients returns all patients.
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.Store.ListPatients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list patients", err)
		return
	}

	dtos := make([]PatientDTO, len(patients))
	for i, p := range patients {
		dtos[i] = toPatientDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPatient returns a single patient.
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id := ledger.PatientID(chi.URLParam(r, "id"))

	p, err := h.Store.GetPatient(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get patient", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Patient not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toPatientDTO(*p))
}

// CreatePatient creates a new patient.
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	status := workflow.PatientStatus(req.Status)
	if req.Status == "" {
		status = workflow.PatientInactive
	}
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status", nil)
		return
	}

	frequency := workflow.SessionFrequency(req.SessionFrequency)
	if req.SessionFrequency == "" {
		frequency = workflow.FrequencyWeekly
	}
	if !frequency.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid session_frequency", nil)
		return
	}

	p := workflow.Patient{
		ID:               ledger.PatientID(req.ID),
		Name:             req.Name,
		Status:           status,
		SessionFrequency: frequency,
		CreatedAt:        time.Now().UTC(),
	}
	if status == workflow.PatientActive {
		now := time.Now().UTC()
		p.ActivatedAt = &now
	}

	if err := h.Store.SavePatient(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create patient", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPatientDTO(p))
}

// =============================================================================
// APPOINTMENT HANDLERS
// =============================================================================

// CreateAppointment schedules a new appointment.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.PatientID == "" || req.ProfessionalID == "" {
		writeError(w, http.StatusBadRequest, "id, patient_id and professional_id are required", nil)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	apptType := billing.AppointmentType(req.Type)
	if req.Type == "" {
		apptType = billing.TypeRegular
	}

	a := billing.Appointment{
		ID:             ledger.AppointmentID(req.ID),
		PatientID:      ledger.PatientID(req.PatientID),
		ProfessionalID: ledger.ProfessionalID(req.ProfessionalID),
		Date:           date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Type:           apptType,
		Status:         billing.StatusScheduled,
		SessionCost:    ledger.NewMoney(req.SessionCost),
		PaymentAmount:       ledger.Zero(),
		NoShowPaymentAmount: ledger.Zero(),
	}
	if err := a.Validate(); err != nil {
		writeDomainError(w, "Invalid appointment", err)
		return
	}

	if err := h.Store.SaveAppointment(ctx, a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create appointment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentDTO(a))
}

// GetAppointment returns a single appointment.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id := ledger.AppointmentID(chi.URLParam(r, "id"))

	a, err := h.Store.GetAppointment(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get appointment", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Appointment not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentDTO(*a))
}

// CompleteAppointment transitions the appointment to completed and runs
// the reconciliation. The appointment and professional are validated
// before the status transition so a rejected request leaves the
// appointment scheduled; after the transition, the transition and the
// ledger append are both idempotent per appointment, so a retry after
// a partial failure replays the reconciliation and converges.
func (h *Handler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ledger.AppointmentID(chi.URLParam(r, "id"))

	var req CompleteAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PaymentAmount < 0 || req.NoShowPaymentAmount < 0 {
		writeError(w, http.StatusBadRequest, "Payment amounts must be non-negative", nil)
		return
	}

	a, err := h.Store.GetAppointment(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get appointment", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Appointment not found", nil)
		return
	}
	prof, err := h.Store.GetProfessional(ctx, a.ProfessionalID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get professional", err)
		return
	}
	if prof == nil {
		writeError(w, http.StatusNotFound, "Professional not found", nil)
		return
	}

	completed, err := h.Store.CompleteAppointment(ctx, id,
		req.Attended,
		ledger.NewMoney(req.PaymentAmount),
		ledger.NewMoney(req.NoShowPaymentAmount),
		time.Now().UTC(),
	)
	if err != nil {
		writeDomainError(w, "Failed to complete appointment", err)
		return
	}

	balance, err := h.Engine.OnAppointmentCompleted(ctx, *completed)
	if err != nil {
		writeDomainError(w, "Failed to reconcile appointment", err)
		return
	}

	writeJSON(w, http.StatusOK, CompleteAppointmentResponse{
		Appointment: toAppointmentDTO(*completed),
		Balance:     toBalanceDTO(balance),
	})
}

// CancelAppointment transitions the appointment to cancelled. No
// financial effect: a cancelled appointment never reached the ledger.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id := ledger.AppointmentID(chi.URLParam(r, "id"))

	if err := h.Store.CancelAppointment(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to cancel appointment", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteAppointment removes the appointment, reversing its ledger
// effect first. The reversal entries stay in the ledger as the audit
// trail.
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ledger.AppointmentID(chi.URLParam(r, "id"))

	a, err := h.Store.GetAppointment(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get appointment", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Appointment not found", nil)
		return
	}

	balance, err := h.Engine.OnAppointmentDeleted(ctx, *a)
	if err != nil {
		writeDomainError(w, "Failed to reverse appointment", err)
		return
	}

	if err := h.Store.DeleteAppointment(ctx, id); err != nil {
		writeDomainError(w, "Failed to delete appointment", err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// =============================================================================
// CHANGE REQUEST HANDLERS
// =============================================================================

// CreateChangeRequest opens a pending status or frequency change
// request.
func (h *Handler) CreateChangeRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateChangeRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	request, err := h.Workflow.CreateRequest(ctx,
		workflow.RequestKind(req.Kind),
		ledger.PatientID(req.PatientID),
		ledger.ProfessionalID(req.ProfessionalID),
		req.RequestedValue,
		req.Reason,
	)
	if err != nil {
		writeDomainError(w, "Failed to create request", err)
		return
	}

	writeJSON(w, http.StatusCreated, toChangeRequestDTO(*request, h.patientName(r, request.PatientID)))
}

// ListPendingRequests returns all pending change requests, oldest
// first.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Workflow.PendingRequests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}

	dtos := make([]ChangeRequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toChangeRequestDTO(req, h.patientName(r, req.PatientID))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveRequest approves a pending request and applies its change.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, workflow.DecisionApproved)
}

// RejectRequest rejects a pending request. The patient's record is
// untouched.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, workflow.DecisionRejected)
}

func (h *Handler) resolveRequest(w http.ResponseWriter, r *http.Request, decision workflow.Decision) {
	ctx := r.Context()
	id := workflow.RequestID(chi.URLParam(r, "id"))

	var req ResolveRequestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	resolved, err := h.Workflow.ResolveRequest(ctx, id, decision, req.AdminResponse)
	if err != nil {
		writeDomainError(w, "Failed to resolve request", err)
		return
	}

	writeJSON(w, http.StatusOK, toChangeRequestDTO(*resolved, h.patientName(r, resolved.PatientID)))
}

// patientName resolves the patient's display name at read time.
// Requests store only the ID, so renames show up everywhere at once.
func (h *Handler) patientName(r *http.Request, id ledger.PatientID) string {
	p, err := h.Store.GetPatient(r.Context(), id)
	if err != nil || p == nil {
		return ""
	}
	return p.Name
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GetDebtSummary returns the aggregate outstanding commission debt
// across all professionals.
func (h *Handler) GetDebtSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	professionals, err := h.Store.ListProfessionals(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list professionals", err)
		return
	}

	total := ledger.Zero()
	dtos := make([]ProfessionalDTO, len(professionals))
	for i, p := range professionals {
		balance, err := h.Engine.Balance(ctx, p.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
			return
		}
		total = total.Add(balance.SaldoPendiente)
		dtos[i] = toProfessionalDTO(p, balance)
	}

	writeJSON(w, http.StatusOK, DebtSummaryDTO{
		TotalPendiente: total.Round2().Float64(),
		Professionals:  dtos,
	})
}

// =============================================================================
// ACTIVITY HANDLERS
// =============================================================================

// ListActivity returns the activity feed, newest first.
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	activities, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list activity", err)
		return
	}

	dtos := make([]ActivityDTO, len(activities))
	for i, a := range activities {
		dtos[i] = toActivityDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUnreadCount returns the unread activity count.
func (h *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.Store.UnreadCount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count unread activity", err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadCountDTO{Count: count})
}

// MarkActivityRead marks one activity item read.
func (h *Handler) MarkActivityRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.MarkRead(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mark activity read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllActivityRead marks the whole feed read.
func (h *Handler) MarkAllActivityRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.MarkAllRead(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mark activity read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearActivity deletes the whole feed.
func (h *Handler) ClearActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.ClearAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear activity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetDatabase clears all data (dev/demo only).
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// ERROR MAPPING AND RESPONSE HELPERS
// =============================================================================

// writeDomainError maps domain errors to HTTP status codes:
// conflict-shaped errors to 409, not-found sentinels to 404, other
// client errors to 400, everything else to 500.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, workflow.ErrAlreadyResolved),
		errors.Is(err, workflow.ErrDuplicatePending),
		errors.Is(err, ledger.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsNotFound(err), workflow.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsClientError(err), workflow.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
