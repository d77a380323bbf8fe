/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Professional:
    ProfessionalDTO, CreateProfessionalRequest, UpdateCommissionRequest

  Patient:
    PatientDTO, CreatePatientRequest

  Appointment:
    AppointmentDTO, CreateAppointmentRequest, CompleteAppointmentRequest

  Billing:
    BalanceDTO, AbonoDTO, RecordAbonoRequest, LedgerEntryDTO, DebtSummaryDTO

  Workflow:
    ChangeRequestDTO, CreateChangeRequestRequest, ResolveRequestRequest

  Activity:
    ActivityDTO

MONEY REPRESENTATION:
  Amounts cross the wire as JSON numbers rounded to 2 decimal places.
  All arithmetic happens server-side on decimals; the float here is a
  presentation format only.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup and middleware
*/
package api

import (
	"time"

	"github.com/solhealth/clinic-core/activity"
	"github.com/solhealth/clinic-core/billing"
	"github.com/solhealth/clinic-core/ledger"
	"github.com/solhealth/clinic-core/workflow"
)

// =============================================================================
// PROFESSIONAL TYPES
// =============================================================================

// ProfessionalDTO represents a professional in API responses. Balances
// are always included and always freshly replayed from the ledger.
type ProfessionalDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Commission     float64 `json:"commission"`
	SaldoTotal     float64 `json:"saldo_total"`
	SaldoPendiente float64 `json:"saldo_pendiente"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// CreateProfessionalRequest is the request to create a professional.
type CreateProfessionalRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Commission float64 `json:"commission"`
}

// UpdateCommissionRequest changes a professional's commission rate.
// Non-retroactive: only future completions use the new rate.
type UpdateCommissionRequest struct {
	Commission float64 `json:"commission"`
}

// =============================================================================
// PATIENT TYPES
// =============================================================================

// PatientDTO represents a patient in API responses.
type PatientDTO struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Status           string  `json:"status"`
	SessionFrequency string  `json:"session_frequency"`
	ActivatedAt      *string `json:"activated_at,omitempty"`
	CreatedAt        string  `json:"created_at,omitempty"`
}

// CreatePatientRequest is the request to create a patient.
type CreatePatientRequest struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	SessionFrequency string `json:"session_frequency"`
}

// =============================================================================
// APPOINTMENT TYPES
// =============================================================================

// AppointmentDTO represents an appointment in API responses.
// RemainingBalance is derived from cost and collected amounts, never
// stored.
type AppointmentDTO struct {
	ID                  string  `json:"id"`
	PatientID           string  `json:"patient_id"`
	ProfessionalID      string  `json:"professional_id"`
	Date                string  `json:"date"`
	StartTime           string  `json:"start_time,omitempty"`
	EndTime             string  `json:"end_time,omitempty"`
	Type                string  `json:"type"`
	Status              string  `json:"status"`
	SessionCost         float64 `json:"session_cost"`
	Attended            bool    `json:"attended"`
	PaymentAmount       float64 `json:"payment_amount"`
	NoShowPaymentAmount float64 `json:"no_show_payment_amount"`
	RemainingBalance    float64 `json:"remaining_balance"`
	CompletedAt         *string `json:"completed_at,omitempty"`
}

// CreateAppointmentRequest is the request to schedule an appointment.
type CreateAppointmentRequest struct {
	ID             string  `json:"id"`
	PatientID      string  `json:"patient_id"`
	ProfessionalID string  `json:"professional_id"`
	Date           string  `json:"date"`
	StartTime      string  `json:"start_time,omitempty"`
	EndTime        string  `json:"end_time,omitempty"`
	Type           string  `json:"type"`
	SessionCost    float64 `json:"session_cost"`
}

// CompleteAppointmentRequest marks an appointment as completed.
type CompleteAppointmentRequest struct {
	Attended            bool    `json:"attended"`
	PaymentAmount       float64 `json:"payment_amount"`
	NoShowPaymentAmount float64 `json:"no_show_payment_amount"`
}

// CompleteAppointmentResponse pairs the completed appointment with the
// professional's post-completion balances.
type CompleteAppointmentResponse struct {
	Appointment AppointmentDTO `json:"appointment"`
	Balance     BalanceDTO     `json:"balance"`
}

// =============================================================================
// BILLING TYPES
// =============================================================================

// BalanceDTO is the replayed balance projection for one professional.
type BalanceDTO struct {
	ProfessionalID string  `json:"professional_id"`
	SaldoTotal     float64 `json:"saldo_total"`
	SaldoPendiente float64 `json:"saldo_pendiente"`
}

// AbonoDTO represents a payment toward commission debt.
type AbonoDTO struct {
	ID             string  `json:"id"`
	ProfessionalID string  `json:"professional_id"`
	Amount         float64 `json:"amount"`
	Date           string  `json:"date"`
}

// RecordAbonoRequest is the request to record an abono.
type RecordAbonoRequest struct {
	Amount float64 `json:"amount"`
	Date   string  `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
}

// RecordAbonoResponse pairs the recorded abono with the resulting
// balances.
type RecordAbonoResponse struct {
	Abono   AbonoDTO   `json:"abono"`
	Balance BalanceDTO `json:"balance"`
}

// LedgerEntryDTO is one row of a professional's statement.
type LedgerEntryDTO struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Gross          float64 `json:"gross"`
	InstituteShare float64 `json:"institute_share"`
	ReferenceID    string  `json:"reference_id,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	EffectiveAt    string  `json:"effective_at"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// DebtSummaryDTO is the aggregate commission debt across all
// professionals, for the admin dashboard.
type DebtSummaryDTO struct {
	TotalPendiente float64           `json:"total_pendiente"`
	Professionals  []ProfessionalDTO `json:"professionals"`
}

// =============================================================================
// WORKFLOW TYPES
// =============================================================================

// ChangeRequestDTO represents a change request in API responses.
type ChangeRequestDTO struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	PatientID      string  `json:"patient_id"`
	PatientName    string  `json:"patient_name,omitempty"`
	ProfessionalID string  `json:"professional_id"`
	CurrentValue   string  `json:"current_value"`
	RequestedValue string  `json:"requested_value"`
	Reason         string  `json:"reason,omitempty"`
	Status         string  `json:"status"`
	AdminResponse  string  `json:"admin_response,omitempty"`
	CreatedAt      string  `json:"created_at"`
	ResolvedAt     *string `json:"resolved_at,omitempty"`
}

// CreateChangeRequestRequest opens a pending change request.
type CreateChangeRequestRequest struct {
	Kind           string `json:"kind"`
	PatientID      string `json:"patient_id"`
	ProfessionalID string `json:"professional_id"`
	RequestedValue string `json:"requested_value"`
	Reason         string `json:"reason,omitempty"`
}

// ResolveRequestRequest carries the optional admin commentary on
// approval or rejection.
type ResolveRequestRequest struct {
	AdminResponse string `json:"admin_response,omitempty"`
}

// =============================================================================
// ACTIVITY TYPES
// =============================================================================

// ActivityDTO represents an activity feed item.
type ActivityDTO struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Date        string            `json:"date"`
	Read        bool              `json:"read"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// UnreadCountDTO is the badge count for the activity feed.
type UnreadCountDTO struct {
	Count int `json:"count"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toProfessionalDTO(p billing.ProfessionalAccount, balance billing.AccountBalance) ProfessionalDTO {
	return ProfessionalDTO{
		ID:             string(p.ID),
		Name:           p.Name,
		Commission:     p.Commission.Float64(),
		SaldoTotal:     balance.SaldoTotal.Float64(),
		SaldoPendiente: balance.SaldoPendiente.Float64(),
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
}

func toPatientDTO(p workflow.Patient) PatientDTO {
	dto := PatientDTO{
		ID:               string(p.ID),
		Name:             p.Name,
		Status:           string(p.Status),
		SessionFrequency: string(p.SessionFrequency),
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
	}
	if p.ActivatedAt != nil {
		s := p.ActivatedAt.Format(time.RFC3339)
		dto.ActivatedAt = &s
	}
	return dto
}

func toAppointmentDTO(a billing.Appointment) AppointmentDTO {
	dto := AppointmentDTO{
		ID:                  string(a.ID),
		PatientID:           string(a.PatientID),
		ProfessionalID:      string(a.ProfessionalID),
		Date:                a.Date.Format("2006-01-02"),
		StartTime:           a.StartTime,
		EndTime:             a.EndTime,
		Type:                string(a.Type),
		Status:              string(a.Status),
		SessionCost:         a.SessionCost.Float64(),
		Attended:            a.Attended,
		PaymentAmount:       a.PaymentAmount.Float64(),
		NoShowPaymentAmount: a.NoShowPaymentAmount.Float64(),
		RemainingBalance:    a.RemainingBalance().Float64(),
	}
	if a.CompletedAt != nil {
		s := a.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &s
	}
	return dto
}

func toBalanceDTO(b billing.AccountBalance) BalanceDTO {
	return BalanceDTO{
		ProfessionalID: string(b.ProfessionalID),
		SaldoTotal:     b.SaldoTotal.Float64(),
		SaldoPendiente: b.SaldoPendiente.Float64(),
	}
}

func toAbonoDTO(a billing.Abono) AbonoDTO {
	return AbonoDTO{
		ID:             a.ID,
		ProfessionalID: string(a.ProfessionalID),
		Amount:         a.Amount.Float64(),
		Date:           a.Date.Format("2006-01-02"),
	}
}

func toLedgerEntryDTO(e ledger.Entry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:             string(e.ID),
		Type:           string(e.Type),
		Gross:          e.Gross.Round2().Float64(),
		InstituteShare: e.InstituteShare.Round2().Float64(),
		ReferenceID:    e.ReferenceID,
		Reason:         e.Reason,
		EffectiveAt:    e.EffectiveAt.Format(time.RFC3339),
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
	}
}

func toChangeRequestDTO(r workflow.Request, patientName string) ChangeRequestDTO {
	dto := ChangeRequestDTO{
		ID:             string(r.ID),
		Kind:           string(r.Kind),
		PatientID:      string(r.PatientID),
		PatientName:    patientName,
		ProfessionalID: string(r.ProfessionalID),
		CurrentValue:   r.CurrentValue,
		RequestedValue: r.RequestedValue,
		Reason:         r.Reason,
		Status:         string(r.Status),
		AdminResponse:  r.AdminResponse,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
	if r.ResolvedAt != nil {
		s := r.ResolvedAt.Format(time.RFC3339)
		dto.ResolvedAt = &s
	}
	return dto
}

func toActivityDTO(a activity.Activity) ActivityDTO {
	return ActivityDTO{
		ID:          a.ID,
		Type:        string(a.Type),
		Title:       a.Title,
		Description: a.Description,
		Date:        a.Date.Format(time.RFC3339),
		Read:        a.Read,
		Metadata:    a.Metadata,
	}
}
