/*
workflow.go - Request lifecycle service

PURPOSE:
  Orchestrates creation and resolution of change requests.

REQUEST FLOW:
  Professional submits ──▶ pending request + *_REQUESTED activity
  Admin approves       ──▶ patient side effect + *_APPROVED activity
  Admin rejects        ──▶ *_REJECTED activity

CONCURRENCY:
  Resolution is a check-then-act on status = pending, so the check and
  the transition must be one atomic step. The store contract makes that
  explicit: Transition flips pending to the terminal status
  conditionally and reports whether it won. Two concurrent approvals of
  one request therefore apply exactly one side effect; the loser gets
  ErrAlreadyResolved.
*/
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solhealth/clinic-core/activity"
	"github.com/solhealth/clinic-core/ledger"
)

// =============================================================================
// STORE CONTRACTS
// =============================================================================

type RequestStore interface {
	SaveRequest(ctx context.Context, r Request) error
	GetRequest(ctx context.Context, id RequestID) (*Request, error)

	// PendingRequest returns the patient's pending request of the given
	// kind, or nil.
	PendingRequest(ctx context.Context, patientID ledger.PatientID, kind RequestKind) (*Request, error)

	// PendingRequests returns all pending requests, oldest first.
	PendingRequests(ctx context.Context) ([]Request, error)

	// Transition conditionally moves the request from pending to the
	// given terminal status. Returns false if the request was no longer
	// pending (someone else resolved it first).
	Transition(ctx context.Context, id RequestID, to RequestStatus, adminResponse string, resolvedAt time.Time) (bool, error)
}

type PatientStore interface {
	GetPatient(ctx context.Context, id ledger.PatientID) (*Patient, error)
	SavePatient(ctx context.Context, p Patient) error
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Requests RequestStore
	Patients PatientStore
	Notifier activity.Notifier
}

func NewService(requests RequestStore, patients PatientStore, notifier activity.Notifier) *Service {
	if notifier == nil {
		notifier = activity.Discard{}
	}
	return &Service{Requests: requests, Patients: patients, Notifier: notifier}
}

// CreateRequest opens a pending request on behalf of a professional.
// The patient's current value is captured here, not supplied by the
// caller. Fails with ErrDuplicatePending if a pending request of the
// same kind already exists for the patient.
func (s *Service) CreateRequest(
	ctx context.Context,
	kind RequestKind,
	patientID ledger.PatientID,
	professionalID ledger.ProfessionalID,
	requestedValue string,
	reason string,
) (*Request, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown request kind %q", kind)
	}

	patient, err := s.Patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	var current string
	switch kind {
	case KindStatusChange:
		if !PatientStatus(requestedValue).Valid() {
			return nil, fmt.Errorf("unknown patient status %q", requestedValue)
		}
		current = string(patient.Status)
	case KindFrequencyChange:
		if !SessionFrequency(requestedValue).Valid() {
			return nil, fmt.Errorf("unknown session frequency %q", requestedValue)
		}
		current = string(patient.SessionFrequency)
	}

	existing, err := s.Requests.PendingRequest(ctx, patientID, kind)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &DuplicatePendingError{PatientID: patientID, Kind: kind, Existing: existing.ID}
	}

	request := Request{
		ID:             RequestID(uuid.NewString()),
		Kind:           kind,
		PatientID:      patientID,
		ProfessionalID: professionalID,
		CurrentValue:   current,
		RequestedValue: requestedValue,
		Reason:         reason,
		Status:         RequestPending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.Requests.SaveRequest(ctx, request); err != nil {
		return nil, err
	}

	s.Notifier.Emit(ctx, activity.Activity{
		Type:  requestedActivityType(kind),
		Title: requestTitle(kind),
		Description: fmt.Sprintf("%s change requested for %s: %s → %s",
			kindLabel(kind), patient.Name, current, requestedValue),
		Metadata: map[string]string{
			"requestId":      string(request.ID),
			"patientId":      string(patientID),
			"patientName":    patient.Name,
			"professionalId": string(professionalID),
			"requestedValue": requestedValue,
			"reason":         reason,
		},
	})

	return &request, nil
}

// ResolveRequest applies an admin decision. Approval additionally flips
// the patient's status or session frequency. Exactly one resolution per
// request: a second call fails with ErrAlreadyResolved and applies no
// side effect.
func (s *Service) ResolveRequest(ctx context.Context, id RequestID, decision Decision, adminResponse string) (*Request, error) {
	if !decision.Valid() {
		return nil, fmt.Errorf("unknown decision %q", decision)
	}

	request, err := s.Requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrRequestNotFound
	}

	to := RequestApproved
	if decision == DecisionRejected {
		to = RequestRejected
	}

	resolvedAt := time.Now().UTC()
	won, err := s.Requests.Transition(ctx, id, to, adminResponse, resolvedAt)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrAlreadyResolved
	}

	request.Status = to
	request.AdminResponse = adminResponse
	request.ResolvedAt = &resolvedAt

	patient, err := s.Patients.GetPatient(ctx, request.PatientID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	if decision == DecisionApproved {
		if err := s.applySideEffect(ctx, request, patient); err != nil {
			return nil, err
		}
	}

	s.emitResolution(ctx, request, patient, decision, adminResponse)
	return request, nil
}

func (s *Service) applySideEffect(ctx context.Context, request *Request, patient *Patient) error {
	switch request.Kind {
	case KindStatusChange:
		next := PatientStatus(request.RequestedValue)
		if next == PatientActive && patient.Status != PatientActive && patient.ActivatedAt == nil {
			now := time.Now().UTC()
			patient.ActivatedAt = &now
		}
		patient.Status = next
	case KindFrequencyChange:
		patient.SessionFrequency = SessionFrequency(request.RequestedValue)
	}
	return s.Patients.SavePatient(ctx, *patient)
}

func (s *Service) emitResolution(ctx context.Context, request *Request, patient *Patient, decision Decision, adminResponse string) {
	metadata := map[string]string{
		"requestId":      string(request.ID),
		"patientId":      string(request.PatientID),
		"patientName":    patient.Name,
		"professionalId": string(request.ProfessionalID),
	}
	switch request.Kind {
	case KindStatusChange:
		metadata["requestedStatus"] = request.RequestedValue
	case KindFrequencyChange:
		metadata["requestedFrequency"] = request.RequestedValue
	}
	if adminResponse != "" {
		metadata["adminResponse"] = adminResponse
	}

	verb := "approved"
	if decision == DecisionRejected {
		verb = "rejected"
	}

	s.Notifier.Emit(ctx, activity.Activity{
		Type:  resolvedActivityType(request.Kind, decision),
		Title: fmt.Sprintf("%s change %s", kindLabel(request.Kind), verb),
		Description: fmt.Sprintf("%s change to %q for %s was %s",
			kindLabel(request.Kind), request.RequestedValue, patient.Name, verb),
		Metadata: metadata,
	})
}

// PendingRequests lists everything awaiting an admin decision.
func (s *Service) PendingRequests(ctx context.Context) ([]Request, error) {
	return s.Requests.PendingRequests(ctx)
}

// =============================================================================
// ACTIVITY MAPPING
// =============================================================================

func requestedActivityType(kind RequestKind) activity.Type {
	if kind == KindFrequencyChange {
		return activity.TypeFrequencyChangeRequested
	}
	return activity.TypeStatusChangeRequested
}

func resolvedActivityType(kind RequestKind, decision Decision) activity.Type {
	switch {
	case kind == KindFrequencyChange && decision == DecisionApproved:
		return activity.TypeFrequencyChangeApproved
	case kind == KindFrequencyChange:
		return activity.TypeFrequencyChangeRejected
	case decision == DecisionApproved:
		return activity.TypeStatusChangeApproved
	default:
		return activity.TypeStatusChangeRejected
	}
}

func kindLabel(kind RequestKind) string {
	if kind == KindFrequencyChange {
		return "Frequency"
	}
	return "Status"
}

func requestTitle(kind RequestKind) string {
	return fmt.Sprintf("%s change requested", kindLabel(kind))
}
