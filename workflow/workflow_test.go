package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solhealth/clinic-core/activity"
	"github.com/solhealth/clinic-core/ledger"
	"github.com/solhealth/clinic-core/store/sqlite"
	"github.com/solhealth/clinic-core/workflow"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*workflow.Service, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := &workflow.Service{
		Requests: store,
		Patients: store,
		Notifier: activity.NewFeedNotifier(store),
	}
	return svc, store
}

func savePatient(t *testing.T, store *sqlite.Store, id string, status workflow.PatientStatus, freq workflow.SessionFrequency) workflow.Patient {
	p := workflow.Patient{
		ID:               ledger.PatientID(id),
		Name:             "Patient " + id,
		Status:           status,
		SessionFrequency: freq,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, store.SavePatient(context.Background(), p))
	return p
}

// =============================================================================
// REQUEST CREATION TESTS
// =============================================================================

func TestService_CreateRequest_CapturesCurrentValue(t *testing.T) {
	// GIVEN: An inactive patient
	// WHEN: A status change to active is requested
	// THEN: The request snapshots the current value and starts pending

	svc, store := newTestService(t)
	ctx := context.Background()
	savePatient(t, store, "pat-1", workflow.PatientInactive, workflow.FrequencyWeekly)

	request, err := svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-1", "prof-1", "active", "patient returning")
	require.NoError(t, err)

	assert.Equal(t, workflow.RequestPending, request.Status)
	assert.Equal(t, "inactive", request.CurrentValue)
	assert.Equal(t, "active", request.RequestedValue)
	assert.Equal(t, "patient returning", request.Reason)
	assert.Nil(t, request.ResolvedAt)
}

func TestService_CreateRequest_RejectsSecondPendingOfSameKind(t *testing.T) {
	// GIVEN: A pending status change request for the patient
	// WHEN: Another status change is requested for the same patient
	// THEN: Rejected with DuplicatePendingError naming the existing request

	svc, store := newTestService(t)
	ctx := context.Background()
	savePatient(t, store, "pat-1", workflow.PatientInactive, workflow.FrequencyWeekly)

	first, err := svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-1", "prof-1", "active", "")
	require.NoError(t, err)

	_, err = svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-1", "prof-2", "active", "")
	assert.ErrorIs(t, err, workflow.ErrDuplicatePending)

	var dupErr *workflow.DuplicatePendingError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, first.ID, dupErr.Existing)
}

func TestService_CreateRequest_DifferentKindsCoexist(t *testing.T) {
	// GIVEN: A pending status change for the patient
	// WHEN: A frequency change is requested for the same patient
	// THEN: Both pend independently - the constraint is per kind

	svc, store := newTestService(t)
	ctx := context.Background()
	savePatient(t, store, "pat-1", workflow.PatientActive, workflow.FrequencyWeekly)

	_, err := svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-1", "prof-1", "inactive", "")
	require.NoError(t, err)
	_, err = svc.CreateRequest(ctx, workflow.KindFrequencyChange, "pat-1", "prof-1", "monthly", "")
	require.NoError(t, err)

	pending, err := svc.PendingRequests(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestService_CreateRequest_ValidatesRequestedValue(t *testing.T) {
	// GIVEN: A patient
	// WHEN: Requesting a change to a value outside the enum
	// THEN: Rejected before anything is stored

	svc, store := newTestService(t)
	ctx := context.Background()
	savePatient(t, store, "pat-1", workflow.PatientActive, workflow.FrequencyWeekly)

	_, err := svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-1", "prof-1", "hibernating", "")
	assert.Error(t, err)

	_, err = svc.CreateRequest(ctx, workflow.KindFrequencyChange, "pat-1", "prof-1", "daily", "")
	assert.Error(t, err)

	pending, err := svc.PendingRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestService_CreateRequest_UnknownPatient(t *testing.T) {
	// GIVEN: No patient with the given ID
	// WHEN: Creating a request
	// THEN: ErrPatientNotFound

	svc, _ := newTestService(t)

	_, err := svc.CreateRequest(context.Background(), workflow.KindStatusChange, "ghost", "prof-1", "active", "")
	assert.ErrorIs(t, err, workflow.ErrPatientNotFound)
}

// =============================================================================
// RESOLUTION TESTS
// =============================================================================

func TestService_Approve_AppliesStatusChangeAndStampsActivation(t *testing.T) {
	// GIVEN: An inactive, never-activated patient with a pending
	//        activation request
	// WHEN: An admin approves it
	// THEN: The patient becomes active and ActivatedAt is stamped

	svc, store := newTestService(t)
	ctx := context.Background()
	savePatient(t, store, "pat-1", workflow.PatientInactive, workflow.FrequencyWeekly)

	request, err := svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-1", "prof-1", "active", "")
	require.NoError(t, err)

	resolved, err := svc.ResolveRequest(ctx, request.ID, workflow.DecisionApproved, "welcome back")
	require.NoError(t, err)

	assert.Equal(t, workflow.RequestApproved, resolved.Status)
	assert.Equal(t, "welcome back", resolved.AdminResponse)
	require.NotNil(t, resolved.ResolvedAt)

	patient, err := store.GetPatient(ctx, "pat-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.PatientActive, patient.Status)
	assert.NotNil(t, patient.ActivatedAt, "first activation stamps ActivatedAt")
}

func TestService_Approve_ReactivationKeepsOriginalActivationDate(t *testing.T) {
	// GIVEN: A patient activated long ago, deactivated since
	// WHEN: A new activation request is approved
	// THEN: ActivatedAt keeps the original date

	svc, store := newTestService(t)
	ctx := context.Background()

	original := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	p := savePatient(t, store, "pat-1", workflow.PatientInactive, workflow.FrequencyWeekly)
	p.ActivatedAt = &original
	require.NoError(t, store.SavePatient(ctx, p))

	request, err := svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-1", "prof-1", "active", "")
	require.NoError(t, err)
	_, err = svc.ResolveRequest(ctx, request.ID, workflow.DecisionApproved, "")
	require.NoError(t, err)

	patient, err := store.GetPatient(ctx, "pat-1")
	require.NoError(t, err)
	require.NotNil(t, patient.ActivatedAt)
	assert.True(t, patient.ActivatedAt.Equal(original))
}

func TestService_Approve_AppliesFrequencyChange(t *testing.T) {
	// GIVEN: A weekly patient with a pending change to monthly
	// WHEN: Approved
	// THEN: The patient's frequency flips; the activity carries the
	//       requested frequency for the feed

	svc, store := newTestService(t)
	ctx := context.Background()
	savePatient(t, store, "pat-1", workflow.PatientActive, workflow.FrequencyWeekly)

	request, err := svc.CreateRequest(ctx, workflow.KindFrequencyChange, "pat-1", "prof-1", "monthly", "schedule conflict")
	require.NoError(t, err)
	_, err = svc.ResolveRequest(ctx, request.ID, workflow.DecisionApproved, "")
	require.NoError(t, err)

	patient, err := store.GetPatient(ctx, "pat-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.FrequencyMonthly, patient.SessionFrequency)

	activities, err := store.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, activities)
	newest := activities[0]
	assert.Equal(t, activity.TypeFrequencyChangeApproved, newest.Type)
	assert.Equal(t, "monthly", newest.Metadata["requestedFrequency"])
}

func TestService_Reject_LeavesPatientUntouched(t *testing.T) {
	// GIVEN: A pending activation request
	// WHEN: An admin rejects it
	// THEN: The request resolves but the patient record does not change

	svc, store := newTestService(t)
	ctx := context.Background()
	savePatient(t, store, "pat-1", workflow.PatientInactive, workflow.FrequencyWeekly)

	request, err := svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-1", "prof-1", "active", "")
	require.NoError(t, err)

	resolved, err := svc.ResolveRequest(ctx, request.ID, workflow.DecisionRejected, "not yet")
	require.NoError(t, err)
	assert.Equal(t, workflow.RequestRejected, resolved.Status)

	patient, err := store.GetPatient(ctx, "pat-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.PatientInactive, patient.Status)
	assert.Nil(t, patient.ActivatedAt)
}

func TestService_Resolve_SecondDecisionFails(t *testing.T) {
	// GIVEN: An already-approved request
	// WHEN: A second admin tries to reject it
	// THEN: ErrAlreadyResolved; the first decision stands

	svc, store := newTestService(t)
	ctx := context.Background()
	savePatient(t, store, "pat-1", workflow.PatientInactive, workflow.FrequencyWeekly)

	request, err := svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-1", "prof-1", "active", "")
	require.NoError(t, err)
	_, err = svc.ResolveRequest(ctx, request.ID, workflow.DecisionApproved, "")
	require.NoError(t, err)

	_, err = svc.ResolveRequest(ctx, request.ID, workflow.DecisionRejected, "changed my mind")
	assert.ErrorIs(t, err, workflow.ErrAlreadyResolved)

	stored, err := store.GetRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.RequestApproved, stored.Status)

	patient, err := store.GetPatient(ctx, "pat-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.PatientActive, patient.Status)
}

func TestService_Resolve_UnknownRequest(t *testing.T) {
	// GIVEN: No request with the given ID
	// WHEN: Resolving
	// THEN: ErrRequestNotFound

	svc, _ := newTestService(t)

	_, err := svc.ResolveRequest(context.Background(), "ghost", workflow.DecisionApproved, "")
	assert.ErrorIs(t, err, workflow.ErrRequestNotFound)
}

func TestService_NewRequestAllowedAfterResolution(t *testing.T) {
	// GIVEN: A resolved status change request
	// WHEN: A new status change is requested for the same patient
	// THEN: Allowed - only pending requests block duplicates

	svc, store := newTestService(t)
	ctx := context.Background()
	savePatient(t, store, "pat-1", workflow.PatientInactive, workflow.FrequencyWeekly)

	request, err := svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-1", "prof-1", "active", "")
	require.NoError(t, err)
	_, err = svc.ResolveRequest(ctx, request.ID, workflow.DecisionRejected, "")
	require.NoError(t, err)

	_, err = svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-1", "prof-1", "active", "second try")
	assert.NoError(t, err)
}

func TestService_PendingRequests_OldestFirst(t *testing.T) {
	// GIVEN: Pending requests for two patients
	// WHEN: Listing the admin queue
	// THEN: Both appear, oldest first, resolved ones excluded

	svc, store := newTestService(t)
	ctx := context.Background()
	savePatient(t, store, "pat-1", workflow.PatientInactive, workflow.FrequencyWeekly)
	savePatient(t, store, "pat-2", workflow.PatientActive, workflow.FrequencyWeekly)

	first, err := svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-1", "prof-1", "active", "")
	require.NoError(t, err)
	second, err := svc.CreateRequest(ctx, workflow.KindFrequencyChange, "pat-2", "prof-1", "biweekly", "")
	require.NoError(t, err)

	resolvedReq, err := svc.CreateRequest(ctx, workflow.KindStatusChange, "pat-2", "prof-1", "inactive", "")
	require.NoError(t, err)
	_, err = svc.ResolveRequest(ctx, resolvedReq.ID, workflow.DecisionRejected, "")
	require.NoError(t, err)

	pending, err := svc.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)
}
