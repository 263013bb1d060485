// internal/workspace/mutations_test.go
package workspace

import (
	"context"
	"testing"
	"time"

	"agency-workspace/internal/backend"
	"agency-workspace/internal/common/errors"
	"agency-workspace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitPending(t *testing.T, p *Pending) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return p.Wait(ctx)
}

func TestCreateLeadValidationFailure(t *testing.T) {
	called := false
	api := &fakeAPI{createFn: func(fields models.RawRecord) (models.RawRecord, error) {
		called = true
		return fields, nil
	}}
	ws := newTestWorkspace(t, api)

	_, _, err := ws.CreateLead(map[string]interface{}{
		"customer_full_name": "Asha",
		// contact_number missing
	})

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Empty(t, ws.Leads(), "rejected mutation must not touch local state")
	assert.False(t, called, "rejected mutation must not reach the network")
}

func TestCreateLeadWithoutTokenFailsLocally(t *testing.T) {
	called := false
	api := &fakeAPI{createFn: func(fields models.RawRecord) (models.RawRecord, error) {
		called = true
		return fields, nil
	}}
	ws := New(Options{
		API:     api,
		Session: backend.NewSession("", "org-1", "branch-1"),
		Now:     testNow,
	})

	_, _, err := ws.CreateLead(map[string]interface{}{
		"customer_full_name": "Asha",
		"contact_number":     "9876543210",
	})

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.False(t, called)
}

func TestCreateLeadOptimisticThenReconciled(t *testing.T) {
	api := &fakeAPI{createFn: func(fields models.RawRecord) (models.RawRecord, error) {
		created := fields.Clone()
		created["id"] = "server-41"
		created["lead_status"] = "new"
		return created, nil
	}}
	ws := newTestWorkspace(t, api)

	provisionalID, pending, err := ws.CreateLead(map[string]interface{}{
		"customer_full_name": "Asha",
		"contact_number":     "9876543210",
	})
	require.NoError(t, err)
	require.NotEmpty(t, provisionalID)

	// Visible immediately under the provisional id
	_, ok := ws.Record(provisionalID)
	assert.True(t, ok)

	require.NoError(t, waitPending(t, pending))

	// Re-keyed to the server id after reconciliation
	_, ok = ws.Record(provisionalID)
	assert.False(t, ok)
	raw, ok := ws.Record("server-41")
	require.True(t, ok)
	assert.Equal(t, "Asha", raw.String("customer_full_name"))
	assert.False(t, ws.Unsynced("server-41"))
}

func TestCreateLeadBackendFailureMarksUnsynced(t *testing.T) {
	api := &fakeAPI{createFn: func(fields models.RawRecord) (models.RawRecord, error) {
		return nil, errors.NewNetworkFailureError(assert.AnError)
	}}
	ws := newTestWorkspace(t, api)

	provisionalID, pending, err := ws.CreateLead(map[string]interface{}{
		"customer_full_name": "Asha",
		"contact_number":     "9876543210",
	})
	require.NoError(t, err)
	assert.Error(t, waitPending(t, pending))

	// Optimistic record survives, flagged unsynced; no rollback
	raw, ok := ws.Record(provisionalID)
	require.True(t, ok)
	assert.Equal(t, "Asha", raw.String("customer_full_name"))
	assert.True(t, ws.Unsynced(provisionalID))
}

func TestCreateTaskDefaults(t *testing.T) {
	api := &fakeAPI{}
	ws := newTestWorkspace(t, api)

	id, pending, err := ws.CreateTask(map[string]interface{}{
		"task_description": "renew lease",
	})
	require.NoError(t, err)
	require.NoError(t, waitPending(t, pending))

	tasks := ws.Tasks()
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].IsInternal)
	assert.Equal(t, models.TaskStatusPending, tasks[0].Status)
	_ = id
}

func TestCreateLoanNormalizesPromiseDate(t *testing.T) {
	api := &fakeAPI{}
	ws := newTestWorkspace(t, api)

	_, pending, err := ws.CreateLoan(map[string]interface{}{
		"customer_full_name": "Vik",
		"amount":             1000.0,
		"loan_promise_date":  "05/03/2025",
	})
	require.NoError(t, err)
	require.NoError(t, waitPending(t, pending))

	loans := ws.Loans()
	require.Len(t, loans, 1)
	assert.Equal(t, "2025-03-05", loans[0].DueDate)
	// Promise date before the fixed test clock
	assert.Equal(t, models.LoanStatusOverdue, loans[0].LoanStatus)
}

func TestCreateLoanRejectsZeroAmount(t *testing.T) {
	ws := newTestWorkspace(t, &fakeAPI{})

	_, _, err := ws.CreateLoan(map[string]interface{}{
		"customer_full_name": "Vik",
		"amount":             0.0,
		"loan_promise_date":  "2025-04-01",
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func seedWorkspace(t *testing.T, api *fakeAPI, recs ...models.RawRecord) *Workspace {
	t.Helper()
	api.listResult = recs
	ws := newTestWorkspace(t, api)
	require.NoError(t, ws.Refresh(context.Background()))
	return ws
}

func TestAddRemarkAppendsHistoryAndPostsFollowUp(t *testing.T) {
	api := &fakeAPI{}
	ws := seedWorkspace(t, api, models.RawRecord{"id": "lead-1", "customer_full_name": "Asha"})

	pending, err := ws.AddRemark("lead-1", "spoke on phone", "phone")
	require.NoError(t, err)
	require.NoError(t, waitPending(t, pending))

	raw, _ := ws.Record("lead-1")
	assert.Equal(t, "spoke on phone", raw.String("remarks"))
	require.Len(t, raw.List("followups"), 1)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.followUps, 1)
	assert.Equal(t, "lead-1", api.followUps[0].Lead)
	assert.Equal(t, "2025-03-10", api.followUps[0].FollowupDate)
}

func TestAddRemarkRejectsEmpty(t *testing.T) {
	api := &fakeAPI{}
	ws := seedWorkspace(t, api, models.RawRecord{"id": "lead-1"})

	_, err := ws.AddRemark("lead-1", "", "phone")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestSetNextFollowUpNormalizesDate(t *testing.T) {
	api := &fakeAPI{}
	ws := seedWorkspace(t, api, models.RawRecord{"id": "lead-1"})

	pending, err := ws.SetNextFollowUp("lead-1", "15/03/2025", "10:30", "call again")
	require.NoError(t, err)
	require.NoError(t, waitPending(t, pending))

	raw, _ := ws.Record("lead-1")
	assert.Equal(t, "2025-03-15", raw.String("next_followup_date"))
	assert.Equal(t, "10:30", raw.String("next_followup_time"))
}

func TestSetNextFollowUpRejectsBadDate(t *testing.T) {
	ws := seedWorkspace(t, &fakeAPI{}, models.RawRecord{"id": "lead-1"})

	_, err := ws.SetNextFollowUp("lead-1", "sometime soon", "", "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestPatchFailureKeepsOptimisticStateAndFlags(t *testing.T) {
	api := &fakeAPI{updateFn: func(id string, fields models.RawRecord) (models.RawRecord, error) {
		return nil, errors.NewBackendRejectedError(500, "boom")
	}}
	ws := seedWorkspace(t, api, models.RawRecord{"id": "lead-1", "remarks": "old"})

	pending, err := ws.AddRemark("lead-1", "new remark", "phone")
	require.NoError(t, err)
	assert.Error(t, waitPending(t, pending))

	raw, _ := ws.Record("lead-1")
	assert.Equal(t, "new remark", raw.String("remarks"), "no rollback on failure")
	assert.True(t, ws.Unsynced("lead-1"))

	leads := ws.Leads()
	require.Len(t, leads, 1)
	assert.True(t, leads[0].Unsynced)
}

func TestFollowUpPostFailureDoesNotFailMutation(t *testing.T) {
	api := &fakeAPI{followUpErr: errors.NewNetworkFailureError(assert.AnError)}
	ws := seedWorkspace(t, api, models.RawRecord{"id": "lead-1"})

	pending, err := ws.AddRemark("lead-1", "note", "visit")
	require.NoError(t, err)
	assert.NoError(t, waitPending(t, pending))
	assert.False(t, ws.Unsynced("lead-1"))
}

func TestClearLoan(t *testing.T) {
	api := &fakeAPI{}
	ws := seedWorkspace(t, api, models.RawRecord{
		"id": "loan-1", "customer_full_name": "Vik",
		"loan_amount": 1000.0, "recovered_amount": 400.0,
		"loan_promise_date": "2025-03-01",
	})

	pending, err := ws.ClearLoan("loan-1", "settled in cash")
	require.NoError(t, err)
	require.NoError(t, waitPending(t, pending))

	loans := ws.Loans()
	require.Len(t, loans, 1)
	assert.Equal(t, models.LoanStatusCleared, loans[0].LoanStatus)
	assert.Equal(t, 1000.0, loans[0].RecoveredAmount)
}

func TestClearLoanRequiresRemarks(t *testing.T) {
	ws := seedWorkspace(t, &fakeAPI{}, models.RawRecord{"id": "loan-1", "loan_amount": 100.0})

	_, err := ws.ClearLoan("loan-1", "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestClearLoanRejectsNonLoan(t *testing.T) {
	ws := seedWorkspace(t, &fakeAPI{}, models.RawRecord{"id": "lead-1", "customer_full_name": "Asha"})

	_, err := ws.ClearLoan("lead-1", "note")
	require.Error(t, err)
}

func TestAddRecoveryAccumulates(t *testing.T) {
	api := &fakeAPI{}
	ws := seedWorkspace(t, api, models.RawRecord{
		"id": "loan-1", "loan_amount": 1000.0, "recovered_amount": 300.0,
		"loan_promise_date": "2025-04-01",
	})

	pending, err := ws.AddRecovery("loan-1", 200, "second installment")
	require.NoError(t, err)
	require.NoError(t, waitPending(t, pending))

	raw, _ := ws.Record("loan-1")
	assert.Equal(t, 500.0, raw.Number("recovered_amount"))

	pending, err = ws.AddRecovery("loan-1", 500, "final")
	require.NoError(t, err)
	require.NoError(t, waitPending(t, pending))

	loans := ws.Loans()
	require.Len(t, loans, 1)
	assert.Equal(t, models.LoanStatusCleared, loans[0].LoanStatus)
}

func TestAddRecoveryRejectsNonPositive(t *testing.T) {
	ws := seedWorkspace(t, &fakeAPI{}, models.RawRecord{"id": "loan-1", "loan_amount": 100.0})

	_, err := ws.AddRecovery("loan-1", 0, "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestCloseLeadRemovesFromOverdueTimeline(t *testing.T) {
	api := &fakeAPI{}
	ws := seedWorkspace(t, api, models.RawRecord{
		"id": "lead-1", "customer_full_name": "Asha",
		"lead_status": "followup", "next_followup_date": "2025-03-01",
	})

	require.Len(t, ws.OverdueFollowUps(), 1)

	pending, err := ws.CloseLead("lead-1", models.LeadStatusLost, "went with competitor")
	require.NoError(t, err)
	require.NoError(t, waitPending(t, pending))

	assert.Empty(t, ws.OverdueFollowUps())

	raw, _ := ws.Record("lead-1")
	assert.Equal(t, models.ConversionLost, raw.String("conversion_status"))
}

func TestCloseLeadValidatesResult(t *testing.T) {
	ws := seedWorkspace(t, &fakeAPI{}, models.RawRecord{"id": "lead-1"})

	_, err := ws.CloseLead("lead-1", "maybe", "note")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = ws.CloseLead("lead-1", models.LeadStatusConfirmed, "")
	require.Error(t, err)
}

func TestCompleteTask(t *testing.T) {
	api := &fakeAPI{}
	ws := seedWorkspace(t, api, models.RawRecord{
		"id": "task-1", "task_description": "send itinerary", "due_date": "2025-03-01",
	})

	pending, err := ws.CompleteTask("task-1", "sent by email")
	require.NoError(t, err)
	require.NoError(t, waitPending(t, pending))

	tasks := ws.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskStatusCompleted, tasks[0].Status)
}

func TestDeleteRecord(t *testing.T) {
	api := &fakeAPI{}
	ws := seedWorkspace(t, api, models.RawRecord{"id": "lead-1", "customer_full_name": "Asha"})

	pending, err := ws.DeleteRecord("lead-1")
	require.NoError(t, err)

	// Gone immediately
	_, ok := ws.Record("lead-1")
	assert.False(t, ok)

	require.NoError(t, waitPending(t, pending))
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"lead-1"}, api.deletedIDs)
}

func TestDeleteRecordRejectsLoans(t *testing.T) {
	ws := seedWorkspace(t, &fakeAPI{}, models.RawRecord{"id": "loan-1", "loan_amount": 500.0})

	_, err := ws.DeleteRecord("loan-1")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, ok := ws.Record("loan-1")
	assert.True(t, ok)
}

func TestDeleteRecordFailureRestoresRecord(t *testing.T) {
	api := &fakeAPI{deleteErr: errors.NewBackendRejectedError(500, "nope")}
	ws := seedWorkspace(t, api, models.RawRecord{"id": "lead-1", "customer_full_name": "Asha"})

	pending, err := ws.DeleteRecord("lead-1")
	require.NoError(t, err)
	assert.Error(t, waitPending(t, pending))

	raw, ok := ws.Record("lead-1")
	require.True(t, ok, "backend still holds the record, so it must reappear")
	assert.Equal(t, "Asha", raw.String("customer_full_name"))
	assert.True(t, ws.Unsynced("lead-1"))
}

func TestMutationOnMissingRecord(t *testing.T) {
	ws := newTestWorkspace(t, &fakeAPI{})

	_, err := ws.AddRemark("ghost", "note", "phone")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStaleUpdateResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{}
	api.updateFn = func(id string, fields models.RawRecord) (models.RawRecord, error) {
		if fields.String("remarks") == "first" {
			<-release
			// Slow response echoing the stale value
			return models.RawRecord{"id": id, "remarks": "first"}, nil
		}
		return models.RawRecord{"id": id, "remarks": "second"}, nil
	}
	ws := seedWorkspace(t, api, models.RawRecord{"id": "lead-1"})

	p1, err := ws.AddRemark("lead-1", "first", "phone")
	require.NoError(t, err)
	p2, err := ws.AddRemark("lead-1", "second", "phone")
	require.NoError(t, err)

	require.NoError(t, waitPending(t, p2))
	close(release)
	require.NoError(t, waitPending(t, p1))

	raw, _ := ws.Record("lead-1")
	assert.Equal(t, "second", raw.String("remarks"), "stale response must not clobber the newer mutation")
}
