// internal/workspace/mutations.go
package workspace

import (
	"context"
	"strings"
	"time"

	"agency-workspace/internal/backend"
	"agency-workspace/internal/common/errors"
	"agency-workspace/internal/common/metrics"
	"agency-workspace/internal/common/validation"
	"agency-workspace/internal/models"
	"agency-workspace/internal/records"

	"github.com/google/uuid"
)

// Pending tracks the asynchronous backend leg of an optimistic mutation.
// The mutation itself returns as soon as local state is updated; callers that
// need the reconciled outcome (tests, the ops endpoints) wait on Pending.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// Wait blocks until the backend leg completed or ctx expires.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

const (
	actionCreateLead      = "create_lead"
	actionCreateTask      = "create_task"
	actionCreateLoan      = "create_loan"
	actionAddRemark       = "add_remark"
	actionSetNextFollowUp = "set_next_followup"
	actionRescheduleLoan  = "reschedule_loan"
	actionClearLoan       = "clear_loan"
	actionAddRecovery     = "add_recovery"
	actionCloseLead       = "close_lead"
	actionCompleteTask    = "complete_task"
	actionDelete          = "delete_record"

	outcomeRejected   = "rejected"
	outcomeOptimistic = "optimistic"
	outcomeReconciled = "reconciled"
	outcomeDiscarded  = "discarded"
	outcomeFailed     = "failed"
)

func (w *Workspace) validate(action string, input map[string]interface{}, schema validation.JSONSchema) error {
	result := validation.ValidateInput(input, schema)
	if result.Valid {
		return nil
	}
	metrics.MutationsApplied.WithLabelValues(action, outcomeRejected).Inc()
	first := result.Errors[0]
	return errors.NewValidationFailedError(first.Field, strings.Join(result.GetErrorMessages(), "; "))
}

// checkSession verifies credentials before any optimistic apply. A missing
// token fails the mutation locally without touching workspace state.
func (w *Workspace) checkSession(action string) (backend.RequestContext, error) {
	rc, err := w.session.Context()
	if err != nil {
		metrics.MutationsApplied.WithLabelValues(action, outcomeRejected).Inc()
		return backend.RequestContext{}, err
	}
	if err := rc.RequireToken(); err != nil {
		metrics.MutationsApplied.WithLabelValues(action, outcomeRejected).Inc()
		return backend.RequestContext{}, err
	}
	return rc, nil
}

// CreateLead inserts a lead under a provisional id and creates it on the
// backend in the background. Returns the provisional id; reconciliation
// re-keys the record once the server assigns its own.
func (w *Workspace) CreateLead(input map[string]interface{}) (string, *Pending, error) {
	return w.create(actionCreateLead, input, createLeadSchema, nil)
}

// CreateTask inserts a task record. The task marker fields make
// classification land it on the tasks tab immediately.
func (w *Workspace) CreateTask(input map[string]interface{}) (string, *Pending, error) {
	return w.create(actionCreateTask, input, createTaskSchema, func(raw models.RawRecord) {
		if _, ok := raw["is_internal_task"]; !ok {
			raw["is_internal_task"] = true
		}
		if _, ok := raw["status"]; !ok {
			raw["status"] = models.TaskStatusPending
		}
	})
}

// CreateLoan inserts a loan record. The positive amount classifies it as a
// loan; its status derives from amount, recovery and promise date.
func (w *Workspace) CreateLoan(input map[string]interface{}) (string, *Pending, error) {
	return w.create(actionCreateLoan, input, createLoanSchema, func(raw models.RawRecord) {
		raw["loan_promise_date"] = records.NormalizeDate(raw["loan_promise_date"])
		if _, ok := raw["recovered_amount"]; !ok {
			raw["recovered_amount"] = 0
		}
	})
}

func (w *Workspace) create(action string, input map[string]interface{}, schema validation.JSONSchema, prepare func(models.RawRecord)) (string, *Pending, error) {
	if err := w.validate(action, input, schema); err != nil {
		return "", nil, err
	}
	rc, err := w.checkSession(action)
	if err != nil {
		return "", nil, err
	}

	raw := models.RawRecord{}
	for k, v := range input {
		raw[k] = v
	}
	if prepare != nil {
		prepare(raw)
	}

	provisionalID := uuid.New().String()
	raw["id"] = provisionalID
	raw["created_at"] = w.now().Format("2006-01-02 15:04")
	raw["organization"] = rc.Organization
	if rc.Branch != "" {
		if _, ok := raw["branch_id"]; !ok {
			raw["branch_id"] = rc.Branch
		}
	}

	seq := w.applyOptimistic(provisionalID, raw)
	metrics.MutationsApplied.WithLabelValues(action, outcomeOptimistic).Inc()
	w.journalEntry(action, provisionalID, outcomeOptimistic, input)

	pending := newPending()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		payload := raw.Clone()
		delete(payload, "id")
		server, err := w.api.CreateRecord(ctx, rc, payload)
		if err != nil {
			w.failMutation(action, provisionalID, err)
			pending.finish(err)
			return
		}

		if server.ID() == "" {
			// Some create routes echo the record without its id. Match on
			// the creation composite key instead.
			key := map[string]string{
				"customer_full_name": raw.String("customer_full_name"),
				"contact_number":     raw.String("contact_number"),
			}
			if action == actionCreateTask {
				key = map[string]string{
					"task_description": raw.String("task_description"),
					"created_at":       raw.String("created_at"),
				}
			}
			if w.reconcileByKey(key, server) {
				metrics.MutationsApplied.WithLabelValues(action, outcomeReconciled).Inc()
				w.journalEntry(action, provisionalID, outcomeReconciled, server)
			}
			pending.finish(nil)
			return
		}

		if w.reconcile(provisionalID, seq, server) {
			metrics.MutationsApplied.WithLabelValues(action, outcomeReconciled).Inc()
			w.journalEntry(action, server.ID(), outcomeReconciled, server)
		} else {
			metrics.MutationsApplied.WithLabelValues(action, outcomeDiscarded).Inc()
		}
		pending.finish(nil)
	}()

	return provisionalID, pending, nil
}

// AddRemark records a contact attempt: remarks on the record plus a history
// entry. The history post rides along with the field update but its failure
// does not undo it.
func (w *Workspace) AddRemark(id, remarks, contactedVia string) (*Pending, error) {
	if remarks == "" {
		metrics.MutationsApplied.WithLabelValues(actionAddRemark, outcomeRejected).Inc()
		return nil, errors.NewValidationFailedError("remarks", "remarks must not be empty")
	}
	return w.patch(actionAddRemark, id, models.RawRecord{
		"remarks": remarks,
	}, &backend.FollowUpRequest{
		Lead:         id,
		FollowupDate: w.today(),
		ContactedVia: contactedVia,
		Remarks:      remarks,
	})
}

// SetNextFollowUp schedules the next contact for a lead or task.
func (w *Workspace) SetNextFollowUp(id, date, timeOfDay, remarks string) (*Pending, error) {
	normalized := records.NormalizeDate(date)
	if normalized == "" {
		metrics.MutationsApplied.WithLabelValues(actionSetNextFollowUp, outcomeRejected).Inc()
		return nil, errors.NewValidationFailedError("next_followup_date", "unparseable date: "+date)
	}
	fields := models.RawRecord{"next_followup_date": normalized}
	if timeOfDay != "" {
		fields["next_followup_time"] = timeOfDay
	}
	return w.patch(actionSetNextFollowUp, id, fields, &backend.FollowUpRequest{
		Lead:             id,
		FollowupDate:     w.today(),
		Remarks:          remarks,
		NextFollowupDate: normalized,
		NextFollowupTime: timeOfDay,
	})
}

// RescheduleLoan moves a loan's promise date forward.
func (w *Workspace) RescheduleLoan(id, newDate, remarks string) (*Pending, error) {
	normalized := records.NormalizeDate(newDate)
	if normalized == "" {
		metrics.MutationsApplied.WithLabelValues(actionRescheduleLoan, outcomeRejected).Inc()
		return nil, errors.NewValidationFailedError("loan_promise_date", "unparseable date: "+newDate)
	}
	if err := w.requireKind(actionRescheduleLoan, id, models.KindLoan); err != nil {
		return nil, err
	}
	return w.patch(actionRescheduleLoan, id, models.RawRecord{
		"loan_promise_date": normalized,
	}, &backend.FollowUpRequest{
		Lead:             id,
		FollowupDate:     w.today(),
		Remarks:          remarks,
		NextFollowupDate: normalized,
	})
}

// ClearLoan settles a loan in full: recovered is raised to the amount, which
// derives the cleared status on the next read. Remarks are mandatory so every
// settlement carries a note.
func (w *Workspace) ClearLoan(id, remarks string) (*Pending, error) {
	if remarks == "" {
		metrics.MutationsApplied.WithLabelValues(actionClearLoan, outcomeRejected).Inc()
		return nil, errors.NewValidationFailedError("remarks", "settlement remarks must not be empty")
	}
	if err := w.requireKind(actionClearLoan, id, models.KindLoan); err != nil {
		return nil, err
	}

	raw, _ := w.Record(id)
	amount := raw.Number("loan_amount", "amount")
	return w.patch(actionClearLoan, id, models.RawRecord{
		"recovered_amount": amount,
		"recovery_date":    w.today(),
		"remarks":          remarks,
	}, &backend.FollowUpRequest{
		Lead:           id,
		FollowupDate:   w.today(),
		Remarks:        remarks,
		FollowupResult: "cleared",
	})
}

// AddRecovery records a partial repayment against a loan.
func (w *Workspace) AddRecovery(id string, amount float64, remarks string) (*Pending, error) {
	if amount <= 0 {
		metrics.MutationsApplied.WithLabelValues(actionAddRecovery, outcomeRejected).Inc()
		return nil, errors.NewValidationFailedError("amount", "recovery amount must be positive")
	}
	if err := w.requireKind(actionAddRecovery, id, models.KindLoan); err != nil {
		return nil, err
	}

	raw, _ := w.Record(id)
	recovered := raw.Number("recovered_amount", "recovered") + amount
	fields := models.RawRecord{
		"recovered_amount": recovered,
		"recovery_date":    w.today(),
	}
	if remarks != "" {
		fields["remarks"] = remarks
	}
	return w.patch(actionAddRecovery, id, fields, nil)
}

// CloseLead finishes a lead as confirmed or lost. Closed records drop out of
// the overdue timeline on the next recomputation.
func (w *Workspace) CloseLead(id, result, remarks string) (*Pending, error) {
	if result != models.LeadStatusConfirmed && result != models.LeadStatusLost {
		metrics.MutationsApplied.WithLabelValues(actionCloseLead, outcomeRejected).Inc()
		return nil, errors.NewValidationFailedError("lead_status", "close result must be confirmed or lost")
	}
	if remarks == "" {
		metrics.MutationsApplied.WithLabelValues(actionCloseLead, outcomeRejected).Inc()
		return nil, errors.NewValidationFailedError("remarks", "closing remarks must not be empty")
	}

	conversion := models.ConversionLost
	if result == models.LeadStatusConfirmed {
		conversion = models.ConversionToBooking
	}
	return w.patch(actionCloseLead, id, models.RawRecord{
		"lead_status":       result,
		"conversion_status": conversion,
		"remarks":           remarks,
	}, &backend.FollowUpRequest{
		Lead:           id,
		FollowupDate:   w.today(),
		Remarks:        remarks,
		FollowupResult: result,
	})
}

// CompleteTask marks a task done.
func (w *Workspace) CompleteTask(id, remarks string) (*Pending, error) {
	if err := w.requireKind(actionCompleteTask, id, models.KindTask); err != nil {
		return nil, err
	}
	fields := models.RawRecord{"status": models.TaskStatusCompleted}
	if remarks != "" {
		fields["remarks"] = remarks
	}
	return w.patch(actionCompleteTask, id, fields, nil)
}

// DeleteRecord removes a lead or task. Loans cannot be deleted; they settle
// through recovery instead.
func (w *Workspace) DeleteRecord(id string) (*Pending, error) {
	raw, ok := w.Record(id)
	if !ok {
		metrics.MutationsApplied.WithLabelValues(actionDelete, outcomeRejected).Inc()
		return nil, errors.NewRecordNotFoundError(id)
	}
	if records.Classify(raw) == models.KindLoan {
		metrics.MutationsApplied.WithLabelValues(actionDelete, outcomeRejected).Inc()
		return nil, errors.NewValidationFailedError("id", "loan records have no delete path")
	}
	rc, err := w.checkSession(actionDelete)
	if err != nil {
		return nil, err
	}

	w.remove(id)
	metrics.MutationsApplied.WithLabelValues(actionDelete, outcomeOptimistic).Inc()
	w.journalEntry(actionDelete, id, outcomeOptimistic, nil)

	pending := newPending()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := w.api.DeleteRecord(ctx, rc, id); err != nil && !errors.IsNotFound(err) {
			// The backend still holds the record. Restore the local copy
			// flagged unsynced so the divergence stays visible.
			w.applyOptimistic(id, raw)
			w.markUnsynced(id)
			metrics.MutationsApplied.WithLabelValues(actionDelete, outcomeFailed).Inc()
			w.journalEntry(actionDelete, id, outcomeFailed, map[string]interface{}{"error": err.Error()})
			pending.finish(err)
			return
		}
		metrics.MutationsApplied.WithLabelValues(actionDelete, outcomeReconciled).Inc()
		w.journalEntry(actionDelete, id, outcomeReconciled, nil)
		pending.finish(nil)
	}()

	return pending, nil
}

// requireKind rejects a mutation aimed at a record of the wrong kind.
func (w *Workspace) requireKind(action, id string, kind models.Kind) error {
	raw, ok := w.Record(id)
	if !ok {
		metrics.MutationsApplied.WithLabelValues(action, outcomeRejected).Inc()
		return errors.NewRecordNotFoundError(id)
	}
	if records.Classify(raw) != kind {
		metrics.MutationsApplied.WithLabelValues(action, outcomeRejected).Inc()
		return errors.NewValidationFailedError("id", "record is not a "+string(kind))
	}
	return nil
}

// patch is the shared optimistic update path: overlay fields locally, then
// send the partial update and an optional follow-up history entry in the
// background. A failed backend leg leaves the optimistic state in place and
// flags the record unsynced; there is no rollback.
func (w *Workspace) patch(action, id string, fields models.RawRecord, followUp *backend.FollowUpRequest) (*Pending, error) {
	local, ok := w.Record(id)
	if !ok {
		metrics.MutationsApplied.WithLabelValues(action, outcomeRejected).Inc()
		return nil, errors.NewRecordNotFoundError(id)
	}
	rc, err := w.checkSession(action)
	if err != nil {
		return nil, err
	}

	updated := local.Merge(fields)
	if followUp != nil && followUp.Remarks != "" {
		updated.AppendFollowUp(map[string]interface{}{
			"followup_date":      followUp.FollowupDate,
			"contacted_via":      followUp.ContactedVia,
			"remarks":            followUp.Remarks,
			"next_followup_date": followUp.NextFollowupDate,
			"followup_result":    followUp.FollowupResult,
		})
	}

	seq := w.applyOptimistic(id, updated)
	metrics.MutationsApplied.WithLabelValues(action, outcomeOptimistic).Inc()
	w.journalEntry(action, id, outcomeOptimistic, fields)

	pending := newPending()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server, err := w.api.UpdateRecord(ctx, rc, id, fields)
		if err != nil {
			w.failMutation(action, id, err)
			pending.finish(err)
			return
		}

		// The history post is independent: its failure is logged, never
		// rolled into the primary outcome.
		if followUp != nil {
			if fuErr := w.api.AddFollowUp(ctx, rc, *followUp); fuErr != nil {
				w.logger.Warn("follow-up history post failed", map[string]interface{}{
					"record_id": id,
					"error":     fuErr.Error(),
				})
			}
		}

		if server == nil {
			// Empty update response: the optimistic copy stands.
			metrics.MutationsApplied.WithLabelValues(action, outcomeReconciled).Inc()
			w.journalEntry(action, id, outcomeReconciled, nil)
			pending.finish(nil)
			return
		}

		if w.reconcile(id, seq, server) {
			metrics.MutationsApplied.WithLabelValues(action, outcomeReconciled).Inc()
			w.journalEntry(action, id, outcomeReconciled, server)
		} else {
			metrics.MutationsApplied.WithLabelValues(action, outcomeDiscarded).Inc()
			w.journalEntry(action, id, outcomeDiscarded, nil)
		}
		pending.finish(nil)
	}()

	return pending, nil
}

func (w *Workspace) failMutation(action, id string, err error) {
	w.markUnsynced(id)
	metrics.MutationsApplied.WithLabelValues(action, outcomeFailed).Inc()
	w.journalEntry(action, id, outcomeFailed, map[string]interface{}{"error": err.Error()})
	w.logger.Error("mutation backend leg failed", map[string]interface{}{
		"action":    action,
		"record_id": id,
		"error":     err.Error(),
	})
}
