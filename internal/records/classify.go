// internal/records/classify.go
package records

import (
	"agency-workspace/internal/models"
)

// Classify assigns exactly one kind to a raw record. The backend does not tag
// record kinds, so classification is duck-typed with a fixed precedence:
//
//  1. Loan: any positive loan or recovered amount. Wins over every other
//     signal; a record with both loan and task fields lands in the loans tab.
//  2. Task: task-shaped fields (tasks list, internal flag, task type,
//     assignee or description).
//  3. Lead: everything else.
//
// The function is total and idempotent: every record gets a verdict and
// reclassifying a classified record's raw map never changes it.
func Classify(raw models.RawRecord) models.Kind {
	if raw.Number("loan_amount", "amount") > 0 || raw.Number("recovered_amount", "recovered") > 0 {
		return models.KindLoan
	}

	if len(raw.List("tasks")) > 0 ||
		raw.Bool("is_internal_task") ||
		raw.Has("task_type") ||
		raw.Has("assigned_to") ||
		raw.Has("task_description") {
		return models.KindTask
	}

	return models.KindLead
}

// AsLoan materializes the loan view of a raw record. The status is derived
// fresh on every call; a stored loan_status is never trusted for display.
func AsLoan(raw models.RawRecord, today string) models.Loan {
	amount := raw.Number("loan_amount", "amount")
	recovered := raw.Number("recovered_amount", "recovered")
	dueDate := NormalizeDate(raw.String("loan_promise_date", "due_date", "next_followup_date"))

	return models.Loan{
		ID:               raw.ID(),
		CustomerFullName: raw.String("customer_full_name"),
		ContactNumber:    raw.String("contact_number"),
		Email:            raw.String("email"),
		Amount:           amount,
		DueDate:          dueDate,
		Time:             raw.String("next_followup_time", "time"),
		Reason:           raw.String("reason", "task_description", "remarks"),
		RecoveredAmount:  recovered,
		RecoveryDate:     NormalizeDate(raw.String("recovery_date")),
		LoanStatus:       DeriveLoanStatus(amount, recovered, dueDate, today),
		BranchID:         raw.String("branch_id", "branch"),
		Raw:              raw,
	}
}

// AsTask materializes the task view of a raw record.
func AsTask(raw models.RawRecord, today string) models.Task {
	_ = today // tasks derive status from stored signals, not dates

	return models.Task{
		ID:               raw.ID(),
		CustomerFullName: raw.String("customer_full_name"),
		ContactNumber:    raw.String("contact_number"),
		AssignedTo:       raw.String("assigned_to"),
		TaskType:         raw.String("task_type"),
		Remarks:          raw.String("task_description", "remarks"),
		Status:           DeriveTaskStatus(raw.String("status"), raw.String("loan_status")),
		LeadStatus:       raw.String("lead_status"),
		DueDate:          NormalizeDate(raw.String("next_followup_date", "due_date")),
		Time:             raw.String("next_followup_time", "time"),
		IsInternal:       raw.Bool("is_internal_task"),
		BranchID:         raw.String("branch_id", "branch"),
		Raw:              raw,
	}
}

// AsLead materializes the lead view of a raw record.
func AsLead(raw models.RawRecord) models.Lead {
	lead := models.Lead{
		ID:               raw.ID(),
		CustomerFullName: raw.String("customer_full_name"),
		ContactNumber:    raw.String("contact_number"),
		WhatsappNumber:   raw.String("whatsapp_number"),
		Email:            raw.String("email"),
		Address:          raw.String("address"),
		LeadStatus:       raw.String("lead_status"),
		ConversionStatus: raw.String("conversion_status"),
		InterestedIn:     raw.String("interested_in"),
		LeadSource:       raw.String("lead_source"),
		NextFollowupDate: NormalizeDate(raw.String("next_followup_date")),
		NextFollowupTime: raw.String("next_followup_time"),
		Remarks:          raw.String("remarks"),
		BranchID:         raw.String("branch_id", "branch"),
		Raw:              raw,
	}

	if lead.LeadStatus == "" {
		lead.LeadStatus = models.LeadStatusNew
	}
	if lead.ConversionStatus == "" {
		lead.ConversionStatus = models.ConversionNotConverted
	}

	for _, entry := range raw.List("followups") {
		lead.FollowUps = append(lead.FollowUps, models.FollowUpEntry{
			FollowupDate:      NormalizeDate(entry.String("followup_date")),
			Remarks:           entry.String("remarks"),
			NextFollowupDate:  NormalizeDate(entry.String("next_followup_date")),
			NextFollowupTime:  entry.String("next_followup_time"),
			ContactedVia:      entry.String("contacted_via"),
			FollowupResult:    entry.String("followup_result"),
			CreatedByUsername: entry.String("created_by_username"),
		})
	}

	return lead
}
