// internal/records/followup.go
package records

import (
	"sort"

	"agency-workspace/internal/models"
)

// terminalStates excludes records from the overdue timeline. A record whose
// lifecycle ended needs no further chasing: lost and confirmed leads, settled
// loans, completed tasks.
var terminalStates = map[string]bool{
	models.LeadStatusLost:      true,
	models.LeadStatusConfirmed: true,
	models.LoanStatusCleared:   true,
	models.TaskStatusCompleted: true,
}

// OverdueFollowUps merges leads, tasks and loans into a single timeline of
// records whose follow-up date is strictly before today and whose status is
// not terminal, sorted oldest first. The result is recomputed in full on
// every call; callers re-invoke after any mutation.
func OverdueFollowUps(leads []models.Lead, tasks []models.Task, loans []models.Loan, today string) []models.FollowUpItem {
	items := []models.FollowUpItem{}

	for _, lead := range leads {
		date := lead.NextFollowupDate
		if !isOverdue(date, lead.LeadStatus, today) {
			continue
		}
		items = append(items, models.FollowUpItem{
			Kind:             models.KindLead,
			RecordID:         lead.ID,
			CustomerFullName: lead.CustomerFullName,
			ContactNumber:    lead.ContactNumber,
			FollowUpDate:     date,
			DaysOverdue:      DaysBetween(date, today),
			Status:           lead.LeadStatus,
			Remarks:          lead.Remarks,
		})
	}

	for _, task := range tasks {
		date := NormalizeDate(task.Raw.String("next_followup_date", "due_date", "followup_date"))
		if !isOverdue(date, task.Status, today) {
			continue
		}
		items = append(items, models.FollowUpItem{
			Kind:             models.KindTask,
			RecordID:         task.ID,
			CustomerFullName: task.CustomerFullName,
			ContactNumber:    task.ContactNumber,
			FollowUpDate:     date,
			DaysOverdue:      DaysBetween(date, today),
			Status:           task.Status,
			Remarks:          task.Remarks,
		})
	}

	for _, loan := range loans {
		date := NormalizeDate(loan.Raw.String("loan_promise_date", "due_date", "next_followup_date"))
		if !isOverdue(date, loan.LoanStatus, today) {
			continue
		}
		items = append(items, models.FollowUpItem{
			Kind:             models.KindLoan,
			RecordID:         loan.ID,
			CustomerFullName: loan.CustomerFullName,
			ContactNumber:    loan.ContactNumber,
			FollowUpDate:     date,
			DaysOverdue:      DaysBetween(date, today),
			Status:           loan.LoanStatus,
			Remarks:          loan.Reason,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].FollowUpDate < items[j].FollowUpDate
	})

	return items
}

func isOverdue(date, status, today string) bool {
	if date == "" || date >= today {
		return false
	}
	return !terminalStates[status]
}
