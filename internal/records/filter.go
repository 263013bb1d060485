// internal/records/filter.go
package records

import (
	"regexp"
	"strings"

	"agency-workspace/internal/models"
)

var searchDigits = regexp.MustCompile(`[^\d]+`)

// Criteria is a per-tab filter. All set criteria are ANDed; Search is an OR
// across name, contact digits, email and remarks. Today carries the caller's
// canonical current date so filtering stays a pure function of its inputs.
type Criteria struct {
	Search    string
	Status    string
	BranchID  string
	TodayOnly bool
	Today     string
}

func (c Criteria) matchesSearch(name, contact, email, remarks string) bool {
	needle := strings.ToLower(strings.TrimSpace(c.Search))
	if needle == "" {
		return true
	}

	if strings.Contains(strings.ToLower(name), needle) ||
		strings.Contains(strings.ToLower(email), needle) ||
		strings.Contains(strings.ToLower(remarks), needle) {
		return true
	}

	// Contact numbers match on digits only, so "98 76" finds "9876..."
	needleDigits := searchDigits.ReplaceAllString(needle, "")
	if needleDigits != "" && strings.Contains(searchDigits.ReplaceAllString(contact, ""), needleDigits) {
		return true
	}

	return false
}

// FilterLeads returns the subset of leads matching the criteria.
func FilterLeads(leads []models.Lead, c Criteria) []models.Lead {
	out := []models.Lead{}
	for _, lead := range leads {
		if c.Status != "" && lead.LeadStatus != c.Status {
			continue
		}
		if c.BranchID != "" && lead.BranchID != c.BranchID {
			continue
		}
		if c.TodayOnly && lead.NextFollowupDate != c.Today {
			continue
		}
		if !c.matchesSearch(lead.CustomerFullName, lead.ContactNumber, lead.Email, lead.Remarks) {
			continue
		}
		out = append(out, lead)
	}
	return out
}

// FilterLoans returns the subset of loans matching the criteria.
func FilterLoans(loans []models.Loan, c Criteria) []models.Loan {
	out := []models.Loan{}
	for _, loan := range loans {
		if c.Status != "" && loan.LoanStatus != c.Status {
			continue
		}
		if c.BranchID != "" && loan.BranchID != c.BranchID {
			continue
		}
		if c.TodayOnly && loan.DueDate != c.Today {
			continue
		}
		if !c.matchesSearch(loan.CustomerFullName, loan.ContactNumber, loan.Email, loan.Reason) {
			continue
		}
		out = append(out, loan)
	}
	return out
}

// FilterTasks returns the subset of tasks matching the criteria.
func FilterTasks(tasks []models.Task, c Criteria) []models.Task {
	out := []models.Task{}
	for _, task := range tasks {
		if c.Status != "" && task.Status != c.Status {
			continue
		}
		if c.BranchID != "" && task.BranchID != c.BranchID {
			continue
		}
		if c.TodayOnly && task.DueDate != c.Today {
			continue
		}
		if !c.matchesSearch(task.CustomerFullName, task.ContactNumber, "", task.Remarks) {
			continue
		}
		out = append(out, task)
	}
	return out
}
