// internal/records/status.go
package records

import (
	"agency-workspace/internal/models"
)

// DeriveLoanStatus computes a loan's display status from its amounts and due
// date. The backend's stored loan_status is a hint only; this derivation is
// authoritative, so a freshly recorded recovery flips the status without a
// server round trip.
func DeriveLoanStatus(amount, recovered float64, dueDate, today string) string {
	if amount > 0 && recovered >= amount {
		return models.LoanStatusCleared
	}
	if amount > 0 && dueDate != "" && dueDate < today && recovered < amount {
		return models.LoanStatusOverdue
	}
	return models.LoanStatusPending
}

// DeriveTaskStatus reconciles a task's two status signals. An explicit
// non-default status wins; otherwise a legacy loan_status-shaped value is
// mapped over (cleared means completed), and pending is the floor.
func DeriveTaskStatus(explicit, legacyLoanStatus string) string {
	if explicit != "" && explicit != models.TaskStatusPending {
		return explicit
	}

	switch legacyLoanStatus {
	case models.LoanStatusCleared:
		return models.TaskStatusCompleted
	case models.LoanStatusOverdue:
		return models.TaskStatusOverdue
	default:
		return models.TaskStatusPending
	}
}
