// internal/models/loan.go
package models

// Loan statuses are always derived from amounts and dates, never read back
// verbatim from storage.
const (
	LoanStatusPending = "pending"
	LoanStatusCleared = "cleared"
	LoanStatusOverdue = "overdue"
)

type Loan struct {
	ID               string  `json:"id"`
	CustomerFullName string  `json:"customerFullName"`
	ContactNumber    string  `json:"contactNumber"`
	Email            string  `json:"email"`
	Amount           float64 `json:"amount"`
	DueDate          string  `json:"dueDate"`
	Time             string  `json:"time"`
	Reason           string  `json:"reason"`
	RecoveredAmount  float64 `json:"recoveredAmount"`
	RecoveryDate     string  `json:"recoveryDate"`
	LoanStatus       string  `json:"loanStatus"`
	BranchID         string  `json:"branchId"`
	Unsynced         bool    `json:"unsynced,omitempty"`

	Raw RawRecord `json:"-"`
}
