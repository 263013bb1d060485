// internal/models/task.go
package models

const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
	TaskStatusOverdue   = "overdue"
)

type Task struct {
	ID               string `json:"id"`
	CustomerFullName string `json:"customerFullName,omitempty"`
	ContactNumber    string `json:"contactNumber,omitempty"`
	AssignedTo       string `json:"assignedTo,omitempty"`
	TaskType         string `json:"taskType,omitempty"`
	Remarks          string `json:"remarks"`
	Status           string `json:"status"`
	LeadStatus       string `json:"leadStatus"`
	DueDate          string `json:"dueDate"`
	Time             string `json:"time"`
	IsInternal       bool   `json:"isInternal"`
	BranchID         string `json:"branchId"`
	Unsynced         bool   `json:"unsynced,omitempty"`

	Raw RawRecord `json:"-"`
}
