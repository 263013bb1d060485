// internal/models/followup.go
package models

// Kind is the closed tag produced by classification. Downstream code matches
// on it and never re-inspects raw fields.
type Kind string

const (
	KindLoan Kind = "loan"
	KindTask Kind = "task"
	KindLead Kind = "lead"
)

// FollowUpEntry is one history item from a record's nested followups list.
type FollowUpEntry struct {
	FollowupDate      string `json:"followupDate"`
	Remarks           string `json:"remarks"`
	NextFollowupDate  string `json:"nextFollowupDate,omitempty"`
	NextFollowupTime  string `json:"nextFollowupTime,omitempty"`
	ContactedVia      string `json:"contactedVia,omitempty"`
	FollowupResult    string `json:"followupResult,omitempty"`
	CreatedByUsername string `json:"createdByUsername,omitempty"`
}

// FollowUpItem is one entry in the aggregated overdue timeline.
type FollowUpItem struct {
	Kind             Kind   `json:"kind"`
	RecordID         string `json:"recordId"`
	CustomerFullName string `json:"customerFullName"`
	ContactNumber    string `json:"contactNumber,omitempty"`
	FollowUpDate     string `json:"followUpDate"`
	DaysOverdue      int    `json:"daysOverdue"`
	Status           string `json:"status"`
	Remarks          string `json:"remarks,omitempty"`
}
