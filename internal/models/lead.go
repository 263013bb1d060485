// internal/models/lead.go
package models

const (
	LeadStatusNew       = "new"
	LeadStatusFollowup  = "followup"
	LeadStatusConfirmed = "confirmed"
	LeadStatusLost      = "lost"
)

const (
	ConversionNotConverted = "not_converted"
	ConversionToBooking    = "converted_to_booking"
	ConversionLost         = "lost"
)

type Lead struct {
	ID               string          `json:"id"`
	CustomerFullName string          `json:"customerFullName"`
	ContactNumber    string          `json:"contactNumber"`
	WhatsappNumber   string          `json:"whatsappNumber,omitempty"`
	Email            string          `json:"email,omitempty"`
	Address          string          `json:"address,omitempty"`
	LeadStatus       string          `json:"leadStatus"`
	ConversionStatus string          `json:"conversionStatus"`
	InterestedIn     string          `json:"interestedIn,omitempty"`
	LeadSource       string          `json:"leadSource,omitempty"`
	NextFollowupDate string          `json:"nextFollowupDate,omitempty"`
	NextFollowupTime string          `json:"nextFollowupTime,omitempty"`
	Remarks          string          `json:"remarks,omitempty"`
	BranchID         string          `json:"branchId"`
	FollowUps        []FollowUpEntry `json:"followups,omitempty"`
	Unsynced         bool            `json:"unsynced,omitempty"`

	Raw RawRecord `json:"-"`
}
