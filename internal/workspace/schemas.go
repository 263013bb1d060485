// internal/workspace/schemas.go
package workspace

import (
	"agency-workspace/internal/common/validation"
)

func float64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int             { return &i }

// Mutation input schemas. Validation runs locally before any optimistic
// apply; a schema failure means no state change and no network call.
var (
	createLeadSchema = validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"customer_full_name":  {Type: "string", MinLength: intPtr(1)},
			"contact_number":      {Type: "string", MinLength: intPtr(5)},
			"email":               {Type: "string"},
			"address":             {Type: "string"},
			"lead_status":         {Type: "string", Enum: []string{"new", "followup", "confirmed", "lost"}},
			"next_followup_date":  {Type: "string"},
			"next_followup_time":  {Type: "string"},
			"remarks":             {Type: "string"},
			"branch_id":           {Type: "string"},
			"travel_date":         {Type: "string"},
			"destination":         {Type: "string"},
			"number_of_travelers": {Type: "number", Minimum: float64Ptr(1)},
		},
		Required:             []string{"customer_full_name", "contact_number"},
		AdditionalProperties: true,
	}

	createTaskSchema = validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"task_description": {Type: "string", MinLength: intPtr(1)},
			"task_type":        {Type: "string"},
			"assigned_to":      {Type: "string"},
			"due_date":         {Type: "string"},
			"is_internal_task": {Type: "boolean"},
			"status":           {Type: "string", Enum: []string{"pending", "completed", "overdue"}},
			"remarks":          {Type: "string"},
			"branch_id":        {Type: "string"},
		},
		Required:             []string{"task_description"},
		AdditionalProperties: true,
	}

	createLoanSchema = validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"customer_full_name": {Type: "string", MinLength: intPtr(1)},
			"contact_number":     {Type: "string"},
			"amount":             {Type: "number", Minimum: float64Ptr(0.01)},
			"loan_promise_date":  {Type: "string", MinLength: intPtr(1)},
			"loan_reason":        {Type: "string"},
			"branch_id":          {Type: "string"},
		},
		Required:             []string{"customer_full_name", "amount", "loan_promise_date"},
		AdditionalProperties: true,
	}
)
