package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testSchema() JSONSchema {
	min := 0.01
	minLen := 1
	return JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"customer_full_name": {Type: "string", MinLength: &minLen},
			"amount":             {Type: "number", Minimum: &min},
			"lead_status":        {Type: "string", Enum: []string{"new", "followup", "confirmed", "lost"}},
		},
		Required:             []string{"customer_full_name"},
		AdditionalProperties: true,
	}
}

func TestValidateInputRequiredFields(t *testing.T) {
	result := ValidateInput(map[string]interface{}{}, testSchema())
	assert.False(t, result.Valid)
	assert.Len(t, result.GetErrorsForField("customer_full_name"), 1)

	// Empty string counts as missing
	result = ValidateInput(map[string]interface{}{"customer_full_name": ""}, testSchema())
	assert.False(t, result.Valid)
}

func TestValidateInputTypeAndRange(t *testing.T) {
	result := ValidateInput(map[string]interface{}{
		"customer_full_name": "Asha",
		"amount":             "lots",
	}, testSchema())
	assert.False(t, result.Valid)

	result = ValidateInput(map[string]interface{}{
		"customer_full_name": "Asha",
		"amount":             0.0,
	}, testSchema())
	assert.False(t, result.Valid)

	result = ValidateInput(map[string]interface{}{
		"customer_full_name": "Asha",
		"amount":             150.0,
	}, testSchema())
	assert.True(t, result.Valid)
}

func TestValidateInputEnum(t *testing.T) {
	result := ValidateInput(map[string]interface{}{
		"customer_full_name": "Asha",
		"lead_status":        "maybe",
	}, testSchema())
	assert.False(t, result.Valid)

	result = ValidateInput(map[string]interface{}{
		"customer_full_name": "Asha",
		"lead_status":        "confirmed",
	}, testSchema())
	assert.True(t, result.Valid)
}

func TestValidateInputAdditionalProperties(t *testing.T) {
	result := ValidateInput(map[string]interface{}{
		"customer_full_name": "Asha",
		"anything_else":      "rides along",
	}, testSchema())
	assert.True(t, result.Valid)
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("asha@example.com"))
	assert.False(t, ValidateEmail("not-an-email"))
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("+91 98765 43210"))
	assert.False(t, ValidatePhone("123"))
}
