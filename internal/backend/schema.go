// internal/backend/schema.go
package backend

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"agency-workspace/internal/common/errors"
)

// listPayloadSchema is the minimal shape the shared list endpoint must honor:
// an array of objects. Field-level interpretation is left to classification,
// which tolerates anything, but a non-array or an array of scalars means the
// backend contract itself is broken.
var listPayloadSchema = map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type": "object",
	},
}

// ValidateListPayload checks a raw list response body against the contract
// schema before any record is ingested into the workspace.
func ValidateListPayload(body []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(listPayloadSchema)
	documentLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.NewPayloadInvalidError(err.Error())
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return errors.NewPayloadInvalidError(fmt.Sprintf("list payload validation failed: %v", errs))
	}

	return nil
}
