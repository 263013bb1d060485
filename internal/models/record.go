// internal/models/record.go
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RawRecord is one unclassified item from the shared backend list endpoint.
// No field is guaranteed present and numeric fields arrive as float64, int or
// formatted strings depending on which backend screen wrote them.
type RawRecord map[string]interface{}

var nonDigits = regexp.MustCompile(`[^\d]+`)

// ID returns the record identifier as a string, whatever JSON type it came in.
func (r RawRecord) ID() string {
	switch v := r["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// String returns the first non-empty string value among keys.
func (r RawRecord) String(keys ...string) string {
	for _, key := range keys {
		switch v := r[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

// Number returns the first parseable numeric value among keys, 0 otherwise.
// String values are cleaned of currency symbols and thousands separators
// ("Rs 2,000.50" parses as 2000.50).
func (r RawRecord) Number(keys ...string) float64 {
	for _, key := range keys {
		switch v := r[key].(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case string:
			if n, ok := parseAmount(v); ok {
				return n
			}
		}
	}
	return 0
}

func parseAmount(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0, false
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	// Keep digits, sign and decimal point only
	var b strings.Builder
	for _, c := range cleaned {
		if (c >= '0' && c <= '9') || c == '.' || c == '-' {
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}

	n, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bool reports whether key holds a truthy value. The backend serializes
// booleans inconsistently (true, "true", "True", 1, "1").
func (r RawRecord) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "1" || s == "yes"
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// Has reports whether key is present with a non-empty value.
func (r RawRecord) Has(key string) bool {
	v, exists := r[key]
	if !exists || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// List returns key as a list of nested records (followups, tasks).
func (r RawRecord) List(key string) []RawRecord {
	items, ok := r[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]RawRecord, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, RawRecord(m))
		}
	}
	return out
}

// Digits returns the contact digits of the given field, for search matching.
func (r RawRecord) Digits(keys ...string) string {
	return nonDigits.ReplaceAllString(r.String(keys...), "")
}

// Clone returns a shallow copy safe for optimistic edits.
func (r RawRecord) Clone() RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AppendFollowUp appends one history entry to the record's followups list,
// skipping empty fields.
func (r RawRecord) AppendFollowUp(entry map[string]interface{}) {
	cleaned := map[string]interface{}{}
	for k, v := range entry {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		cleaned[k] = v
	}

	existing, _ := r["followups"].([]interface{})
	r["followups"] = append(existing, cleaned)
}

// Merge overlays other onto r and returns the result. Fields the server did
// not return survive from the local copy.
func (r RawRecord) Merge(other RawRecord) RawRecord {
	out := r.Clone()
	for k, v := range other {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}
