// internal/records/dates.go
package records

import (
	"regexp"
	"strings"
	"time"
)

const canonicalDate = "2006-01-02"

var (
	isoPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// fallback layouts for values no rule matched; tried in order.
var parseLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02-01-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// NormalizeDate reduces any backend date representation to canonical
// YYYY-MM-DD. It never fails: unparseable input degrades to "".
func NormalizeDate(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(canonicalDate)
	case string:
		return normalizeString(v)
	default:
		return ""
	}
}

func normalizeString(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// Already canonical (possibly with a trailing time or zone)
	if isoPrefix.MatchString(s) {
		return s[:10]
	}

	// Datetime with T or space separator: keep the date half and re-run.
	// The space split only applies when the left fragment is itself
	// date-shaped; textual dates like "Mar 5, 2025" contain spaces too and
	// must reach the layout fallback intact.
	if idx := strings.Index(s, "T"); idx > 0 {
		return normalizeString(s[:idx])
	}
	if idx := strings.Index(s, " "); idx > 0 {
		if left := s[:idx]; isoPrefix.MatchString(left) || slashDate.MatchString(left) {
			return normalizeString(left)
		}
	}

	// Slash-delimited dates are day-first
	if m := slashDate.FindStringSubmatch(s); m != nil {
		day, month, year := m[1], m[2], m[3]
		if len(day) == 1 {
			day = "0" + day
		}
		if len(month) == 1 {
			month = "0" + month
		}
		return year + "-" + month + "-" + day
	}

	// Last resort: generic parse, then re-run the rules on the result
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return normalizeString(t.Format(canonicalDate))
		}
	}

	return ""
}

// FormatDateTime produces a canonical "YYYY-MM-DD HH:MM" display string.
// When the value cannot be parsed the original string is returned unmodified.
func FormatDateTime(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format("2006-01-02 15:04")
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return ""
		}

		datetimeLayouts := []string{
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02T15:04",
			"2006-01-02 15:04",
		}
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("2006-01-02 15:04")
			}
		}

		// Date-only values display with a midnight time component
		if date := normalizeString(s); date != "" {
			return date + " 00:00"
		}
		return v
	default:
		return ""
	}
}

// Today returns the current date in canonical form.
func Today() string {
	return time.Now().Format(canonicalDate)
}

// DaysBetween returns whole days from one canonical date to another,
// clamped to >= 0. Either side failing to parse yields 0.
func DaysBetween(from, to string) int {
	start, err := time.Parse(canonicalDate, from)
	if err != nil {
		return 0
	}
	end, err := time.Parse(canonicalDate, to)
	if err != nil {
		return 0
	}
	days := int(end.Sub(start).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
