// internal/records/dates_test.go
package records

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"nil", nil, ""},
		{"empty string", "", ""},
		{"whitespace only", "   ", ""},
		{"already canonical", "2025-03-05", "2025-03-05"},
		{"iso with time suffix", "2025-03-05T10:30:00Z", "2025-03-05"},
		{"iso with space time", "2025-03-05 10:30:00", "2025-03-05"},
		{"slash day first", "05/03/2025", "2025-03-05"},
		{"slash single digits", "5/3/2025", "2025-03-05"},
		{"slash with time", "05/03/2025 10:30", "2025-03-05"},
		{"dash day first", "05-03-2025", "2025-03-05"},
		{"textual month", "Mar 5, 2025", "2025-03-05"},
		{"textual long month", "March 5, 2025", "2025-03-05"},
		{"textual day first", "5 Mar 2025", "2025-03-05"},
		{"garbage", "not a date", ""},
		{"number input", 42, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDate(tt.input))
		})
	}
}

func TestNormalizeDateTimeValue(t *testing.T) {
	ts := time.Date(2025, 3, 5, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-05", NormalizeDate(ts))
	assert.Equal(t, "", NormalizeDate(time.Time{}))
}

func TestNormalizeDateIdempotent(t *testing.T) {
	inputs := []string{"2025-03-05", "05/03/2025", "2025-03-05T10:30:00Z", "junk"}
	for _, in := range inputs {
		once := NormalizeDate(in)
		assert.Equal(t, once, NormalizeDate(once), "normalization must be idempotent for %q", in)
	}
}

func TestFormatDateTime(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"nil", nil, ""},
		{"empty", "", ""},
		{"datetime with seconds", "2025-03-05 14:30:45", "2025-03-05 14:30"},
		{"iso datetime", "2025-03-05T14:30:45", "2025-03-05 14:30"},
		{"date only gets midnight", "2025-03-05", "2025-03-05 00:00"},
		{"slash date gets midnight", "05/03/2025", "2025-03-05 00:00"},
		{"unparseable passes through", "whenever", "whenever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDateTime(tt.input))
		})
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 3, DaysBetween("2025-03-02", "2025-03-05"))
	assert.Equal(t, 0, DaysBetween("2025-03-05", "2025-03-05"))

	// Future dates clamp to zero instead of going negative
	assert.Equal(t, 0, DaysBetween("2025-03-08", "2025-03-05"))

	assert.Equal(t, 0, DaysBetween("junk", "2025-03-05"))
	assert.Equal(t, 0, DaysBetween("2025-03-05", ""))
}
