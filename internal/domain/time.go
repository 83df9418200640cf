package domain

import (
	"fmt"
	"strings"
	"time"
)

// IssuedHourLayout renders a UTC time truncated to the hour with separators
// stripped, e.g. 2024031512.
const IssuedHourLayout = "2006010215"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	IssuedHourLayout,
}

// ParseTimestamp accepts RFC 3339, browser datetime-local values, plain dates
// and issued-hour strings. Values without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseIssuedHour parses a YYYYMMDDHH string.
func ParseIssuedHour(s string) (time.Time, error) {
	if len(s) != len(IssuedHourLayout) {
		return time.Time{}, fmt.Errorf("issued hour %q: want YYYYMMDDHH", s)
	}
	return time.ParseInLocation(IssuedHourLayout, s, time.UTC)
}

// FormatIssuedHour renders t in UTC as YYYYMMDDHH.
func FormatIssuedHour(t time.Time) string {
	return t.UTC().Format(IssuedHourLayout)
}
