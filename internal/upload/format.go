package upload

import (
	"time"

	"hydromet/internal/domain"
)

// FormatIssuedHour renders t in UTC truncated to the hour with separators
// stripped, e.g. 2024-03-15T12:34:56Z -> "2024031512".
func FormatIssuedHour(t time.Time) string {
	return domain.FormatIssuedHour(t)
}

// ParseIssuedHour is the inverse of FormatIssuedHour.
func ParseIssuedHour(s string) (time.Time, error) {
	return domain.ParseIssuedHour(s)
}
