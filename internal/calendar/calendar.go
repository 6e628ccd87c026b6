// Package calendar converts between calendar dates, form input strings and
// the UTC instants stored with each reservation.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LocalLayout is the format produced by HTML datetime-local inputs.
const LocalLayout = "2006-01-02T15:04"

var ErrInvalidInstant = errors.New("invalid date/time")

// Instant normalizes t to the persisted representation: UTC, second precision.
func Instant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Parse reads an RFC 3339 timestamp, or a wall-clock datetime-local value
// interpreted in loc.
func Parse(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidInstant
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Instant(t), nil
	}
	for _, layout := range []string{LocalLayout, LocalLayout + ":05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Instant(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInstant, s)
}

// FormatLocal renders t as a datetime-local value in loc.
func FormatLocal(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(LocalLayout)
}

// MonthRange returns [first day of month, first day of next month) in loc.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Instant(start), Instant(start.AddDate(0, 1, 0))
}

// SchedulerWindow is the default calendar range: the month containing now
// and the following one.
func SchedulerWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return Instant(start), Instant(start.AddDate(0, 2, 0))
}
