package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of every calendar date.
const DateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD (or an RFC3339 timestamp) and returns UTC midnight.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Midnight(t), nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Midnight truncates t to its calendar day, expressed in UTC.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a date by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween returns the number of whole days from b to a (a - b).
func DaysBetween(a, b time.Time) int {
	return int(Midnight(a).Sub(Midnight(b)).Hours() / 24)
}

// MonthsBetween returns the number of whole calendar months elapsed from
// since to now. It is zero when now is before since.
func MonthsBetween(since, now time.Time) int {
	since, now = Midnight(since), Midnight(now)
	if now.Before(since) {
		return 0
	}
	months := (now.Year()-since.Year())*12 + int(now.Month()) - int(since.Month())
	if now.Day() < since.Day() {
		months--
	}
	return months
}
