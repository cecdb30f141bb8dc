// Package dates holds the calendar helpers shared by the scheduler and the
// planner. Planner dates are plain "YYYY-MM-DD" strings and times of day are
// "HH:MM" strings; neither carries a time zone.
package dates

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the layout of a calendar date string.
	DateLayout = "2006-01-02"
	// TimeLayout is the layout of a time-of-day string.
	TimeLayout = "15:04"
)

// FormatDate returns the calendar date of t in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a "YYYY-MM-DD" string as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// NextCalendarDay returns the day after date.
func NextCalendarDay(date string) (string, error) {
	return AddDays(date, 1)
}

// AddDays shifts date by n calendar days (n may be negative).
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, n)), nil
}

// IsValidDate reports whether s is a well-formed calendar date.
func IsValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// IsValidTime reports whether s is a well-formed "HH:MM" time of day.
func IsValidTime(s string) bool {
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WholeDays returns the number of complete 24h periods from 'from' to 'to'.
// The result is negative when 'to' is before 'from'.
func WholeDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24.0)
}

// SameDay reports whether a and b fall on the same calendar day in a's
// location.
func SameDay(a, b time.Time) bool {
	return FormatDate(a) == FormatDate(b.In(a.Location()))
}
