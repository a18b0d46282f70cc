package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used across storage and the API
const DateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD (or a full RFC3339 timestamp) into a UTC midnight time
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return truncateDay(t.UTC()), nil
}

// FormatDate renders a time as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddMonths adds n calendar months, clamping the day to the end of the target month
// (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	t = truncateDay(t)
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween returns the number of whole calendar months from start to end.
// Negative ranges return 0.
func MonthsBetween(start, end time.Time) int {
	start, end = truncateDay(start), truncateDay(end)
	if !end.After(start) {
		return 0
	}
	m := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	for m > 0 && AddMonths(start, m).After(end) {
		m--
	}
	return m
}

// YearsBetween returns the elapsed time in fractional years: whole months / 12
// plus the remaining days over 365.25. Exactly one calendar year is 1.0.
func YearsBetween(start, end time.Time) float64 {
	start, end = truncateDay(start), truncateDay(end)
	if !end.After(start) {
		return 0
	}
	months := MonthsBetween(start, end)
	rest := end.Sub(AddMonths(start, months)).Hours() / 24
	return float64(months)/12 + rest/365.25
}

// YearsBetweenDates is YearsBetween over ISO date strings; unparsable input yields 0
func YearsBetweenDates(start, end string) float64 {
	s, err := ParseDate(start)
	if err != nil {
		return 0
	}
	e, err := ParseDate(end)
	if err != nil {
		return 0
	}
	return YearsBetween(s, e)
}
