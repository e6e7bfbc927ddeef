// Package dates holds the month arithmetic the reporting pipeline is built
// on. Months are represented as time.Time values at midnight UTC; a reporting
// period is identified by the last calendar day of its month.
package dates

import "time"

// StartOfMonth returns the first day of t's month at midnight UTC.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last day of t's month at midnight UTC.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// AddMonths shifts t by n calendar months, anchored to the first of the
// month so that day-of-month overflow can never skip a month.
func AddMonths(t time.Time, n int) time.Time {
	return StartOfMonth(t).AddDate(0, n, 0)
}

// NextMonth returns the first day of the month after t.
func NextMonth(t time.Time) time.Time {
	return AddMonths(t, 1)
}

// DaysInMonth returns the number of calendar days in t's month.
func DaysInMonth(t time.Time) int {
	return EndOfMonth(t).Day()
}

// DateOnly truncates t to midnight UTC, discarding the time of day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
