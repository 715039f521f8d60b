package types

import "time"

// AddMonths adds n months to a date, clamping the day to the last day of the
// target month instead of letting it overflow the way time.AddDate does
// (Jan 31 + 1 month is Feb 28/29, not Mar 2/3). Billing clocks depend on this:
// a subscription billed on the 31st must keep billing at month end, never
// drift into the following month.
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	lastDay := daysIn(firstOfTarget.Year(), firstOfTarget.Month(), d.Location())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, d.Location())
}

// EndOfMonth returns the last day of the month n months after d.
func EndOfMonth(d time.Time, n int) time.Time {
	y, m, _ := d.Date()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	lastDay := daysIn(firstOfTarget.Year(), firstOfTarget.Month(), d.Location())
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), lastDay, 0, 0, 0, 0, d.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	// day 0 of the next month is the last day of this month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// DateOnly truncates a time to midnight UTC, the resolution billing dates use.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
