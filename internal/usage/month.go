package usage

import "time"

// MonthStart returns the ledger month for now: the first day of the calendar
// month as seen in loc, stored as a UTC midnight date.
func MonthStart(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, time.UTC)
}
