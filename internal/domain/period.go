package domain

import "time"

// PeriodStart returns the start of the current reporting window for t in loc:
// weekly is Monday 00:00 of the current week, monthly is the 1st at 00:00.
// The returned time is in UTC for use against stored timestamps.
func PeriodStart(t Type, now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	switch t {
	case Monthly:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).UTC()
	default:
		return WeekStart(now, loc)
	}
}

// WeekStart returns Monday 00:00 of the week containing now, in loc.
func WeekStart(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	// time.Weekday has Sunday=0; shift so Monday=0.
	offset := (int(local.Weekday()) + 6) % 7
	day := local.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc).UTC()
}

// LastWorkingDay returns the last working day of the given month: the last
// calendar day, shifted back to the preceding Friday if it falls on Saturday
// or Sunday. No other weekday shifts.
func LastWorkingDay(year int, month time.Month, loc *time.Location) time.Time {
	// Day 0 of the next month is the last day of this month.
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	switch last.Weekday() {
	case time.Saturday:
		return last.AddDate(0, 0, -1)
	case time.Sunday:
		return last.AddDate(0, 0, -2)
	default:
		return last
	}
}

// IsLastWorkingDay reports whether now falls on the month's last working day in loc.
func IsLastWorkingDay(now time.Time, loc *time.Location) bool {
	local := now.In(loc)
	lwd := LastWorkingDay(local.Year(), local.Month(), loc)
	return local.Year() == lwd.Year() && local.Month() == lwd.Month() && local.Day() == lwd.Day()
}

// FormatDate renders a stored UTC timestamp for display in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02 15:04")
}
