package punch

import "time"

// =============================================================================
// DAY BOUNDARY RESOLUTION - Local-midnight windows in the org's timezone
// =============================================================================

// DayWindow is a closed [Start, End] instant range covering whole calendar
// days. End is the inclusive 23:59:59.999 instant of the last day: range
// queries must use closed comparisons so the final millisecond of a day is
// never excluded.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the closed window.
func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ResolveLocation maps an organization's configured IANA zone name to a
// location, falling back to UTC when unset or unknown.
func ResolveLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DayStart returns local midnight of t's calendar day in loc, as an instant.
func DayStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DayEnd returns the inclusive end of t's calendar day: 23:59:59.999 local.
func DayEnd(t time.Time, loc *time.Location) time.Time {
	return DayStart(t, loc).Add(24*time.Hour - time.Millisecond)
}

// WindowFor returns the closed single-day window containing t.
func WindowFor(t time.Time, loc *time.Location) DayWindow {
	return DayWindow{Start: DayStart(t, loc), End: DayEnd(t, loc)}
}

// PeriodWindow returns the closed window [dayStart(from), dayEnd(to)],
// inclusive on both ends.
func PeriodWindow(from, to time.Time, loc *time.Location) DayWindow {
	return DayWindow{Start: DayStart(from, loc), End: DayEnd(to, loc)}
}

// DayKey formats t's calendar day in loc as YYYY-MM-DD. Used as the stored
// grouping key so the (scope, day, ordinal) uniqueness constraint can be
// expressed directly in the database.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
