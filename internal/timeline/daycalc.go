package timeline

import "time"

// DayCalculator converts dates to program days for one start date.
type DayCalculator struct {
	Start time.Time
	loc   *time.Location
}

// NewDayCalculator returns a calculator counting calendar days in loc.
// A nil loc means time.Local.
func NewDayCalculator(start time.Time, loc *time.Location) DayCalculator {
	if loc == nil {
		loc = time.Local
	}
	return DayCalculator{Start: start, loc: loc}
}

// DayOn returns the program day containing t. The start date is day 1.
func (c DayCalculator) DayOn(t time.Time) int {
	return DaysBetween(c.Start, t, c.location()) + 1
}

// Location returns the calendar location days are counted in.
func (c DayCalculator) Location() *time.Location {
	return c.location()
}

func (c DayCalculator) location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// DaysBetween counts calendar days from a to b in loc, ignoring the time
// of day. It is negative when b falls on an earlier day than a.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	return int(civilDay(b, loc).Sub(civilDay(a, loc)).Hours() / 24)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DaysBetween(a, b, loc) == 0
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// civilDay maps t's calendar date in loc onto UTC midnight so that day
// differences are unaffected by DST transitions.
func civilDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
