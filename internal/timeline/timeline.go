package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/fitsync/internal/model"
	"github.com/roach88/fitsync/internal/prefs"
)

// Timeline reads and writes the persisted run state.
type Timeline struct {
	prefs prefs.Store
	clock model.Clock
	loc   *time.Location
}

// New returns a Timeline over p. A nil clock means the system clock; a nil
// loc means time.Local.
func New(p prefs.Store, clock model.Clock, loc *time.Location) *Timeline {
	if clock == nil {
		clock = model.SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Timeline{prefs: p, clock: clock, loc: loc}
}

// Location returns the calendar location days are counted in.
func (t *Timeline) Location() *time.Location { return t.loc }

// Now returns the current time in the timeline's location.
func (t *Timeline) Now() time.Time { return t.clock.Now().In(t.loc) }

// Calculator returns a day calculator for start in the timeline's location.
func (t *Timeline) Calculator(start time.Time) DayCalculator {
	return NewDayCalculator(start, t.loc)
}

// StartDate returns the persisted run start date. ok is false when no run
// has been started.
func (t *Timeline) StartDate() (start time.Time, ok bool, err error) {
	v, err := t.prefs.Get(prefs.StartDateKey)
	if errors.Is(err, prefs.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read start date: %w", err)
	}
	start, err = time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse start date %q: %w", v, err)
	}
	return start.In(t.loc), true, nil
}

// SetStartDate persists start.
func (t *Timeline) SetStartDate(start time.Time) error {
	if err := t.prefs.Set(prefs.StartDateKey, start.In(t.loc).Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("write start date: %w", err)
	}
	return nil
}

// MaxReadDay returns the server's high-water mark for read info posts.
func (t *Timeline) MaxReadDay() (day int, ok bool, err error) {
	v, err := t.prefs.Get(prefs.MaxReadDayKey)
	if errors.Is(err, prefs.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read max read day: %w", err)
	}
	day, err = strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("parse max read day %q: %w", v, err)
	}
	return day, true, nil
}

// SetMaxReadDay persists the server's high-water mark.
func (t *Timeline) SetMaxReadDay(day int) error {
	if err := t.prefs.Set(prefs.MaxReadDayKey, strconv.Itoa(day)); err != nil {
		return fmt.Errorf("write max read day: %w", err)
	}
	return nil
}

// CurrentDay returns today's program day. ok is false when no run has been
// started or the start date cannot be read.
func (t *Timeline) CurrentDay() (int, bool) {
	start, ok, err := t.StartDate()
	if err != nil || !ok {
		return 0, false
	}
	return t.Calculator(start).DayOn(t.Now()), true
}

// Clear removes the start date and max read day.
func (t *Timeline) Clear() error {
	if err := t.prefs.Delete(prefs.StartDateKey); err != nil {
		return fmt.Errorf("clear start date: %w", err)
	}
	if err := t.prefs.Delete(prefs.MaxReadDayKey); err != nil {
		return fmt.Errorf("clear max read day: %w", err)
	}
	return nil
}
