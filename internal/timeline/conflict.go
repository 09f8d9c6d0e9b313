package timeline

import "time"

// Conflict holds the two candidate timelines when the local start date and
// the server's start date fall on different calendar days.
type Conflict struct {
	App  DayCalculator
	Site DayCalculator
}

// AppDay is today's day under the local start date.
func (c *Conflict) AppDay(now time.Time) int { return c.App.DayOn(now) }

// SiteDay is today's day under the server's start date.
func (c *Conflict) SiteDay(now time.Time) int { return c.Site.DayOn(now) }
