// Package calendar does calendar-day arithmetic in a reference timezone,
// including zones where daylight saving skips local midnight.
package calendar

import "time"

// Day is a calendar date with no time or zone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar date of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// AddDays returns the date n days after d. Out of range days are normalized.
func (d Day) AddDays(n int) Day {
	y, m, dd := time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC).Date()
	return Day{Year: y, Month: m, Day: dd}
}

// Before reports whether d comes before other.
func (d Day) Before(other Day) bool {
	return d.key().Before(other.key())
}

func (d Day) key() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Day) String() string {
	return d.key().Format("2006-01-02")
}

// Start returns the first instant of d in loc. When a transition skips
// midnight, that is the moment the day's clock begins.
func (d Day) Start(loc *time.Location) time.Time {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
	if DayOf(t, loc).Before(d) {
		_, end := t.ZoneBounds()
		if !end.IsZero() {
			t = end
		}
	}
	return t
}

// StartOfDay returns the first instant of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	return DayOf(t, loc).Start(loc)
}
