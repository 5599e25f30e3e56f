package availability

import (
	"time"
)

// brt is used when no location is configured.
var brt = time.FixedZone("BRT", -3*60*60)

// DefaultHorizonDays is the number of days, today included, offered to the public.
const DefaultHorizonDays = 30

// Window is an inclusive range of "YYYY-MM-DD" dates. Empty bounds are open.
type Window struct {
	From  string
	Until string
}

// Contains reports whether date lies inside the window.
func (w Window) Contains(date string) bool {
	if w.From != "" && date < w.From {
		return false
	}
	if w.Until != "" && date > w.Until {
		return false
	}
	return true
}

// CalendarDay is a bookable date together with its weekday key.
type CalendarDay struct {
	Date    string
	Weekday string
}

// Calendar resolves "today" and walks dates in a fixed location.
type Calendar struct {
	location *time.Location
}

// NewCalendar constructs a Calendar for the provided location.
// If loc is nil, a fixed UTC-3 zone is used.
func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = brt
	}
	return &Calendar{location: loc}
}

// Location returns the calendar's location.
func (c *Calendar) Location() *time.Location {
	return c.location
}

// Today returns the calendar date of now in the calendar's location.
func (c *Calendar) Today(now time.Time) string {
	return now.In(c.location).Format(DateLayout)
}

// BookableDays walks horizon days starting today and keeps those inside the
// window whose weekday is active with at least one interval.
func (c *Calendar) BookableDays(now time.Time, horizon int, window Window, week map[string]Day) []CalendarDay {
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}

	local := now.In(c.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	days := make([]CalendarDay, 0, horizon)
	for i := 0; i < horizon; i++ {
		current := start.AddDate(0, 0, i)
		date := current.Format(DateLayout)
		if !window.Contains(date) {
			continue
		}
		key := WeekdayKey(current.Weekday())
		day, ok := week[key]
		if !ok || !day.Active || len(day.Intervals) == 0 {
			continue
		}
		days = append(days, CalendarDay{Date: date, Weekday: key})
	}
	return days
}

// IsBookable reports whether date would be returned by BookableDays.
func (c *Calendar) IsBookable(now time.Time, horizon int, window Window, week map[string]Day, date string) bool {
	for _, day := range c.BookableDays(now, horizon, window, week) {
		if day.Date == date {
			return true
		}
	}
	return false
}
