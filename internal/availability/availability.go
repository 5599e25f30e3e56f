// Package availability computes the bookable time-of-day slots of an agenda day.
//
// The calculator is pure: it works over an in-memory snapshot of the day's
// configured intervals and the appointments already stored for that date, and
// it never reports errors. Malformed input is expected to be filtered upstream;
// anything that still fails to parse is skipped.
package availability

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultDurationMinutes applies when the selected service has no usable duration.
const DefaultDurationMinutes = 30

// Interval is a working window expressed as "HH:MM" clock times.
type Interval struct {
	Start string
	End   string
}

// Day is the configuration of a single weekday.
type Day struct {
	Active    bool
	Intervals []Interval
}

// Booking is the minimal view of an existing appointment used for capacity counting.
type Booking struct {
	AgendaID string
	Date     string
	Time     string
}

// Request bundles the inputs of a single availability computation.
type Request struct {
	AgendaID        string
	Date            string
	Day             Day
	DurationMinutes int
	MaxPerSlot      int
	Bookings        []Booking
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(value string) (int, error) {
	hours, minutes, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0, fmt.Errorf("availability: clock %q must be HH:MM", value)
	}
	h, err := strconv.Atoi(hours)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("availability: invalid hour in %q", value)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m > 59 || len(minutes) != 2 {
		return 0, fmt.Errorf("availability: invalid minute in %q", value)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as zero padded "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Generate expands each interval into back-to-back slots of the given duration.
//
// A slot is emitted while its end still fits inside the interval, so an exact
// fit on the interval end is included. Slots are concatenated in interval
// order and are not re-sorted.
func Generate(intervals []Interval, durationMinutes int) []string {
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}

	slots := make([]string, 0)
	for _, interval := range intervals {
		start, err := ParseClock(interval.Start)
		if err != nil {
			continue
		}
		end, err := ParseClock(interval.End)
		if err != nil {
			continue
		}
		for current := start; current+durationMinutes <= end; current += durationMinutes {
			slots = append(slots, FormatClock(current))
		}
	}
	return slots
}

// Count returns how many bookings share the agenda, date and exact time string.
func Count(bookings []Booking, agendaID, date, clock string) int {
	count := 0
	for _, booking := range bookings {
		if booking.AgendaID == agendaID && booking.Date == date && booking.Time == clock {
			count++
		}
	}
	return count
}

// Available returns the generated slots whose booking count is still below capacity.
// Full slots are omitted entirely.
func Available(req Request) []string {
	if !req.Day.Active || len(req.Day.Intervals) == 0 {
		return []string{}
	}

	maxPerSlot := req.MaxPerSlot
	if maxPerSlot <= 0 {
		maxPerSlot = 1
	}

	candidates := Generate(req.Day.Intervals, req.DurationMinutes)
	offered := make([]string, 0, len(candidates))
	for _, slot := range candidates {
		if Count(req.Bookings, req.AgendaID, req.Date, slot) < maxPerSlot {
			offered = append(offered, slot)
		}
	}
	return offered
}

// Contains reports whether slot is one of the generated slots of the day.
func Contains(day Day, durationMinutes int, slot string) bool {
	if !day.Active {
		return false
	}
	for _, candidate := range Generate(day.Intervals, durationMinutes) {
		if candidate == slot {
			return true
		}
	}
	return false
}
