package availability

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format shared by agendas and appointments.
const DateLayout = "2006-01-02"

var weekdayKeys = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// WeekdayKey returns the configuration key ("sun".."sat") of a weekday.
func WeekdayKey(day time.Weekday) string {
	if day < time.Sunday || day > time.Saturday {
		return ""
	}
	return weekdayKeys[day]
}

// ParseWeekdayKey resolves a configuration key back to its weekday.
func ParseWeekdayKey(key string) (time.Weekday, error) {
	normalized := strings.ToLower(strings.TrimSpace(key))
	for i, candidate := range weekdayKeys {
		if candidate == normalized {
			return time.Weekday(i), nil
		}
	}
	return time.Sunday, fmt.Errorf("availability: unknown weekday %q", key)
}

// WeekdayKeys lists every configuration key, Sunday first.
func WeekdayKeys() []string {
	out := make([]string, len(weekdayKeys))
	copy(out, weekdayKeys[:])
	return out
}

// ParseDate parses a "YYYY-MM-DD" calendar date at midnight UTC.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("availability: date %q must be YYYY-MM-DD", value)
	}
	return parsed, nil
}

// DateWeekday returns the weekday key of a "YYYY-MM-DD" date.
func DateWeekday(value string) (string, error) {
	parsed, err := ParseDate(value)
	if err != nil {
		return "", err
	}
	return WeekdayKey(parsed.Weekday()), nil
}
