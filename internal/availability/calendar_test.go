package availability

import (
	"testing"
	"time"
)

func weekdaysOnly() map[string]Day {
	hours := []Interval{{Start: "08:00", End: "12:00"}}
	return map[string]Day{
		"mon": {Active: true, Intervals: hours},
		"tue": {Active: true, Intervals: hours},
		"wed": {Active: true, Intervals: hours},
		"thu": {Active: true, Intervals: hours},
		"fri": {Active: true, Intervals: hours},
		"sat": {Active: false, Intervals: hours},
		"sun": {Active: true},
	}
}

func TestCalendar_BookableDays(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	cal := NewCalendar(loc)

	// 2026-03-02 01:00 UTC is still Sunday 2026-03-01 in UTC-3.
	now := time.Date(2026, time.March, 2, 1, 0, 0, 0, time.UTC)
	if got := cal.Today(now); got != "2026-03-01" {
		t.Fatalf("Today() = %q, want 2026-03-01", got)
	}

	t.Run("skips inactive and empty weekdays", func(t *testing.T) {
		days := cal.BookableDays(now, 7, Window{}, weekdaysOnly())
		want := []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06"}
		if len(days) != len(want) {
			t.Fatalf("expected %d days, got %v", len(want), days)
		}
		for i, day := range days {
			if day.Date != want[i] {
				t.Fatalf("day %d = %s, want %s", i, day.Date, want[i])
			}
		}
		if days[0].Weekday != "mon" {
			t.Fatalf("expected first weekday mon, got %s", days[0].Weekday)
		}
	})

	t.Run("respects the attendance window", func(t *testing.T) {
		days := cal.BookableDays(now, 30, Window{From: "2026-03-04", Until: "2026-03-05"}, weekdaysOnly())
		if len(days) != 2 || days[0].Date != "2026-03-04" || days[1].Date != "2026-03-05" {
			t.Fatalf("unexpected days: %v", days)
		}
	})

	t.Run("defaults the horizon to thirty days", func(t *testing.T) {
		all := map[string]Day{}
		for _, key := range WeekdayKeys() {
			all[key] = Day{Active: true, Intervals: []Interval{{Start: "09:00", End: "10:00"}}}
		}
		days := cal.BookableDays(now, 0, Window{}, all)
		if len(days) != DefaultHorizonDays {
			t.Fatalf("expected %d days, got %d", DefaultHorizonDays, len(days))
		}
		if days[len(days)-1].Date != "2026-03-30" {
			t.Fatalf("unexpected last day %s", days[len(days)-1].Date)
		}
	})

	t.Run("IsBookable matches the listing", func(t *testing.T) {
		if !cal.IsBookable(now, 7, Window{}, weekdaysOnly(), "2026-03-03") {
			t.Fatalf("expected tuesday to be bookable")
		}
		if cal.IsBookable(now, 7, Window{}, weekdaysOnly(), "2026-03-07") {
			t.Fatalf("expected saturday not to be bookable")
		}
		if cal.IsBookable(now, 7, Window{}, weekdaysOnly(), "2026-02-27") {
			t.Fatalf("expected past date not to be bookable")
		}
	})
}

func TestWindow_Contains(t *testing.T) {
	w := Window{From: "2026-01-10", Until: "2026-01-20"}
	cases := map[string]bool{
		"2026-01-09": false,
		"2026-01-10": true,
		"2026-01-20": true,
		"2026-01-21": false,
	}
	for date, want := range cases {
		if got := w.Contains(date); got != want {
			t.Fatalf("Contains(%s) = %v, want %v", date, got, want)
		}
	}
	if !(Window{}).Contains("1999-12-31") {
		t.Fatalf("open window must contain every date")
	}
}
