// Package calendar contains the pure date helpers shared by every scheduler:
// day comparison, weekend and holiday detection, weekend-block keys and
// rotation-block lookup. Nothing in this package holds state.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

// DateLayout is the canonical date format used across the application
const DateLayout = "2006-01-02"

// DateOnly normalises t to midnight UTC of the same calendar date
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsSameDay reports calendar-date equality, ignoring time of day
func IsSameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// DayKey returns the YYYY-MM-DD key for a date
func DayKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// DaysBetween returns the number of calendar days from a to b (negative if b is before a)
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// NextDay returns the following calendar date
func NextDay(t time.Time) time.Time {
	return DateOnly(t).AddDate(0, 0, 1)
}

// PreviousDay returns the preceding calendar date
func PreviousDay(t time.Time) time.Time {
	return DateOnly(t).AddDate(0, 0, -1)
}

// EachDay returns every date in the period, in chronological order
func EachDay(p model.Period) []time.Time {
	days := make([]time.Time, 0, p.Days())
	for d := DateOnly(p.Start); !d.After(DateOnly(p.End)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// IsWeekend returns true for Saturday and Sunday
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Holidays is a set of holiday dates keyed by YYYY-MM-DD
type Holidays map[string]struct{}

// NewHolidays builds a holiday set from explicit dates
func NewHolidays(dates ...time.Time) Holidays {
	h := make(Holidays, len(dates))
	for _, d := range dates {
		h[DayKey(d)] = struct{}{}
	}
	return h
}

// Contains returns true if date is a configured holiday
func (h Holidays) Contains(date time.Time) bool {
	if h == nil {
		return false
	}
	_, ok := h[DayKey(date)]
	return ok
}

// Dates returns the holiday dates in chronological order
func (h Holidays) Dates() []time.Time {
	dates := make([]time.Time, 0, len(h))
	for k := range h {
		d, err := time.Parse(DateLayout, k)
		if err == nil {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// ExpandHolidays builds the holiday set for a period from explicit dates plus
// RFC 5545 recurrence rules (e.g. "FREQ=YEARLY;BYMONTH=12;BYMONTHDAY=25").
// Rules without a DTSTART are anchored one year before the period so yearly
// rules produce their occurrence inside the period.
func ExpandHolidays(rules []string, dates []time.Time, period model.Period) (Holidays, error) {
	h := NewHolidays(dates...)

	anchor := time.Date(period.Start.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC)
	after := DateOnly(period.Start)
	before := DateOnly(period.End).AddDate(0, 0, 1).Add(-time.Nanosecond)

	for i, rule := range rules {
		r, err := rrule.StrToRRule(rule)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday rrule[%d]: %w", i, err)
		}
		r.DTStart(anchor)

		for _, occurrence := range r.Between(after, before, true) {
			h[DayKey(occurrence)] = struct{}{}
		}
	}

	return h, nil
}

// IsWeekendOrHoliday returns true if date is a Saturday, Sunday or configured holiday
func IsWeekendOrHoliday(date time.Time, holidays Holidays) bool {
	return IsWeekend(date) || holidays.Contains(date)
}

// FridayOf returns the Friday that anchors the weekend block containing date.
// Only meaningful for Friday, Saturday and Sunday.
func FridayOf(date time.Time) time.Time {
	d := DateOnly(date)
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, -2)
	}
	return d
}

// WeekendBlockKey returns a stable key grouping Friday, Saturday and Sunday of the
// same weekend. Keys look like "WB-2025-08-01". When the Friday-to-Sunday span
// crosses a month boundary the key carries an "-X" suffix so cross-month weekends
// are distinguishable. Weekdays return ("", false).
func WeekendBlockKey(date time.Time) (string, bool) {
	switch date.Weekday() {
	case time.Friday, time.Saturday, time.Sunday:
	default:
		return "", false
	}

	friday := FridayOf(date)
	sunday := friday.AddDate(0, 0, 2)

	key := "WB-" + DayKey(friday)
	if friday.Month() != sunday.Month() {
		key += "-X"
	}
	return key, true
}

// WeekendBlockFriday parses the Friday date back out of a weekend block key
func WeekendBlockFriday(key string) (time.Time, bool) {
	if len(key) < len("WB-2006-01-02") {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, key[3:13])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
