package calendar

import (
	"fmt"
	"strings"
	"time"
)

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	WeekendsOnly CalendarID = "WeekendsOnly"
	TARGET       CalendarID = "TARGET"
	USD          CalendarID = "USD"
)

// Parse maps a calendar name to its ID.
func Parse(name string) (CalendarID, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "WEEKENDSONLY", "WEEKENDS_ONLY":
		return WeekendsOnly, nil
	case "TARGET", "EUR":
		return TARGET, nil
	case "USD", "US":
		return USD, nil
	default:
		return "", fmt.Errorf("calendar: unknown calendar %q", name)
	}
}

func isHoliday(cal CalendarID, t time.Time) bool {
	switch cal {
	case TARGET:
		return isTargetHoliday(t)
	case USD:
		return isUSDHoliday(t)
	default:
		return false
	}
}

// isTargetHoliday covers the TARGET2 closing days: New Year, Good Friday,
// Easter Monday, Labour Day, Christmas and Boxing Day.
func isTargetHoliday(t time.Time) bool {
	m, d := t.Month(), t.Day()
	switch {
	case m == time.January && d == 1,
		m == time.May && d == 1,
		m == time.December && (d == 25 || d == 26):
		return true
	}
	easter := easterSunday(t.Year())
	return sameDay(t, easter.AddDate(0, 0, -2)) || sameDay(t, easter.AddDate(0, 0, 1))
}

// isUSDHoliday covers fixed-date federal holidays with Sat->Fri and Sun->Mon observance.
func isUSDHoliday(t time.Time) bool {
	for _, h := range []time.Time{
		time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(t.Year(), time.July, 4, 0, 0, 0, 0, time.UTC),
		time.Date(t.Year(), time.December, 25, 0, 0, 0, 0, time.UTC),
	} {
		switch h.Weekday() {
		case time.Saturday:
			h = h.AddDate(0, 0, -1)
		case time.Sunday:
			h = h.AddDate(0, 0, 1)
		}
		if sameDay(t, h) {
			return true
		}
	}
	return false
}

// easterSunday uses the anonymous Gregorian algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal CalendarID, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(cal, t)
}

// Adjust applies Modified Following.
func Adjust(cal CalendarID, t time.Time) time.Time {
	origMonth := t.Month()
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	if t.Month() != origMonth {
		t = t.AddDate(0, 0, -1)
		for !IsBusinessDay(cal, t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// AdjustFollowing applies a simple Following convention (no month preservation).
func AdjustFollowing(cal CalendarID, t time.Time) time.Time {
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal CalendarID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}

// BusinessDays returns every business day in [start, end] in ascending order.
// Both endpoints are always included, business day or not.
func BusinessDays(cal CalendarID, start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	days = append(days, start)
	for d := start.AddDate(0, 0, 1); d.Before(end); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(cal, d) {
			days = append(days, d)
		}
	}
	if end.After(start) {
		days = append(days, end)
	}
	return days
}

// NextIMMDate returns the first 20 Mar/Jun/Sep/Dec strictly after t.
func NextIMMDate(t time.Time) time.Time {
	cand := time.Date(t.Year(), t.Month(), 20, 0, 0, 0, 0, time.UTC)
	for cand.Month()%3 != 0 || !cand.After(t) {
		cand = cand.AddDate(0, 1, 0)
	}
	return cand
}

// PreviousIMMDate returns the last 20 Mar/Jun/Sep/Dec on or before t.
func PreviousIMMDate(t time.Time) time.Time {
	d := NextIMMDate(t).AddDate(0, -3, 0)
	if d.After(t) {
		d = d.AddDate(0, -3, 0)
	}
	return d
}

