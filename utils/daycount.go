package utils

import (
	"fmt"
	"strings"
	"time"
)

// Day count conventions understood by YearFraction.
const (
	Act360  = "ACT/360"
	Act365F = "ACT/365F"
	Thirty  = "30/360"
	Thirty0 = "30E/360"
)

// StubRule controls whether the first and last day of an accrual period count.
type StubRule int

const (
	// IncludeFirstExcludeEnd is the plain [start, end) convention.
	IncludeFirstExcludeEnd StubRule = iota
	// ExcludeFirstExcludeEnd drops one day from the end.
	ExcludeFirstExcludeEnd
	// IncludeFirstIncludeEnd adds one day to the end (the CDS standard model's final period).
	IncludeFirstIncludeEnd
)

func (s StubRule) String() string {
	switch s {
	case IncludeFirstExcludeEnd:
		return "IncludeFirstExcludeEnd"
	case ExcludeFirstExcludeEnd:
		return "ExcludeFirstExcludeEnd"
	case IncludeFirstIncludeEnd:
		return "IncludeFirstIncludeEnd"
	default:
		return fmt.Sprintf("StubRule(%d)", int(s))
	}
}

// ParseStubRule maps a stub rule name to its value.
func ParseStubRule(name string) (StubRule, error) {
	switch strings.TrimSpace(name) {
	case "", "IncludeFirstExcludeEnd":
		return IncludeFirstExcludeEnd, nil
	case "ExcludeFirstExcludeEnd":
		return ExcludeFirstExcludeEnd, nil
	case "IncludeFirstIncludeEnd":
		return IncludeFirstIncludeEnd, nil
	default:
		return 0, fmt.Errorf("utils: unknown stub rule %q", name)
	}
}

// ParseDayCount normalises a day count name.
func ParseDayCount(name string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ACT/360", "A360":
		return Act360, nil
	case "ACT/365F", "ACT/365", "A365F":
		return Act365F, nil
	case "30/360", "30U/360":
		return Thirty, nil
	case "30E/360":
		return Thirty0, nil
	default:
		return "", fmt.Errorf("utils: unknown day count %q", name)
	}
}

// YearFraction computes year fraction between two dates using the specified day count convention.
// Supported conventions: ACT/360, ACT/365F, 30E/360, 30/360
func YearFraction(start, end time.Time, convention string) float64 {
	switch convention {
	case Act360:
		return Days(start, end) / 360.0
	case Act365F:
		return Days(start, end) / 365.0
	case Thirty0:
		// 30E/360 ISDA (Eurobond basis): D1 and D2 are capped at 30
		d1 := min(start.Day(), 30)
		d2 := min(end.Day(), 30)
		return thirty360(start, end, d1, d2)
	case Thirty:
		// 30/360 US bond basis: D2 is capped only when D1 was.
		d1 := min(start.Day(), 30)
		d2 := end.Day()
		if d2 == 31 && d1 == 30 {
			d2 = 30
		}
		return thirty360(start, end, d1, d2)
	default:
		return Days(start, end) / 365.0
	}
}

func thirty360(start, end time.Time, d1, d2 int) float64 {
	y1, m1 := start.Year(), int(start.Month())
	y2, m2 := end.Year(), int(end.Month())
	return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
}

// DayCountPolicy pairs a convention with a stub rule.
type DayCountPolicy struct {
	Convention string
	Stub       StubRule
}

// YearFraction applies the stub rule to end and then the convention.
// 30/360-family conventions ignore the stub rule.
func (p DayCountPolicy) YearFraction(start, end time.Time) float64 {
	if p.Convention == Thirty || p.Convention == Thirty0 {
		return YearFraction(start, end, p.Convention)
	}
	switch p.Stub {
	case IncludeFirstIncludeEnd:
		end = end.AddDate(0, 0, 1)
	case ExcludeFirstExcludeEnd:
		end = end.AddDate(0, 0, -1)
	}
	return YearFraction(start, end, p.Convention)
}

// Validate reports unknown conventions or stub rules.
func (p DayCountPolicy) Validate() error {
	if _, err := ParseDayCount(p.Convention); err != nil {
		return err
	}
	if p.Stub < IncludeFirstExcludeEnd || p.Stub > IncludeFirstIncludeEnd {
		return fmt.Errorf("utils: unknown stub rule %d", int(p.Stub))
	}
	return nil
}
