package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate converts YYYY-MM-DD to a UTC midnight time.Time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("utils: invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Days returns the day count fraction in days between two dates.
func Days(start, end time.Time) float64 {
	return math.Round(end.Sub(start).Hours()) / 24
}

// AddMonth behaves like Excel's EDATE, avoiding Go's month normalization surprises.
func AddMonth(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// TenorMonths converts tenors like "6M", "1Y", "10Y" to whole months.
func TenorMonths(tenor string) (int, error) {
	t := strings.TrimSpace(strings.ToUpper(tenor))
	if len(t) < 2 {
		return 0, fmt.Errorf("utils: invalid tenor %q", tenor)
	}
	v, err := strconv.Atoi(t[:len(t)-1])
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("utils: invalid tenor %q", tenor)
	}
	switch t[len(t)-1] {
	case 'M':
		return v, nil
	case 'Y':
		return 12 * v, nil
	default:
		return 0, fmt.Errorf("utils: unsupported tenor unit in %q", tenor)
	}
}

