package credit

import (
	"fmt"
	"time"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/utils"
)

// Schedule holds the coupon and protection date grids of a CDS.
//
// Coupon arrays are parallel; protection arrays are parallel and may be
// coarser than the coupon grid.
type Schedule struct {
	CouponStart     []time.Time
	CouponEnd       []time.Time
	CouponPayment   []time.Time
	ProtectionStart []time.Time
	ProtectionEnd   []time.Time
}

func (s Schedule) empty() bool {
	return len(s.CouponStart) == 0 && len(s.CouponEnd) == 0 && len(s.CouponPayment) == 0 &&
		len(s.ProtectionStart) == 0 && len(s.ProtectionEnd) == 0
}

func (s Schedule) clone() Schedule {
	return Schedule{
		CouponStart:     append([]time.Time(nil), s.CouponStart...),
		CouponEnd:       append([]time.Time(nil), s.CouponEnd...),
		CouponPayment:   append([]time.Time(nil), s.CouponPayment...),
		ProtectionStart: append([]time.Time(nil), s.ProtectionStart...),
		ProtectionEnd:   append([]time.Time(nil), s.ProtectionEnd...),
	}
}

// StandardSchedule rolls coupon dates backward from maturity every freqMonths,
// leaving a short front stub from effective. Intermediate boundaries and payment
// dates are adjusted Following; the final coupon ends on the unadjusted maturity.
// When payFront is set, coupons are paid on their start date.
// Protection is one period from effective to maturity.
func StandardSchedule(effective, maturity time.Time, freqMonths int, cal calendar.CalendarID, payFront bool) (Schedule, error) {
	if freqMonths <= 0 {
		return Schedule{}, fmt.Errorf("StandardSchedule: %w: frequency %d months", ErrInvalidSchedule, freqMonths)
	}
	if !maturity.After(effective) {
		return Schedule{}, fmt.Errorf("StandardSchedule: %w: maturity %s not after effective %s",
			ErrInvalidSchedule, utils.FormatDate(maturity), utils.FormatDate(effective))
	}

	var rolled []time.Time
	for i := 1; ; i++ {
		d := utils.AddMonth(maturity, -freqMonths*i)
		if !d.After(effective) {
			break
		}
		rolled = append([]time.Time{d}, rolled...)
	}

	bounds := make([]time.Time, 0, len(rolled)+2)
	bounds = append(bounds, effective)
	for _, d := range rolled {
		adj := calendar.AdjustFollowing(cal, d)
		if !adj.After(bounds[len(bounds)-1]) || !adj.Before(maturity) {
			continue
		}
		bounds = append(bounds, adj)
	}
	bounds = append(bounds, maturity)

	n := len(bounds) - 1
	s := Schedule{
		CouponStart:     make([]time.Time, n),
		CouponEnd:       make([]time.Time, n),
		CouponPayment:   make([]time.Time, n),
		ProtectionStart: []time.Time{effective},
		ProtectionEnd:   []time.Time{maturity},
	}
	for i := 0; i < n; i++ {
		s.CouponStart[i] = bounds[i]
		s.CouponEnd[i] = bounds[i+1]
		if payFront {
			s.CouponPayment[i] = calendar.AdjustFollowing(cal, bounds[i])
		} else {
			s.CouponPayment[i] = calendar.AdjustFollowing(cal, bounds[i+1])
		}
	}
	return s, nil
}

// IMMMaturity returns the single-name maturity for a tenor: the next IMM date
// strictly after valuationDate rolled forward by the tenor.
func IMMMaturity(valuationDate time.Time, tenor string) (time.Time, error) {
	months, err := utils.TenorMonths(tenor)
	if err != nil {
		return time.Time{}, fmt.Errorf("IMMMaturity: %w", err)
	}
	return utils.AddMonth(calendar.NextIMMDate(valuationDate), months), nil
}
