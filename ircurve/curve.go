package ircurve

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/utils"
)

// ErrNoQuotes is returned when a curve is requested without any par quotes.
var ErrNoQuotes = errors.New("ircurve: no quotes")

// DiscountCurve provides discount factors relative to the curve's settlement date.
type DiscountCurve interface {
	DF(t time.Time) float64
}

// Shiftable is a discount curve that can produce a parallel-shifted copy of itself.
type Shiftable interface {
	DiscountCurve
	Shift(tweakBP float64) (DiscountCurve, error)
}

// curveDayCount is the time axis for interpolation and zero rates.
// Following market convention (and QuantLib), the curve axis uses ACT/365F
// regardless of the coupon day count of the instruments it was built from.
const curveDayCount = utils.Act365F

const (
	bootstrapTolerance = 1e-12
	bootstrapMaxIter   = 50
	minDiscountFactor  = 1e-9
)

// OISConvention describes the fixed leg of the OIS instruments used for bootstrapping.
type OISConvention struct {
	DayCount     string
	PayDelayDays int
	FreqMonths   int
}

// ESTR is the EUR OIS fixed leg: annual ACT/360, T+1 payment.
var ESTR = OISConvention{DayCount: utils.Act360, PayDelayDays: 1, FreqMonths: 12}

// SOFR is the USD OIS fixed leg: annual ACT/360, T+2 payment.
var SOFR = OISConvention{DayCount: utils.Act360, PayDelayDays: 2, FreqMonths: 12}

// Curve is a discount curve bootstrapped from OIS par quotes (percent).
//
// Discount factors are log-linear between pillars and extrapolated with the
// last forward beyond the final pillar.
type Curve struct {
	settlement time.Time
	parQuotes  map[string]float64
	cal        calendar.CalendarID
	conv       OISConvention

	pillars []time.Time
	times   []float64
	dfs     []float64
}

type oisCoupon struct {
	PaymentDate time.Time
	Accrual     float64
}

// BuildCurve bootstraps a discount curve from OIS par quotes keyed by tenor ("1M", "1Y", ...).
func BuildCurve(settlement time.Time, quotes map[string]float64, cal calendar.CalendarID, conv OISConvention) (*Curve, error) {
	if len(quotes) == 0 {
		return nil, ErrNoQuotes
	}
	if conv.FreqMonths <= 0 {
		return nil, fmt.Errorf("ircurve: BuildCurve: unsupported frequency %d", conv.FreqMonths)
	}
	c := &Curve{
		settlement: settlement,
		parQuotes:  make(map[string]float64, len(quotes)),
		cal:        cal,
		conv:       conv,
	}
	for k, v := range quotes {
		c.parQuotes[k] = v
	}

	type pillar struct {
		date time.Time
		rate float64
	}
	pillars := make([]pillar, 0, len(quotes))
	seen := make(map[time.Time]string, len(quotes))
	for tenor, pct := range quotes {
		months, err := utils.TenorMonths(tenor)
		if err != nil {
			return nil, fmt.Errorf("ircurve: BuildCurve: %w", err)
		}
		d := calendar.Adjust(cal, utils.AddMonth(settlement, months))
		if other, dup := seen[d]; dup {
			return nil, fmt.Errorf("ircurve: BuildCurve: tenors %s and %s map to the same date %s", other, tenor, utils.FormatDate(d))
		}
		seen[d] = tenor
		pillars = append(pillars, pillar{date: d, rate: pct / 100.0})
	}
	sort.Slice(pillars, func(i, j int) bool { return pillars[i].date.Before(pillars[j].date) })

	c.pillars = []time.Time{settlement}
	c.times = []float64{0}
	c.dfs = []float64{1}

	// Bootstrap each quoted pillar sequentially
	for _, p := range pillars {
		coupons := c.buildOISCoupons(p.date)
		df := c.solveOISDiscountFactor(p.date, coupons, p.rate)
		c.pillars = append(c.pillars, p.date)
		c.times = append(c.times, utils.YearFraction(settlement, p.date, curveDayCount))
		c.dfs = append(c.dfs, df)
	}
	return c, nil
}

// buildOISCoupons generates fixed leg coupons for an OIS from settlement to maturity,
// rolling backward from maturity so intermediate dates align with it.
func (c *Curve) buildOISCoupons(maturity time.Time) []oisCoupon {
	var unadjusted []time.Time
	for i := 0; ; i++ {
		d := utils.AddMonth(maturity, -c.conv.FreqMonths*i)
		if !d.After(c.settlement) {
			break
		}
		unadjusted = append([]time.Time{d}, unadjusted...)
	}
	unadjusted = append([]time.Time{c.settlement}, unadjusted...)

	coupons := make([]oisCoupon, 0, len(unadjusted)-1)
	for i := 0; i < len(unadjusted)-1; i++ {
		accrualStart := calendar.Adjust(c.cal, unadjusted[i])
		accrualEnd := calendar.Adjust(c.cal, unadjusted[i+1])
		payDate := calendar.AddBusinessDays(c.cal, accrualEnd, c.conv.PayDelayDays)
		coupons = append(coupons, oisCoupon{
			PaymentDate: payDate,
			Accrual:     utils.YearFraction(accrualStart, accrualEnd, c.conv.DayCount),
		})
	}
	return coupons
}

// solveOISDiscountFactor solves for the discount factor at maturity using Newton-Raphson.
// Coupons paid after the previous pillar are interpolated against the unknown DF.
func (c *Curve) solveOISDiscountFactor(maturity time.Time, coupons []oisCoupon, parRate float64) float64 {
	last := len(c.pillars) - 1
	prevPillar := c.pillars[last]
	dfPrev := c.dfs[last]

	// Final exchange is on the last coupon's payment date.
	finalPay := coupons[len(coupons)-1].PaymentDate

	guess := dfPrev
	for iter := 0; iter < bootstrapMaxIter; iter++ {
		pvFixed, derivative := 0.0, 0.0
		for _, cpn := range coupons {
			var d, dPrime float64
			if !cpn.PaymentDate.After(prevPillar) {
				d = c.DF(cpn.PaymentDate)
			} else {
				d, dPrime = c.interpolateUnknownDF(cpn.PaymentDate, prevPillar, dfPrev, maturity, guess)
			}
			pvFixed += d * cpn.Accrual * parRate
			derivative += dPrime * cpn.Accrual * parRate
		}

		// OIS par condition: DF(start) = PV_fixed + DF(final payment)
		dEnd, dEndPrime := c.interpolateUnknownDF(finalPay, prevPillar, dfPrev, maturity, guess)
		fVal := pvFixed + dEnd - 1.0
		fPrime := derivative + dEndPrime

		if math.Abs(fVal) < bootstrapTolerance {
			break
		}
		if math.Abs(fPrime) < 1e-15 {
			break
		}
		guess -= fVal / fPrime
		if guess <= minDiscountFactor {
			guess = minDiscountFactor
		}
	}
	return guess
}

// interpolateUnknownDF interpolates DF at t where endpoint DF(end) = x is unknown.
// Returns DF(t) and d(DF(t))/dx.
func (c *Curve) interpolateUnknownDF(t, start time.Time, dfStart float64, end time.Time, x float64) (float64, float64) {
	tStart := utils.YearFraction(c.settlement, start, curveDayCount)
	tEnd := utils.YearFraction(c.settlement, end, curveDayCount)
	tTarget := utils.YearFraction(c.settlement, t, curveDayCount)
	if tEnd == tStart {
		return dfStart, 0
	}
	ratio := (tTarget - tStart) / (tEnd - tStart)
	if x <= minDiscountFactor {
		x = minDiscountFactor
	}
	dfT := math.Pow(dfStart, 1.0-ratio) * math.Pow(x, ratio)
	return dfT, ratio * dfT / x
}

// DF returns the discount factor for t relative to the settlement date.
func (c *Curve) DF(t time.Time) float64 {
	if !t.After(c.settlement) {
		return 1
	}
	return logLinearDF(c.times, c.dfs, utils.YearFraction(c.settlement, t, curveDayCount))
}

// ZeroRateAt returns the continuously-compounded zero rate in percent.
func (c *Curve) ZeroRateAt(t time.Time) float64 {
	yf := utils.YearFraction(c.settlement, t, curveDayCount)
	if yf <= 0 {
		return 0
	}
	return -math.Log(c.DF(t)) / yf * 100
}

// Shift rebuilds the curve with every par quote moved by tweakBP basis points.
func (c *Curve) Shift(tweakBP float64) (DiscountCurve, error) {
	bumped := make(map[string]float64, len(c.parQuotes))
	for k, v := range c.parQuotes {
		bumped[k] = v + tweakBP/100.0
	}
	out, err := BuildCurve(c.settlement, bumped, c.cal, c.conv)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Settlement returns the curve's settlement date.
func (c *Curve) Settlement() time.Time {
	return c.settlement
}

// PillarDFs returns all bootstrapped discount factors keyed by date.
func (c *Curve) PillarDFs() map[time.Time]float64 {
	out := make(map[time.Time]float64, len(c.pillars))
	for i, d := range c.pillars {
		out[d] = c.dfs[i]
	}
	return out
}

// logLinearDF interpolates log discount factors on a time axis starting at 0.
func logLinearDF(times, dfs []float64, t float64) float64 {
	if len(times) == 1 {
		return dfs[0]
	}
	i1, i2 := bracketOrBoundary(times, t)
	t1, t2 := times[i1], times[i2]
	if t2 == t1 {
		return dfs[i1]
	}
	forward := math.Log(dfs[i1]/dfs[i2]) / (t2 - t1)
	return dfs[i1] * math.Exp(-forward*(t-t1))
}
