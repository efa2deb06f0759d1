package ircurve

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/cdslib/utils"
)

// FlatCurve discounts at a single continuously-compounded zero rate.
type FlatCurve struct {
	settlement time.Time
	rate       float64
	dayCount   string
}

// NewFlatCurve returns exp(-rate * yf(settlement, t)); rate is a decimal.
func NewFlatCurve(settlement time.Time, rate float64, dayCount string) *FlatCurve {
	if dayCount == "" {
		dayCount = curveDayCount
	}
	return &FlatCurve{settlement: settlement, rate: rate, dayCount: dayCount}
}

func (f *FlatCurve) DF(t time.Time) float64 {
	if !t.After(f.settlement) {
		return 1
	}
	return math.Exp(-f.rate * utils.YearFraction(f.settlement, t, f.dayCount))
}

// Shift moves the zero rate by tweakBP basis points.
func (f *FlatCurve) Shift(tweakBP float64) (DiscountCurve, error) {
	return NewFlatCurve(f.settlement, f.rate+tweakBP/10000.0, f.dayCount), nil
}

// NodeCurve interpolates explicitly provided discount factors log-linearly.
//
// It is primarily for diagnostics, where valuation is isolated from bootstrap
// by injecting exact discount factors from another system.
type NodeCurve struct {
	settlement time.Time
	times      []float64
	dfs        []float64
	shiftBP    float64
}

// NewCurveFromDFs creates a curve from explicitly provided discount factors.
// The settlement node (DF = 1) is added when missing.
func NewCurveFromDFs(settlement time.Time, dfs map[time.Time]float64) (*NodeCurve, error) {
	dates := make([]time.Time, 0, len(dfs)+1)
	for d, df := range dfs {
		if df <= 0 {
			return nil, fmt.Errorf("ircurve: NewCurveFromDFs: non-positive DF %.12f at %s", df, utils.FormatDate(d))
		}
		if d.Before(settlement) {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	n := &NodeCurve{settlement: settlement, times: []float64{0}, dfs: []float64{1}}
	for _, d := range dates {
		if d.Equal(settlement) {
			continue
		}
		n.times = append(n.times, utils.YearFraction(settlement, d, curveDayCount))
		n.dfs = append(n.dfs, dfs[d])
	}
	return n, nil
}

func (n *NodeCurve) DF(t time.Time) float64 {
	if !t.After(n.settlement) {
		return 1
	}
	yf := utils.YearFraction(n.settlement, t, curveDayCount)
	return logLinearDF(n.times, n.dfs, yf) * math.Exp(-n.shiftBP/10000.0*yf)
}

// Shift applies a parallel continuously-compounded zero shift of tweakBP basis points.
func (n *NodeCurve) Shift(tweakBP float64) (DiscountCurve, error) {
	out := *n
	out.shiftBP += tweakBP
	return &out, nil
}
