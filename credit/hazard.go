package credit

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/cdslib/utils"
)

// curveDayCount is the time axis of every hazard curve.
const curveDayCount = utils.Act365F

// hazardTerm is a piecewise-constant hazard term structure: rates[i] applies on
// (times[i-1], times[i]] with times[-1] = 0, extrapolated flat on both sides.
type hazardTerm struct {
	valuationDate time.Time
	pillars       []time.Time
	times         []float64
	rates         []float64
	recovery      float64
}

func (h *hazardTerm) yearFraction(t time.Time) float64 {
	return utils.YearFraction(h.valuationDate, t, curveDayCount)
}

// index returns the first pillar with times[k] >= x, clamped to the last pillar.
func (h *hazardTerm) index(x float64) int {
	k := sort.SearchFloat64s(h.times, x)
	if k >= len(h.times) {
		k = len(h.times) - 1
	}
	return k
}

func (h *hazardTerm) hazardRate(t time.Time) float64 {
	x := h.yearFraction(t)
	if x <= 0 {
		return h.rates[0]
	}
	return h.rates[h.index(x)]
}

func (h *hazardTerm) survivalProbability(t time.Time) float64 {
	x := h.yearFraction(t)
	if x <= 0 {
		return 1
	}
	k := h.index(x)
	cum, prev := 0.0, 0.0
	for j := 0; j < k; j++ {
		cum += (h.times[j] - prev) * h.rates[j]
		prev = h.times[j]
	}
	cum += (x - prev) * h.rates[k]
	return math.Exp(-cum)
}

// HazardRateCurve is a calibrated, read-only credit curve.
// It is safe for concurrent use.
type HazardRateCurve struct {
	entity string
	term   hazardTerm
}

// NewHazardRateCurve builds a curve from explicit pillars and hazard rates (decimal).
func NewHazardRateCurve(entity string, valuationDate time.Time, pillars []time.Time, rates []float64, recovery float64) (*HazardRateCurve, error) {
	if len(pillars) == 0 {
		return nil, fmt.Errorf("NewHazardRateCurve: %w: no pillars", ErrInvalidSchedule)
	}
	if len(pillars) != len(rates) {
		return nil, fmt.Errorf("NewHazardRateCurve: %w: %d pillars but %d rates", ErrInvalidSchedule, len(pillars), len(rates))
	}
	if recovery < 0 || recovery >= 1 {
		return nil, fmt.Errorf("NewHazardRateCurve: recovery rate %.4f outside [0, 1)", recovery)
	}
	prev := valuationDate
	for i, d := range pillars {
		if !d.After(prev) {
			return nil, fmt.Errorf("NewHazardRateCurve: %w: pillar %d (%s) not after %s", ErrInvalidSchedule, i, utils.FormatDate(d), utils.FormatDate(prev))
		}
		if math.IsNaN(rates[i]) || math.IsInf(rates[i], 0) {
			return nil, fmt.Errorf("NewHazardRateCurve: non-finite hazard rate at pillar %d", i)
		}
		prev = d
	}
	b := newCurveBuilder(entity, valuationDate, pillars, 0, recovery)
	b.updateCurve(rates)
	return b.freeze(), nil
}

func (c *HazardRateCurve) Entity() string { return c.entity }
func (c *HazardRateCurve) ValuationDate() time.Time { return c.term.valuationDate }
func (c *HazardRateCurve) RecoveryRate() float64 { return c.term.recovery }

// HazardRate returns the hazard rate in force at t.
func (c *HazardRateCurve) HazardRate(t time.Time) float64 {
	return c.term.hazardRate(t)
}

// SurvivalProbability returns exp(-integral of the hazard rate from the valuation date to t).
func (c *HazardRateCurve) SurvivalProbability(t time.Time) float64 {
	return c.term.survivalProbability(t)
}

// DefaultProbability is 1 - SurvivalProbability(t).
func (c *HazardRateCurve) DefaultProbability(t time.Time) float64 {
	return 1 - c.term.survivalProbability(t)
}

// Pillars returns a copy of the pillar dates.
func (c *HazardRateCurve) Pillars() []time.Time {
	return append([]time.Time(nil), c.term.pillars...)
}

// Rates returns a copy of the hazard rates.
func (c *HazardRateCurve) Rates() []float64 {
	return append([]float64(nil), c.term.rates...)
}

// Bumped returns a new curve with the hazard rate of one pillar moved by delta.
func (c *HazardRateCurve) Bumped(pillar int, delta float64) (*HazardRateCurve, error) {
	if pillar < 0 || pillar >= len(c.term.rates) {
		return nil, fmt.Errorf("Bumped: pillar %d out of range [0, %d)", pillar, len(c.term.rates))
	}
	rates := c.Rates()
	rates[pillar] += delta
	return NewHazardRateCurve(c.entity, c.term.valuationDate, c.term.pillars, rates, c.term.recovery)
}

// CurvePoint is one pillar of a calibrated curve.
type CurvePoint struct {
	Date                time.Time `json:"date"`
	Time                float64   `json:"time"`
	HazardRate          float64   `json:"hazard_rate"`
	SurvivalProbability float64   `json:"survival_probability"`
}

// Points lists the pillars with their hazard rates and survival probabilities.
func (c *HazardRateCurve) Points() []CurvePoint {
	out := make([]CurvePoint, len(c.term.pillars))
	for i, d := range c.term.pillars {
		out[i] = CurvePoint{
			Date:                d,
			Time:                c.term.times[i],
			HazardRate:          c.term.rates[i],
			SurvivalProbability: c.term.survivalProbability(d),
		}
	}
	return out
}

// curveBuilder is the mutable curve used inside the bootstrap loop.
// It must not be shared between goroutines.
type curveBuilder struct {
	entity string
	term   hazardTerm
}

func newCurveBuilder(entity string, valuationDate time.Time, pillars []time.Time, guess, recovery float64) *curveBuilder {
	b := &curveBuilder{
		entity: entity,
		term: hazardTerm{
			valuationDate: valuationDate,
			pillars:       append([]time.Time(nil), pillars...),
			times:         make([]float64, len(pillars)),
			rates:         make([]float64, len(pillars)),
			recovery:      recovery,
		},
	}
	for i, d := range pillars {
		b.term.times[i] = b.term.yearFraction(d)
		b.term.rates[i] = guess
	}
	return b
}

func (b *curveBuilder) update(i int, rate float64) {
	b.term.rates[i] = rate
}

func (b *curveBuilder) updateCurve(rates []float64) {
	copy(b.term.rates, rates)
}

func (b *curveBuilder) HazardRate(t time.Time) float64 { return b.term.hazardRate(t) }
func (b *curveBuilder) SurvivalProbability(t time.Time) float64 { return b.term.survivalProbability(t) }
func (b *curveBuilder) RecoveryRate() float64 { return b.term.recovery }

// freeze copies the builder state into a published curve.
func (b *curveBuilder) freeze() *HazardRateCurve {
	return &HazardRateCurve{
		entity: b.entity,
		term: hazardTerm{
			valuationDate: b.term.valuationDate,
			pillars:       append([]time.Time(nil), b.term.pillars...),
			times:         append([]float64(nil), b.term.times...),
			rates:         append([]float64(nil), b.term.rates...),
			recovery:      b.term.recovery,
		},
	}
}
