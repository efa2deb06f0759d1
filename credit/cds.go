package credit

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/utils"
)

// Params describes one CDS contract.
//
// SpreadBP is the running coupon in basis points. If every schedule array is
// empty a quarterly StandardSchedule is generated from EffectiveDate to MaturityDate.
type Params struct {
	Direction      Direction
	Notional       float64
	EffectiveDate  time.Time
	MaturityDate   time.Time
	UpfrontAmount  float64
	UpfrontDate    time.Time // defaults to EffectiveDate
	CouponPayFront bool
	SpreadBP       float64
	DayCount       utils.DayCountPolicy
	Calendar       calendar.CalendarID

	// RecoveryRate overrides the curve's recovery when set.
	RecoveryRate *float64

	AccrualType             AccrualType
	AccrualPaymentTiming    AccrualPaymentTiming
	ProtectionPaymentTiming ProtectionPaymentTiming

	Schedule
}

type couponPeriod struct {
	start, end, payment time.Time
	determination       time.Time
	yearFraction        float64

	// grid holds the business days of [start, end]; fractions[k] is the accrual
	// fraction owed on a default at grid[k+1].
	grid      []time.Time
	fractions []float64
}

type protectionPeriod struct {
	start, end time.Time
}

// CDS is a validated, immutable credit default swap.
type CDS struct {
	p          Params
	sign       float64
	periods    []couponPeriod
	protection []protectionPeriod

	// protectionDays is the calendar-day grid from the first protection start to maturity.
	protectionDays []time.Time
	hasAccrualLeg  bool
}

// New validates p and precomputes the day grids used by valuation.
func New(p Params) (*CDS, error) {
	if err := normalise(&p); err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	if p.SpreadBP == 0 {
		collapseZeroSpread(&p)
	} else if p.Schedule.empty() {
		s, err := StandardSchedule(p.EffectiveDate, p.MaturityDate, 3, p.Calendar, p.CouponPayFront)
		if err != nil {
			return nil, fmt.Errorf("New: %w", err)
		}
		p.Schedule = s
	} else {
		p.Schedule = p.Schedule.clone()
	}
	if err := validateSchedule(p); err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	c := &CDS{p: p, sign: p.Direction.sign()}
	frac := accrualFractions[accrualKey{payFront: p.CouponPayFront, accrual: p.AccrualType}]
	c.hasAccrualLeg = frac != nil

	c.periods = make([]couponPeriod, len(p.CouponStart))
	for i := range p.CouponStart {
		cp := couponPeriod{
			start:        p.CouponStart[i],
			end:          p.CouponEnd[i],
			payment:      p.CouponPayment[i],
			yearFraction: p.DayCount.YearFraction(p.CouponStart[i], p.CouponEnd[i]),
		}
		if p.CouponPayFront {
			cp.determination = cp.start
		} else {
			cp.determination = cp.end
		}
		if frac != nil {
			cp.grid = calendar.BusinessDays(p.Calendar, cp.start, cp.end)
			cp.fractions = make([]float64, len(cp.grid)-1)
			for k := 1; k < len(cp.grid); k++ {
				cp.fractions[k-1] = frac(p.DayCount, cp.start, cp.end, cp.grid[k])
			}
		}
		c.periods[i] = cp
	}

	c.protection = make([]protectionPeriod, len(p.ProtectionStart))
	for i := range p.ProtectionStart {
		c.protection[i] = protectionPeriod{start: p.ProtectionStart[i], end: p.ProtectionEnd[i]}
	}
	if p.ProtectionPaymentTiming == ProtectionPaidAtDefault {
		for d := p.ProtectionStart[0]; !d.After(p.MaturityDate); d = d.AddDate(0, 0, 1) {
			c.protectionDays = append(c.protectionDays, d)
		}
	}
	return c, nil
}

func normalise(p *Params) error {
	if p.Direction != Long && p.Direction != Short {
		return fmt.Errorf("%w: direction %q", ErrInvalidConvention, p.Direction)
	}
	if !(p.Notional > 0) || math.IsInf(p.Notional, 0) {
		return fmt.Errorf("%w: notional must be positive, got %v", ErrInvalidSchedule, p.Notional)
	}
	if p.SpreadBP < 0 || math.IsNaN(p.SpreadBP) {
		return fmt.Errorf("%w: spread must be non-negative, got %v", ErrInvalidConvention, p.SpreadBP)
	}
	if !p.MaturityDate.After(p.EffectiveDate) {
		return fmt.Errorf("%w: maturity %s not after effective %s", ErrInvalidSchedule,
			utils.FormatDate(p.MaturityDate), utils.FormatDate(p.EffectiveDate))
	}
	if p.UpfrontDate.IsZero() {
		p.UpfrontDate = p.EffectiveDate
	}
	if p.RecoveryRate != nil {
		r := *p.RecoveryRate
		if r < 0 || r >= 1 {
			return fmt.Errorf("%w: recovery rate %.4f outside [0, 1)", ErrInvalidConvention, r)
		}
		p.RecoveryRate = &r
	}
	if p.DayCount.Convention == "" {
		p.DayCount.Convention = utils.Act360
	}
	dc, err := utils.ParseDayCount(p.DayCount.Convention)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConvention, err)
	}
	p.DayCount.Convention = dc
	if err := p.DayCount.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConvention, err)
	}
	cal, err := calendar.Parse(string(p.Calendar))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConvention, err)
	}
	p.Calendar = cal

	if p.AccrualType, err = ParseAccrualType(string(p.AccrualType)); err != nil {
		return err
	}
	if p.AccrualPaymentTiming, err = ParseAccrualPaymentTiming(string(p.AccrualPaymentTiming)); err != nil {
		return err
	}
	if p.ProtectionPaymentTiming, err = ParseProtectionPaymentTiming(string(p.ProtectionPaymentTiming)); err != nil {
		return err
	}
	if p.SpreadBP != 0 && p.CouponPayFront && p.AccrualPaymentTiming == AccrualPaidAtPaymentDate {
		return fmt.Errorf("%w: premium paid in advance cannot pay default accrual on the payment date", ErrInvalidConvention)
	}
	return nil
}

// collapseZeroSpread turns a zero-coupon contract into a single in-advance
// period paid on the upfront date.
func collapseZeroSpread(p *Params) {
	start := p.EffectiveDate
	if len(p.ProtectionStart) > 0 {
		first := p.ProtectionStart[0]
		for _, d := range p.ProtectionStart[1:] {
			if d.Before(first) {
				first = d
			}
		}
		if first.Before(start) {
			start = first
		}
	}
	s := Schedule{
		CouponStart:   []time.Time{start},
		CouponEnd:     []time.Time{p.MaturityDate},
		CouponPayment: []time.Time{p.UpfrontDate},
	}
	if len(p.ProtectionStart) > 0 || len(p.ProtectionEnd) > 0 {
		s.ProtectionStart = append([]time.Time(nil), p.ProtectionStart...)
		s.ProtectionEnd = append([]time.Time(nil), p.ProtectionEnd...)
	} else {
		s.ProtectionStart = []time.Time{p.EffectiveDate}
		s.ProtectionEnd = []time.Time{p.MaturityDate}
	}
	p.Schedule = s
	p.CouponPayFront = true
	p.AccrualPaymentTiming = AccrualPaidAtDefault
}

func validateSchedule(p Params) error {
	s := p.Schedule
	n := len(s.CouponStart)
	if n == 0 {
		return fmt.Errorf("%w: empty coupon schedule", ErrInvalidSchedule)
	}
	if len(s.CouponEnd) != n || len(s.CouponPayment) != n {
		return fmt.Errorf("%w: coupon arrays have lengths %d/%d/%d", ErrInvalidSchedule, n, len(s.CouponEnd), len(s.CouponPayment))
	}
	m := len(s.ProtectionStart)
	if m == 0 {
		return fmt.Errorf("%w: empty protection schedule", ErrInvalidSchedule)
	}
	if len(s.ProtectionEnd) != m {
		return fmt.Errorf("%w: protection arrays have lengths %d/%d", ErrInvalidSchedule, m, len(s.ProtectionEnd))
	}
	if err := checkPeriods("coupon", s.CouponStart, s.CouponEnd); err != nil {
		return err
	}
	if err := checkPeriods("protection", s.ProtectionStart, s.ProtectionEnd); err != nil {
		return err
	}

	minCoupon, minProt := s.CouponStart[0], s.ProtectionStart[0]
	if minCoupon.After(minProt) || minProt.After(p.EffectiveDate) {
		return fmt.Errorf("%w: need first coupon start %s <= first protection start %s <= effective %s", ErrInvalidSchedule,
			utils.FormatDate(minCoupon), utils.FormatDate(minProt), utils.FormatDate(p.EffectiveDate))
	}
	maxCoupon, maxProt := latest(s.CouponEnd), latest(s.ProtectionEnd)
	if !maxCoupon.Equal(p.MaturityDate) || !maxProt.Equal(p.MaturityDate) {
		return fmt.Errorf("%w: last coupon end %s and last protection end %s must equal maturity %s", ErrInvalidSchedule,
			utils.FormatDate(maxCoupon), utils.FormatDate(maxProt), utils.FormatDate(p.MaturityDate))
	}
	return nil
}

func checkPeriods(leg string, starts, ends []time.Time) error {
	if !sort.SliceIsSorted(starts, func(i, j int) bool { return starts[i].Before(starts[j]) }) {
		return fmt.Errorf("%w: %s start dates not sorted", ErrInvalidSchedule, leg)
	}
	for i := range starts {
		if !ends[i].After(starts[i]) {
			return fmt.Errorf("%w: %s period %d ends %s on or before its start %s", ErrInvalidSchedule,
				leg, i, utils.FormatDate(ends[i]), utils.FormatDate(starts[i]))
		}
	}
	return nil
}

func latest(ds []time.Time) time.Time {
	out := ds[0]
	for _, d := range ds[1:] {
		if d.After(out) {
			out = d
		}
	}
	return out
}

// Params returns a copy of the validated contract terms.
func (c *CDS) Params() Params {
	p := c.p
	p.Schedule = c.p.Schedule.clone()
	if c.p.RecoveryRate != nil {
		r := *c.p.RecoveryRate
		p.RecoveryRate = &r
	}
	return p
}

func (c *CDS) Direction() Direction { return c.p.Direction }
func (c *CDS) Notional() float64 { return c.p.Notional }
func (c *CDS) SpreadBP() float64 { return c.p.SpreadBP }
func (c *CDS) EffectiveDate() time.Time { return c.p.EffectiveDate }
func (c *CDS) MaturityDate() time.Time { return c.p.MaturityDate }

// CouponDeterminationDates are the dates the obligor must survive to for each
// coupon: start dates when paid in advance, end dates otherwise.
func (c *CDS) CouponDeterminationDates() []time.Time {
	out := make([]time.Time, len(c.periods))
	for i, cp := range c.periods {
		out[i] = cp.determination
	}
	return out
}

// WithUpfront returns a copy of the contract with a different upfront fee.
func (c *CDS) WithUpfront(amount float64, date time.Time) (*CDS, error) {
	p := c.Params()
	p.UpfrontAmount = amount
	p.UpfrontDate = date
	return New(p)
}

// withoutUpfront is the cheap clone used for price calculation; grids are shared.
func (c *CDS) withoutUpfront() *CDS {
	out := *c
	out.p.UpfrontAmount = 0
	return &out
}

func (c *CDS) recovery(curve SurvivalCurve) float64 {
	if c.p.RecoveryRate != nil {
		return *c.p.RecoveryRate
	}
	return curve.RecoveryRate()
}
