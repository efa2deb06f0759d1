package credit

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/config"
	"github.com/meenmo/cdslib/utils"
)

// Quote is one market spread. Single-name quotes carry a Tenor, index quotes a Maturity.
type Quote struct {
	Tenor    string    `json:"tenor,omitempty"`
	Maturity time.Time `json:"maturity,omitempty"`
	SpreadBP float64   `json:"spread_bp"`
}

// CalibrationError identifies the pillar that failed to bootstrap.
type CalibrationError struct {
	Entity string
	Pillar int
	Tenor  string
	Err    error
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("credit: calibrate %s pillar %d (%s): %v", e.Entity, e.Pillar, e.Tenor, e.Err)
}

func (e *CalibrationError) Unwrap() error { return e.Err }

// MarketCurve holds the market data and conventions a credit curve is bootstrapped from.
//
// Zero-valued conventions default to ACT/360, WeekendsOnly, quarterly coupons,
// ToDefaultDate accrual paid at default and protection paid at default. Zero
// Solver fields take their config defaults.
type MarketCurve struct {
	Entity        string
	ValuationDate time.Time
	Quotes        []Quote
	Discount      DiscountCurve
	RecoveryRate  float64
	DayCount      utils.DayCountPolicy
	Calendar      calendar.CalendarID
	Type          CdsType

	CouponFrequencyMonths   int
	AccrualType             AccrualType
	AccrualPaymentTiming    AccrualPaymentTiming
	ProtectionPaymentTiming ProtectionPaymentTiming

	Solver  config.Solver
	Logger  zerolog.Logger
	Metrics *Metrics
}

type pillar struct {
	label    string
	maturity time.Time
	spreadBP float64
}

// StepInDate is the common effective date of the calibration instruments.
func (m *MarketCurve) StepInDate() time.Time {
	return m.ValuationDate.AddDate(0, 0, 1)
}

// TweakParallel returns a copy with every quoted spread moved by tweakBP.
func (m *MarketCurve) TweakParallel(tweakBP float64) *MarketCurve {
	out := *m
	out.Quotes = make([]Quote, len(m.Quotes))
	for i, q := range m.Quotes {
		q.SpreadBP += tweakBP
		out.Quotes[i] = q
	}
	return &out
}

// WithDiscountCurve returns a copy discounting on dc.
func (m *MarketCurve) WithDiscountCurve(dc DiscountCurve) *MarketCurve {
	out := *m
	out.Quotes = append([]Quote(nil), m.Quotes...)
	out.Discount = dc
	return &out
}

func (m *MarketCurve) solver() (config.Solver, error) {
	cfg, err := m.Solver.WithDefaults()
	if err != nil {
		return config.Solver{}, fmt.Errorf("%w: %v", ErrInvalidConvention, err)
	}
	return cfg, nil
}

func (m *MarketCurve) pillars() ([]pillar, error) {
	if len(m.Quotes) == 0 {
		return nil, fmt.Errorf("%w: no quotes for %s", ErrInvalidSchedule, m.Entity)
	}
	kind, err := ParseCdsType(string(m.Type))
	if err != nil {
		return nil, err
	}
	stepIn := m.StepInDate()

	out := make([]pillar, 0, len(m.Quotes))
	for i, q := range m.Quotes {
		p := pillar{label: q.Tenor, maturity: q.Maturity, spreadBP: q.SpreadBP}
		switch kind {
		case SingleName:
			if q.Tenor != "" {
				if p.maturity, err = IMMMaturity(m.ValuationDate, q.Tenor); err != nil {
					return nil, fmt.Errorf("%w: quote %d: %v", ErrInvalidSchedule, i, err)
				}
			}
		case Index:
			if q.Maturity.IsZero() {
				return nil, fmt.Errorf("%w: index quote %d (%s) has no maturity", ErrInvalidSchedule, i, q.Tenor)
			}
		}
		if p.maturity.IsZero() {
			return nil, fmt.Errorf("%w: quote %d has neither tenor nor maturity", ErrInvalidSchedule, i)
		}
		if !p.maturity.After(stepIn) {
			return nil, fmt.Errorf("%w: quote %d matures %s before step-in %s", ErrInvalidSchedule, i,
				utils.FormatDate(p.maturity), utils.FormatDate(stepIn))
		}
		if p.label == "" {
			p.label = utils.FormatDate(p.maturity)
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].maturity.Before(out[j].maturity) })
	for i := 1; i < len(out); i++ {
		if out[i].maturity.Equal(out[i-1].maturity) {
			return nil, fmt.Errorf("%w: quotes %s and %s share maturity %s", ErrInvalidSchedule,
				out[i-1].label, out[i].label, utils.FormatDate(out[i].maturity))
		}
	}
	return out, nil
}

func (m *MarketCurve) instrument(p pillar) (*CDS, error) {
	freq := m.CouponFrequencyMonths
	if freq == 0 {
		freq = 3
	}
	stepIn := m.StepInDate()
	sched, err := StandardSchedule(stepIn, p.maturity, freq, m.Calendar, false)
	if err != nil {
		return nil, err
	}
	return New(Params{
		Direction:               Long,
		Notional:                1,
		EffectiveDate:           stepIn,
		MaturityDate:            p.maturity,
		UpfrontDate:             stepIn,
		SpreadBP:                p.spreadBP,
		DayCount:                m.DayCount,
		Calendar:                m.Calendar,
		AccrualType:             m.AccrualType,
		AccrualPaymentTiming:    m.AccrualPaymentTiming,
		ProtectionPaymentTiming: m.ProtectionPaymentTiming,
		Schedule:                sched,
	})
}

// CalibrationInstruments returns one par instrument per quote in maturity order.
func (m *MarketCurve) CalibrationInstruments() ([]*CDS, error) {
	pillars, err := m.pillars()
	if err != nil {
		return nil, fmt.Errorf("CalibrationInstruments: %w", err)
	}
	out := make([]*CDS, len(pillars))
	for i, p := range pillars {
		if out[i], err = m.instrument(p); err != nil {
			return nil, fmt.Errorf("CalibrationInstruments: pillar %s: %w", p.label, err)
		}
	}
	return out, nil
}

// Build bootstraps the hazard-rate curve so every calibration instrument prices to zero.
// Pillars are solved in maturity order against one in-place builder.
func (m *MarketCurve) Build() (curve *HazardRateCurve, err error) {
	start := time.Now()
	kind := m.Type
	if kind == "" {
		kind = SingleName
	}
	log := m.Logger.With().Str("run_id", uuid.NewString()).Str("entity", m.Entity).Logger()
	defer func() {
		m.Metrics.recordCalibration(kind, start, err)
		if err != nil {
			log.Error().Err(err).Msg("credit curve calibration failed")
		}
	}()

	if m.Discount == nil {
		return nil, fmt.Errorf("Build: %w", ErrNilCurve)
	}
	if m.RecoveryRate < 0 || m.RecoveryRate >= 1 {
		return nil, fmt.Errorf("Build: %w: recovery rate %.4f outside [0, 1)", ErrInvalidConvention, m.RecoveryRate)
	}
	pillars, err := m.pillars()
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	instruments := make([]*CDS, len(pillars))
	dates := make([]time.Time, len(pillars))
	for i, p := range pillars {
		if instruments[i], err = m.instrument(p); err != nil {
			return nil, fmt.Errorf("Build: pillar %s: %w", p.label, err)
		}
		dates[i] = p.maturity
	}

	cfg, err := m.solver()
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	log.Debug().Int("pillars", len(pillars)).Time("valuation_date", m.ValuationDate).Msg("calibrating credit curve")

	b := newCurveBuilder(m.Entity, m.ValuationDate, dates, cfg.InitialGuess, m.RecoveryRate)
	for i, p := range pillars {
		inst := instruments[i]
		f := func(h float64) (float64, error) {
			b.update(i, h)
			return inst.NPV(m.ValuationDate, m.Discount, b)
		}

		h, iters, solveErr := secant(f, solverPass{guess: cfg.InitialGuess, step: cfg.SecantStep, tol: cfg.Tolerance, maxIter: cfg.MaxIterations})
		if solveErr != nil && errors.Is(solveErr, ErrNoConvergence) {
			log.Warn().Str("pillar", p.label).Err(solveErr).Msg("retrying pillar with relaxed solver")
			m.Metrics.recordFailure("retry")
			var more int
			h, more, solveErr = secant(f, solverPass{guess: cfg.InitialGuess, step: cfg.SecantStep, tol: cfg.RetryTolerance, maxIter: cfg.RetryMaxIterations})
			iters += more
		}
		m.Metrics.observeIterations(iters)
		if solveErr != nil {
			m.Metrics.recordFailure("no_convergence")
			return nil, &CalibrationError{Entity: m.Entity, Pillar: i, Tenor: p.label, Err: solveErr}
		}

		if h < 0 {
			switch cfg.NegativeHazard {
			case config.NegativeHazardClamp:
				log.Warn().Str("pillar", p.label).Float64("hazard_rate", h).Msg("clamping negative hazard rate")
				h = 0
			case config.NegativeHazardWarn:
				log.Warn().Str("pillar", p.label).Float64("hazard_rate", h).Msg("negative hazard rate")
			default:
				m.Metrics.recordFailure("negative_hazard")
				return nil, &CalibrationError{Entity: m.Entity, Pillar: i, Tenor: p.label,
					Err: fmt.Errorf("%w: %.6g", ErrNegativeHazard, h)}
			}
		}
		if math.IsNaN(h) {
			return nil, &CalibrationError{Entity: m.Entity, Pillar: i, Tenor: p.label, Err: ErrNoConvergence}
		}
		b.update(i, h)
		log.Debug().Str("pillar", p.label).Float64("hazard_rate", h).Int("iterations", iters).Msg("pillar solved")
	}

	curve = b.freeze()
	log.Info().Int("pillars", len(pillars)).Dur("elapsed", time.Since(start)).Msg("credit curve calibrated")
	return curve, nil
}
