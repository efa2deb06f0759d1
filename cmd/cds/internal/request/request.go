package request

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/config"
	"github.com/meenmo/cdslib/credit"
	"github.com/meenmo/cdslib/ircurve"
	"github.com/meenmo/cdslib/logger"
	"github.com/meenmo/cdslib/utils"
)

// Quote is one market spread row. Single-name quotes use tenor, index quotes maturity.
type Quote struct {
	Tenor    string  `json:"tenor"`
	Maturity string  `json:"maturity" validate:"omitempty,datetime=2006-01-02"`
	SpreadBP float64 `json:"spread_bp" validate:"gte=0"`
}

// Discount selects one discount curve source:
// - flat_rate: continuously-compounded zero rate as a decimal
// - ois_index + ois_quotes: OIS par rates in percent (ESTR or SOFR)
// - discount_factors: explicit "YYYY-MM-DD" -> DF nodes
type Discount struct {
	FlatRate        *float64           `json:"flat_rate"`
	OISIndex        string             `json:"ois_index" validate:"omitempty,oneof=ESTR SOFR"`
	OISQuotes       map[string]float64 `json:"ois_quotes"`
	DiscountFactors map[string]float64 `json:"discount_factors"`
}

// Market is the credit curve calibration input.
type Market struct {
	Entity                string   `json:"entity" validate:"required"`
	ValuationDate         string   `json:"valuation_date" validate:"required,datetime=2006-01-02"`
	CdsType               string   `json:"cds_type" validate:"omitempty,oneof=single_name index"`
	RecoveryRate          *float64 `json:"recovery_rate" validate:"omitempty,gte=0,lt=1"`
	DayCount              string   `json:"day_count"`
	StubRule              string   `json:"stub_rule"`
	Calendar              string   `json:"calendar"`
	CouponFrequencyMonths int      `json:"coupon_frequency_months" validate:"omitempty,oneof=1 3 6 12"`
	Quotes                []Quote  `json:"quotes" validate:"required,min=1,dive"`
	Discount              Discount `json:"discount"`
}

// Trade is one CDS position.
//
// Conventions:
// - spread_bp is the running coupon in bp (e.g., 100 means 1%)
// - direction is long (buy protection) or short (sell protection)
type Trade struct {
	Direction                 string   `json:"direction" validate:"required,oneof=long short buy sell"`
	Notional                  float64  `json:"notional" validate:"gt=0"`
	EffectiveDate             string   `json:"effective_date" validate:"required,datetime=2006-01-02"`
	MaturityDate              string   `json:"maturity_date" validate:"required,datetime=2006-01-02"`
	SpreadBP                  float64  `json:"spread_bp" validate:"gte=0"`
	UpfrontAmount             float64  `json:"upfront_amount"`
	UpfrontDate               string   `json:"upfront_date" validate:"omitempty,datetime=2006-01-02"`
	CouponPayFront            bool     `json:"coupon_pay_front"`
	RecoveryRate              *float64 `json:"recovery_rate" validate:"omitempty,gte=0,lt=1"`
	AccrualType               string   `json:"accrual_type"`
	AccrualPaymentDateType    string   `json:"accrual_payment_date_type"`
	ProtectionPaymentDateType string   `json:"protection_payment_date_type"`
	CouponFrequencyMonths     int      `json:"coupon_frequency_months" validate:"omitempty,oneof=1 3 6 12"`
}

var validate = validator.New()

// Validate checks the struct tags of v.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid input: %v", err)
	}
	return nil
}

// Decode reads JSON from path (or stdin when empty) into v.
func Decode(stdin io.Reader, path string, v any) error {
	var (
		b   []byte
		err error
	)
	if path != "" {
		b, err = os.ReadFile(path)
	} else {
		b, err = io.ReadAll(stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to parse JSON input: %v", err)
	}
	return nil
}

// StdinIsTerminal reports whether stdin is an interactive terminal with nothing piped.
func StdinIsTerminal(stdin io.Reader) bool {
	if f, ok := stdin.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			return true
		}
	}
	return false
}

// WriteJSON writes v as one JSON line.
func WriteJSON(stdout io.Writer, v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return WriteError(stdout, fmt.Sprintf("failed to encode output: %v", err))
	}
	fmt.Fprintln(stdout, string(b))
	return 0
}

// WriteError writes {"error": msg} and returns the failure exit code.
func WriteError(stdout io.Writer, msg string) int {
	b, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: msg})
	fmt.Fprintln(stdout, string(b))
	return 1
}

// Env is the configuration, logger and calibration metrics shared by every subcommand.
type Env struct {
	Config   config.Config
	Logger   zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *credit.Metrics
}

// WriteMetrics writes the gathered metric families in the Prometheus text format.
func (e Env) WriteMetrics(w io.Writer) error {
	families, err := e.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// LoadEnv loads the YAML config (defaults when path is empty) and builds a logger on stderr.
func LoadEnv(path string, stderr io.Writer) (Env, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return Env{}, err
	}
	reg := prometheus.NewRegistry()
	env := Env{Config: *cfg, Registry: reg, Metrics: credit.NewMetrics(reg)}
	if cfg.Log.Output != "" && cfg.Log.Output != "stderr" {
		if env.Logger, err = logger.New(cfg.Log); err != nil {
			return Env{}, err
		}
		return env, nil
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return Env{}, fmt.Errorf("invalid log level: %w", err)
	}
	env.Logger = logger.NewWithWriter(zerolog.SyncWriter(stderr), cfg.Log.Format, level)
	return env, nil
}

// ParseDate parses a "YYYY-MM-DD" field, naming it in the error.
func ParseDate(field, s string) (time.Time, error) {
	t, err := utils.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %v", field, err)
	}
	return t, nil
}

func dayCount(cfg config.Valuation, convention, stub string) (utils.DayCountPolicy, error) {
	if convention == "" {
		convention = cfg.DayCount
	}
	if stub == "" {
		stub = cfg.StubRule
	}
	dc, err := utils.ParseDayCount(convention)
	if err != nil {
		return utils.DayCountPolicy{}, err
	}
	rule, err := utils.ParseStubRule(stub)
	if err != nil {
		return utils.DayCountPolicy{}, err
	}
	return utils.DayCountPolicy{Convention: dc, Stub: rule}, nil
}

func calendarOr(cfg config.Valuation, name string) (calendar.CalendarID, error) {
	if name == "" {
		name = cfg.Calendar
	}
	return calendar.Parse(name)
}

// DiscountCurve builds the discount curve described by d at valuation date.
func (d Discount) DiscountCurve(valuationDate time.Time) (credit.ShiftableCurve, error) {
	switch {
	case d.FlatRate != nil:
		return ircurve.NewFlatCurve(valuationDate, *d.FlatRate, utils.Act365F), nil
	case len(d.OISQuotes) > 0:
		cal, conv := calendar.TARGET, ircurve.ESTR
		if d.OISIndex == "SOFR" {
			cal, conv = calendar.USD, ircurve.SOFR
		}
		crv, err := ircurve.BuildCurve(valuationDate, d.OISQuotes, cal, conv)
		if err != nil {
			return nil, err
		}
		return crv, nil
	case len(d.DiscountFactors) > 0:
		nodes := make(map[time.Time]float64, len(d.DiscountFactors))
		for k, v := range d.DiscountFactors {
			t, err := ParseDate("discount_factors date", k)
			if err != nil {
				return nil, err
			}
			nodes[t] = v
		}
		crv, err := ircurve.NewCurveFromDFs(valuationDate, nodes)
		if err != nil {
			return nil, err
		}
		return crv, nil
	default:
		return nil, fmt.Errorf("discount requires flat_rate, ois_quotes or discount_factors")
	}
}

// MarketCurve converts the input into a calibrator and its discount curve.
func (m Market) MarketCurve(env Env) (*credit.MarketCurve, credit.ShiftableCurve, error) {
	valDate, err := ParseDate("valuation_date", m.ValuationDate)
	if err != nil {
		return nil, nil, err
	}
	disc, err := m.Discount.DiscountCurve(valDate)
	if err != nil {
		return nil, nil, err
	}
	vcfg := env.Config.Valuation
	dc, err := dayCount(vcfg, m.DayCount, m.StubRule)
	if err != nil {
		return nil, nil, err
	}
	cal, err := calendarOr(vcfg, m.Calendar)
	if err != nil {
		return nil, nil, err
	}
	kind, err := credit.ParseCdsType(m.CdsType)
	if err != nil {
		return nil, nil, err
	}
	recovery := vcfg.RecoveryRate
	if m.RecoveryRate != nil {
		recovery = *m.RecoveryRate
	}
	freq := m.CouponFrequencyMonths
	if freq == 0 {
		freq = vcfg.CouponFrequencyMonths
	}

	quotes := make([]credit.Quote, len(m.Quotes))
	for i, q := range m.Quotes {
		quotes[i] = credit.Quote{Tenor: strings.ToUpper(strings.TrimSpace(q.Tenor)), SpreadBP: q.SpreadBP}
		if q.Maturity != "" {
			if quotes[i].Maturity, err = ParseDate("quote maturity", q.Maturity); err != nil {
				return nil, nil, err
			}
		}
	}

	return &credit.MarketCurve{
		Entity:                m.Entity,
		ValuationDate:         valDate,
		Quotes:                quotes,
		Discount:              disc,
		RecoveryRate:          recovery,
		DayCount:              dc,
		Calendar:              cal,
		Type:                  kind,
		CouponFrequencyMonths: freq,
		Solver:                env.Config.Solver,
		Logger:                env.Logger,
		Metrics:               env.Metrics,
	}, disc, nil
}

// CDS builds the instrument on the market's calendar and day count.
func (t Trade) CDS(market *credit.MarketCurve, env Env) (*credit.CDS, error) {
	dir, err := credit.ParseDirection(t.Direction)
	if err != nil {
		return nil, err
	}
	effective, err := ParseDate("effective_date", t.EffectiveDate)
	if err != nil {
		return nil, err
	}
	maturity, err := ParseDate("maturity_date", t.MaturityDate)
	if err != nil {
		return nil, err
	}
	var upfrontDate time.Time
	if t.UpfrontDate != "" {
		if upfrontDate, err = ParseDate("upfront_date", t.UpfrontDate); err != nil {
			return nil, err
		}
	}
	freq := t.CouponFrequencyMonths
	if freq == 0 {
		freq = env.Config.Valuation.CouponFrequencyMonths
	}

	p := credit.Params{
		Direction:               dir,
		Notional:                t.Notional,
		EffectiveDate:           effective,
		MaturityDate:            maturity,
		UpfrontAmount:           t.UpfrontAmount,
		UpfrontDate:             upfrontDate,
		CouponPayFront:          t.CouponPayFront,
		SpreadBP:                t.SpreadBP,
		DayCount:                market.DayCount,
		Calendar:                market.Calendar,
		RecoveryRate:            t.RecoveryRate,
		AccrualType:             credit.AccrualType(t.AccrualType),
		AccrualPaymentTiming:    credit.AccrualPaymentTiming(t.AccrualPaymentDateType),
		ProtectionPaymentTiming: credit.ProtectionPaymentTiming(t.ProtectionPaymentDateType),
	}
	if t.SpreadBP != 0 {
		if p.Schedule, err = credit.StandardSchedule(effective, maturity, freq, market.Calendar, t.CouponPayFront); err != nil {
			return nil, err
		}
	}
	return credit.New(p)
}

// Position is a trade valued against one market.
type Position struct {
	Market Market `json:"market"`
	Trade  Trade  `json:"trade"`

	// AsOf defaults to the market valuation date.
	AsOf string `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

// Resolved holds the library objects built from a Position.
type Resolved struct {
	AsOf     time.Time
	Market   *credit.MarketCurve
	Discount credit.ShiftableCurve
	CDS      *credit.CDS
}

// Resolve builds the calibrator, the discount curve and the instrument. The
// credit curve itself is left to the caller.
func (p Position) Resolve(env Env) (Resolved, error) {
	market, disc, err := p.Market.MarketCurve(env)
	if err != nil {
		return Resolved{}, err
	}
	cds, err := p.Trade.CDS(market, env)
	if err != nil {
		return Resolved{}, err
	}
	asOf := market.ValuationDate
	if p.AsOf != "" {
		if asOf, err = ParseDate("as_of", p.AsOf); err != nil {
			return Resolved{}, err
		}
	}
	return Resolved{AsOf: asOf, Market: market, Discount: disc, CDS: cds}, nil
}
