package credit

import (
	"fmt"
	"strings"
	"time"

	"github.com/meenmo/cdslib/utils"
)

// Direction is the protection side of a position.
type Direction string

const (
	// Long buys protection: receives the protection leg and pays premium.
	Long Direction = "long"
	// Short sells protection.
	Short Direction = "short"
)

// ParseDirection accepts long/short and the buy/sell aliases.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	default:
		return "", fmt.Errorf("%w: direction %q", ErrInvalidConvention, s)
	}
}

func (d Direction) sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// AccrualType is how much premium accrues when default happens inside a coupon period.
type AccrualType string

const (
	AccrualToDefaultDate   AccrualType = "ToDefaultDate"
	AccrualToPeriodEndDate AccrualType = "ToPeriodEndDate"
	AccrualZero            AccrualType = "Zero"
)

// AccrualPaymentTiming is when the default-contingent accrual is paid.
type AccrualPaymentTiming string

const (
	AccrualPaidAtDefault     AccrualPaymentTiming = "DefaultDate"
	AccrualPaidAtPaymentDate AccrualPaymentTiming = "PaymentDate"
)

// ProtectionPaymentTiming is when the protection leg settles.
type ProtectionPaymentTiming string

const (
	ProtectionPaidAtDefault   ProtectionPaymentTiming = "DefaultDate"
	ProtectionPaidAtPeriodEnd ProtectionPaymentTiming = "PeriodEndDate"
)

// Mode is the price/accrued reporting convention.
type Mode string

const (
	// ModeFI counts accrual in the first period whose payment date is after settlement.
	ModeFI Mode = "FI"
	// ModeBBG counts accrual in the first period whose end date is after settlement.
	ModeBBG Mode = "BBG"
)

// CdsType selects how calibration maturities are derived.
type CdsType string

const (
	// SingleName maturities roll from the next IMM date by the quoted tenor.
	SingleName CdsType = "single_name"
	// Index maturities are given explicitly per quote.
	Index CdsType = "index"
)

func ParseAccrualType(s string) (AccrualType, error) {
	switch AccrualType(strings.TrimSpace(s)) {
	case "", AccrualToDefaultDate:
		return AccrualToDefaultDate, nil
	case AccrualToPeriodEndDate:
		return AccrualToPeriodEndDate, nil
	case AccrualZero:
		return AccrualZero, nil
	default:
		return "", fmt.Errorf("%w: accrual type %q", ErrInvalidConvention, s)
	}
}

func ParseAccrualPaymentTiming(s string) (AccrualPaymentTiming, error) {
	switch AccrualPaymentTiming(strings.TrimSpace(s)) {
	case "", AccrualPaidAtDefault:
		return AccrualPaidAtDefault, nil
	case AccrualPaidAtPaymentDate:
		return AccrualPaidAtPaymentDate, nil
	default:
		return "", fmt.Errorf("%w: accrual payment date type %q", ErrInvalidConvention, s)
	}
}

func ParseProtectionPaymentTiming(s string) (ProtectionPaymentTiming, error) {
	switch ProtectionPaymentTiming(strings.TrimSpace(s)) {
	case "", ProtectionPaidAtDefault:
		return ProtectionPaidAtDefault, nil
	case ProtectionPaidAtPeriodEnd:
		return ProtectionPaidAtPeriodEnd, nil
	default:
		return "", fmt.Errorf("%w: protection payment date type %q", ErrInvalidConvention, s)
	}
}

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", ModeFI:
		return ModeFI, nil
	case ModeBBG:
		return ModeBBG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

func ParseCdsType(s string) (CdsType, error) {
	switch CdsType(strings.ToLower(strings.TrimSpace(s))) {
	case "", SingleName:
		return SingleName, nil
	case Index:
		return Index, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurveType, s)
	}
}

// accrualFraction returns the premium fraction owed for a default on day d
// inside [start, end]. Negative values are rebates of premium paid in advance.
type accrualFraction func(dc utils.DayCountPolicy, start, end, d time.Time) float64

type accrualKey struct {
	payFront bool
	accrual  AccrualType
}

// accrualFractions is resolved once per instrument. Missing keys have no
// default-accrual leg.
var accrualFractions = map[accrualKey]accrualFraction{
	{payFront: false, accrual: AccrualToDefaultDate}: func(dc utils.DayCountPolicy, start, _, d time.Time) float64 {
		return dc.YearFraction(start, d)
	},
	{payFront: false, accrual: AccrualToPeriodEndDate}: func(dc utils.DayCountPolicy, start, end, _ time.Time) float64 {
		return dc.YearFraction(start, end)
	},
	{payFront: true, accrual: AccrualToDefaultDate}: func(dc utils.DayCountPolicy, start, end, d time.Time) float64 {
		return -(dc.YearFraction(start, end) - dc.YearFraction(start, d))
	},
	{payFront: true, accrual: AccrualZero}: func(dc utils.DayCountPolicy, start, end, _ time.Time) float64 {
		return -dc.YearFraction(start, end)
	},
}
