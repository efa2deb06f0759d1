package credit

import (
	"errors"
	"time"

	"github.com/meenmo/cdslib/ircurve"
)

var (
	// ErrInvalidSchedule is returned for malformed coupon or protection schedules.
	ErrInvalidSchedule = errors.New("credit: invalid schedule")
	// ErrInvalidConvention is returned for unknown or incompatible accrual/payment conventions.
	ErrInvalidConvention = errors.New("credit: invalid convention")
	// ErrUnsupportedMode is returned for an unknown valuation mode or an unsupported mode/flag combination.
	ErrUnsupportedMode = errors.New("credit: unsupported valuation mode")
	// ErrUnsupportedCurveType is returned for an unknown market curve type.
	ErrUnsupportedCurveType = errors.New("credit: unsupported curve type")
	// ErrNoConvergence is returned when the pillar solver fails on both passes.
	ErrNoConvergence = errors.New("credit: solver did not converge")
	// ErrNegativeHazard is returned when a solved hazard rate is negative under the fail policy.
	ErrNegativeHazard = errors.New("credit: negative hazard rate")
	// ErrValuationAfterMaturity is returned when the valuation date is after maturity.
	ErrValuationAfterMaturity = errors.New("credit: valuation date after maturity")
	// ErrNilCurve is returned when a required curve argument is nil.
	ErrNilCurve = errors.New("credit: nil curve")
)

// DiscountCurve provides discount factors relative to the curve's settlement date.
type DiscountCurve = ircurve.DiscountCurve

// ShiftableCurve is a discount curve that supports parallel shifts for IR risk.
type ShiftableCurve = ircurve.Shiftable

// SurvivalCurve is the read side of a credit curve.
// Both the published HazardRateCurve and the calibration builder implement it.
type SurvivalCurve interface {
	SurvivalProbability(t time.Time) float64
	HazardRate(t time.Time) float64
	RecoveryRate() float64
}

// LegPV breaks an NPV into its undiscounted-sign components.
//
// All legs are reported from the protection buyer's side before the direction
// sign is applied; NPV carries the sign.
type LegPV struct {
	Protection      float64 `json:"protection_leg"`
	PremiumSurvival float64 `json:"premium_leg_survival"`
	PremiumAccrual  float64 `json:"premium_leg_accrual"`
	Upfront         float64 `json:"upfront"`
	NPV             float64 `json:"npv"`
}
