package credit

import (
	"fmt"
	"time"

	"github.com/meenmo/cdslib/config"
)

// DV01Spread re-bootstraps the market curve with every quote moved by +/- tweakBP
// and returns the central difference per 1bp, (npv_up - npv_down) / (2 * tweakBP).
func (c *CDS) DV01Spread(asOf time.Time, disc DiscountCurve, market *MarketCurve, tweakBP float64) (float64, error) {
	if market == nil {
		return 0, fmt.Errorf("DV01Spread: %w", ErrNilCurve)
	}
	if tweakBP <= 0 {
		return 0, fmt.Errorf("DV01Spread: %w: tweak %.4g bp must be positive", ErrInvalidConvention, tweakBP)
	}
	up, err := c.npvOn(asOf, disc, market.TweakParallel(tweakBP))
	if err != nil {
		return 0, fmt.Errorf("DV01Spread: up: %w", err)
	}
	down, err := c.npvOn(asOf, disc, market.TweakParallel(-tweakBP))
	if err != nil {
		return 0, fmt.Errorf("DV01Spread: down: %w", err)
	}
	return (up - down) / (2 * tweakBP), nil
}

// DV01IR shifts the discount curve by +/- tweakBP and returns the central difference
// per 1bp, (npv_up - npv_down) / (2 * tweakBP).
// With creditCurveChange the credit curve is re-bootstrapped on each shifted curve,
// otherwise the curve built from market is held fixed.
func (c *CDS) DV01IR(asOf time.Time, disc ShiftableCurve, market *MarketCurve, tweakBP float64, creditCurveChange bool) (float64, error) {
	if disc == nil || market == nil {
		return 0, fmt.Errorf("DV01IR: %w", ErrNilCurve)
	}
	if tweakBP <= 0 {
		return 0, fmt.Errorf("DV01IR: %w: tweak %.4g bp must be positive", ErrInvalidConvention, tweakBP)
	}
	discUp, err := disc.Shift(tweakBP)
	if err != nil {
		return 0, fmt.Errorf("DV01IR: shift up: %w", err)
	}
	discDown, err := disc.Shift(-tweakBP)
	if err != nil {
		return 0, fmt.Errorf("DV01IR: shift down: %w", err)
	}

	var up, down float64
	if creditCurveChange {
		if up, err = c.npvOn(asOf, discUp, market.WithDiscountCurve(discUp)); err != nil {
			return 0, fmt.Errorf("DV01IR: up: %w", err)
		}
		if down, err = c.npvOn(asOf, discDown, market.WithDiscountCurve(discDown)); err != nil {
			return 0, fmt.Errorf("DV01IR: down: %w", err)
		}
		return (up - down) / (2 * tweakBP), nil
	}

	curve, err := market.Build()
	if err != nil {
		return 0, fmt.Errorf("DV01IR: %w", err)
	}
	if up, err = c.NPV(asOf, discUp, curve); err != nil {
		return 0, fmt.Errorf("DV01IR: up: %w", err)
	}
	if down, err = c.NPV(asOf, discDown, curve); err != nil {
		return 0, fmt.Errorf("DV01IR: down: %w", err)
	}
	return (up - down) / (2 * tweakBP), nil
}

func (c *CDS) npvOn(asOf time.Time, disc DiscountCurve, market *MarketCurve) (float64, error) {
	curve, err := market.Build()
	if err != nil {
		return 0, err
	}
	return c.NPV(asOf, disc, curve)
}

// RiskReport bundles the base NPV with both sensitivities.
type RiskReport struct {
	NPV        float64 `json:"npv"`
	ParSpread  float64 `json:"par_spread_bp"`
	DV01Spread float64 `json:"dv01_spread"`
	DV01IR     float64 `json:"dv01_ir"`
}

// Risk computes NPV, par spread and both DV01s with the bump sizes in cfg.
// The discount curve must be the one market was quoted against.
func (c *CDS) Risk(asOf time.Time, disc ShiftableCurve, market *MarketCurve, cfg config.Risk) (RiskReport, error) {
	if disc == nil || market == nil {
		return RiskReport{}, fmt.Errorf("Risk: %w", ErrNilCurve)
	}
	base := market.WithDiscountCurve(disc)
	curve, err := base.Build()
	if err != nil {
		return RiskReport{}, fmt.Errorf("Risk: %w", err)
	}
	var out RiskReport
	if out.NPV, err = c.NPV(asOf, disc, curve); err != nil {
		return RiskReport{}, fmt.Errorf("Risk: %w", err)
	}
	if out.ParSpread, err = c.ParSpread(asOf, disc, curve); err != nil {
		return RiskReport{}, fmt.Errorf("Risk: %w", err)
	}
	if out.DV01Spread, err = c.DV01Spread(asOf, disc, base, cfg.SpreadTweakBP); err != nil {
		return RiskReport{}, fmt.Errorf("Risk: %w", err)
	}
	if out.DV01IR, err = c.DV01IR(asOf, disc, base, cfg.RateTweakBP, !cfg.HoldCreditCurve); err != nil {
		return RiskReport{}, fmt.Errorf("Risk: %w", err)
	}
	return out, nil
}
