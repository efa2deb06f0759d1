package credit

import (
	"fmt"
	"sort"
	"time"

	"github.com/meenmo/cdslib/utils"
)

// NPV values the contract at asOf from the direction's side:
// sign * (protection - premium survival - premium default accrual - upfront).
func (c *CDS) NPV(asOf time.Time, disc DiscountCurve, curve SurvivalCurve) (float64, error) {
	legs, err := c.Legs(asOf, disc, curve)
	if err != nil {
		return 0, err
	}
	return legs.NPV, nil
}

// Legs returns every NPV component.
func (c *CDS) Legs(asOf time.Time, disc DiscountCurve, curve SurvivalCurve) (LegPV, error) {
	if err := c.checkValuation(asOf, disc, curve); err != nil {
		return LegPV{}, fmt.Errorf("Legs: %w", err)
	}
	sAsOf := curve.SurvivalProbability(asOf)
	spread := c.p.SpreadBP / 10000.0

	var out LegPV
	out.Protection = c.protectionPV(asOf, sAsOf, disc, curve)
	surv, accr := c.premiumPV(asOf, sAsOf, disc, curve)
	out.PremiumSurvival = c.p.Notional * spread * surv
	out.PremiumAccrual = c.p.Notional * spread * accr
	// An upfront settling on asOf is already paid.
	if c.p.UpfrontDate.After(asOf) {
		out.Upfront = c.p.UpfrontAmount * disc.DF(c.p.UpfrontDate)
	}
	out.NPV = c.sign * (out.Protection - out.PremiumSurvival - out.PremiumAccrual - out.Upfront)
	return out, nil
}

// RiskyAnnuity is the premium PV of a 1 (decimal) running spread per unit notional,
// including the default accrual.
func (c *CDS) RiskyAnnuity(asOf time.Time, disc DiscountCurve, curve SurvivalCurve) (float64, error) {
	if err := c.checkValuation(asOf, disc, curve); err != nil {
		return 0, fmt.Errorf("RiskyAnnuity: %w", err)
	}
	surv, accr := c.premiumPV(asOf, curve.SurvivalProbability(asOf), disc, curve)
	return surv + accr, nil
}

// ParSpread is the running spread in bp that sets the premium legs equal to
// protection, ignoring upfront.
func (c *CDS) ParSpread(asOf time.Time, disc DiscountCurve, curve SurvivalCurve) (float64, error) {
	if err := c.checkValuation(asOf, disc, curve); err != nil {
		return 0, fmt.Errorf("ParSpread: %w", err)
	}
	sAsOf := curve.SurvivalProbability(asOf)
	surv, accr := c.premiumPV(asOf, sAsOf, disc, curve)
	annuity := c.p.Notional * (surv + accr)
	if annuity == 0 {
		return 0, fmt.Errorf("ParSpread: zero risky annuity")
	}
	return c.protectionPV(asOf, sAsOf, disc, curve) / annuity * 10000.0, nil
}

func (c *CDS) checkValuation(asOf time.Time, disc DiscountCurve, curve SurvivalCurve) error {
	if disc == nil || curve == nil {
		return ErrNilCurve
	}
	if asOf.After(c.p.MaturityDate) {
		return fmt.Errorf("%w: %s after %s", ErrValuationAfterMaturity, utils.FormatDate(asOf), utils.FormatDate(c.p.MaturityDate))
	}
	return nil
}

// protectionPV is N(1-R) times the discounted default probability conditional on survival to asOf.
func (c *CDS) protectionPV(asOf time.Time, sAsOf float64, disc DiscountCurve, curve SurvivalCurve) float64 {
	lgd := c.p.Notional * (1 - c.recovery(curve))
	pv := 0.0

	if c.p.ProtectionPaymentTiming == ProtectionPaidAtPeriodEnd {
		for _, pp := range c.protection {
			if !pp.end.After(asOf) {
				continue
			}
			start := pp.start
			if start.Before(asOf) {
				start = asOf
			}
			pv += (curve.SurvivalProbability(start) - curve.SurvivalProbability(pp.end)) * disc.DF(pp.end)
		}
		return lgd * pv / sAsOf
	}

	days := c.protectionDays
	i0 := sort.Search(len(days), func(i int) bool { return !days[i].Before(asOf) })
	if i0 >= len(days) {
		return 0
	}
	prev := curve.SurvivalProbability(days[i0])
	for k := i0 + 1; k < len(days); k++ {
		s := curve.SurvivalProbability(days[k])
		pv += (prev - s) * disc.DF(days[k])
		prev = s
	}
	return lgd * pv / sAsOf
}

// premiumPV returns the survival-contingent and default-accrual premium PVs per
// unit notional and unit spread.
func (c *CDS) premiumPV(asOf time.Time, sAsOf float64, disc DiscountCurve, curve SurvivalCurve) (surv, accr float64) {
	for _, cp := range c.periods {
		if cp.payment.After(asOf) {
			det := cp.determination
			if det.Before(asOf) {
				det = asOf
			}
			surv += cp.yearFraction * disc.DF(cp.payment) * curve.SurvivalProbability(det)
		}
		if c.hasAccrualLeg && cp.end.After(asOf) {
			accr += c.periodAccrual(cp, asOf, disc, curve)
		}
	}
	return surv / sAsOf, accr / sAsOf
}

// periodAccrual sums the default-contingent accrual day by day over the period's
// business-day grid, clipped to asOf. Default on a step is taken at its right endpoint.
func (c *CDS) periodAccrual(cp couponPeriod, asOf time.Time, disc DiscountCurve, curve SurvivalCurve) float64 {
	payAtDefault := c.p.AccrualPaymentTiming == AccrualPaidAtDefault
	dfPay := 0.0
	if !payAtDefault {
		dfPay = disc.DF(cp.payment)
	}

	pv := 0.0
	prev := -1.0
	for k := 0; k+1 < len(cp.grid); k++ {
		right := cp.grid[k+1]
		if !right.After(asOf) {
			continue
		}
		if prev < 0 {
			left := cp.grid[k]
			if left.Before(asOf) {
				left = asOf
			}
			prev = curve.SurvivalProbability(left)
		}
		s := curve.SurvivalProbability(right)
		df := dfPay
		if payAtDefault {
			df = disc.DF(right)
		}
		pv += (prev - s) * df * cp.fractions[k]
		prev = s
	}
	return pv
}
