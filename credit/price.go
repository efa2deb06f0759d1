package credit

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/cdslib/utils"
)

// PriceResult is the settlement view of a position.
//
// AccruedCoupon is the unsigned coupon accrued since the current period start;
// the protection buyer owes it to the seller.
type PriceResult struct {
	NPV           float64 `json:"npv"`
	CashAmount    float64 `json:"cash_amount"`
	AccruedCoupon float64 `json:"accrued_coupon"`
	AccruedDays   int     `json:"accrued_days"`
	Principal     float64 `json:"principal"`
	Price         float64 `json:"price"`
}

// Rounded returns the result with amounts rounded to cents and price to 6 decimals.
func (r PriceResult) Rounded() PriceResult {
	cents := func(v float64) float64 {
		f, _ := decimal.NewFromFloat(v).Round(2).Float64()
		return f
	}
	price, _ := decimal.NewFromFloat(r.Price).Round(6).Float64()
	return PriceResult{
		NPV:           cents(r.NPV),
		CashAmount:    cents(r.CashAmount),
		AccruedCoupon: cents(r.AccruedCoupon),
		AccruedDays:   r.AccruedDays,
		Principal:     cents(r.Principal),
		Price:         price,
	}
}

// PriceCalculation values an upfront-free copy of the contract at settle and splits
// the cash amount into accrued coupon and principal.
//
// BBG mode is only defined for premium in arrears with ToDefaultDate accrual paid at default.
func (c *CDS) PriceCalculation(settle time.Time, disc DiscountCurve, curve SurvivalCurve, mode Mode) (PriceResult, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return PriceResult{}, fmt.Errorf("PriceCalculation: %w", err)
	}
	if mode == ModeBBG && (c.p.CouponPayFront || c.p.AccrualType != AccrualToDefaultDate || c.p.AccrualPaymentTiming != AccrualPaidAtDefault) {
		return PriceResult{}, fmt.Errorf("PriceCalculation: %w: BBG with payFront=%t accrual=%s payment=%s",
			ErrUnsupportedMode, c.p.CouponPayFront, c.p.AccrualType, c.p.AccrualPaymentTiming)
	}

	npv, err := c.withoutUpfront().NPV(settle, disc, curve)
	if err != nil {
		return PriceResult{}, fmt.Errorf("PriceCalculation: %w", err)
	}
	df := disc.DF(settle)
	if df <= 0 {
		return PriceResult{}, fmt.Errorf("PriceCalculation: non-positive discount factor %.6g at %s", df, utils.FormatDate(settle))
	}

	res := PriceResult{NPV: npv, CashAmount: npv / df}
	res.AccruedCoupon, res.AccruedDays = c.accrued(settle, mode)
	// Cash includes the accrued owed by the buyer; the principal excludes it.
	res.Principal = res.CashAmount + c.sign*res.AccruedCoupon
	res.Price = 100 * (1 + c.sign*res.Principal/c.p.Notional)
	return res, nil
}

// accrued returns the unsigned accrued coupon at settle and its day count.
func (c *CDS) accrued(settle time.Time, mode Mode) (float64, int) {
	if c.p.CouponPayFront || c.p.SpreadBP == 0 {
		return 0, 0
	}
	if mode == ModeBBG && settle.Equal(c.p.MaturityDate) {
		return 0, 0
	}
	for _, cp := range c.periods {
		current := cp.payment.After(settle)
		if mode == ModeBBG {
			current = cp.end.After(settle)
		}
		if !current {
			continue
		}
		if !settle.After(cp.start) {
			return 0, 0
		}
		yf := c.p.DayCount.YearFraction(cp.start, settle)
		return c.p.Notional * c.p.SpreadBP / 10000.0 * yf, int(utils.Days(cp.start, settle))
	}
	return 0, 0
}
