package credit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/credit"
	"github.com/meenmo/cdslib/ircurve"
	"github.com/meenmo/cdslib/utils"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var valuationDate = date(2025, 1, 15)

func flatDiscount(rate float64) *ircurve.FlatCurve {
	return ircurve.NewFlatCurve(valuationDate, rate, utils.Act365F)
}

func flatHazard(t *testing.T, rate, recovery float64) *credit.HazardRateCurve {
	t.Helper()
	crv, err := credit.NewHazardRateCurve("FLAT", valuationDate, []time.Time{date(2040, 1, 15)}, []float64{rate}, recovery)
	require.NoError(t, err)
	return crv
}

// newCDS builds a quarterly in-arrears contract on the WeekendsOnly calendar.
func newCDS(t *testing.T, dir credit.Direction, spreadBP float64, effective, maturity time.Time, opts ...func(*credit.Params)) *credit.CDS {
	t.Helper()
	sched, err := credit.StandardSchedule(effective, maturity, 3, calendar.WeekendsOnly, false)
	require.NoError(t, err)
	p := credit.Params{
		Direction:     dir,
		Notional:      10_000_000,
		EffectiveDate: effective,
		MaturityDate:  maturity,
		SpreadBP:      spreadBP,
		DayCount:      utils.DayCountPolicy{Convention: utils.Act360},
		Calendar:      calendar.WeekendsOnly,
		Schedule:      sched,
	}
	for _, o := range opts {
		o(&p)
	}
	c, err := credit.New(p)
	require.NoError(t, err)
	return c
}

func singleNameMarket(disc credit.DiscountCurve, spreads map[string]float64) *credit.MarketCurve {
	quotes := make([]credit.Quote, 0, len(spreads))
	for tenor, s := range spreads {
		quotes = append(quotes, credit.Quote{Tenor: tenor, SpreadBP: s})
	}
	return &credit.MarketCurve{
		Entity:        "ACME",
		ValuationDate: valuationDate,
		Quotes:        quotes,
		Discount:      disc,
		RecoveryRate:  0.4,
		DayCount:      utils.DayCountPolicy{Convention: utils.Act360},
		Calendar:      calendar.WeekendsOnly,
		Type:          credit.SingleName,
	}
}
