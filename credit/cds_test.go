package credit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/credit"
	"github.com/meenmo/cdslib/utils"
)

func baseParams(t *testing.T) credit.Params {
	t.Helper()
	effective, maturity := date(2025, 1, 16), date(2030, 3, 20)
	sched, err := credit.StandardSchedule(effective, maturity, 3, calendar.WeekendsOnly, false)
	require.NoError(t, err)
	return credit.Params{
		Direction:     credit.Long,
		Notional:      1_000_000,
		EffectiveDate: effective,
		MaturityDate:  maturity,
		SpreadBP:      100,
		DayCount:      utils.DayCountPolicy{Convention: utils.Act360},
		Calendar:      calendar.WeekendsOnly,
		Schedule:      sched,
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*credit.Params)
		target error
	}{
		{"unknown direction", func(p *credit.Params) { p.Direction = "flat" }, credit.ErrInvalidConvention},
		{"zero notional", func(p *credit.Params) { p.Notional = 0 }, credit.ErrInvalidSchedule},
		{"maturity before effective", func(p *credit.Params) { p.MaturityDate = date(2024, 1, 1) }, credit.ErrInvalidSchedule},
		{"negative spread", func(p *credit.Params) { p.SpreadBP = -1 }, credit.ErrInvalidConvention},
		{"unknown accrual type", func(p *credit.Params) { p.AccrualType = "Half" }, credit.ErrInvalidConvention},
		{"unknown accrual payment", func(p *credit.Params) { p.AccrualPaymentTiming = "Never" }, credit.ErrInvalidConvention},
		{"unknown protection payment", func(p *credit.Params) { p.ProtectionPaymentTiming = "Later" }, credit.ErrInvalidConvention},
		{"unknown day count", func(p *credit.Params) { p.DayCount.Convention = "BUS/252" }, credit.ErrInvalidConvention},
		{"unknown calendar", func(p *credit.Params) { p.Calendar = "MARS" }, credit.ErrInvalidConvention},
		{"recovery one", func(p *credit.Params) { r := 1.0; p.RecoveryRate = &r }, credit.ErrInvalidConvention},
		{"in advance paid on payment date", func(p *credit.Params) {
			p.CouponPayFront = true
			p.AccrualPaymentTiming = credit.AccrualPaidAtPaymentDate
		}, credit.ErrInvalidConvention},
		{"mismatched coupon arrays", func(p *credit.Params) { p.CouponPayment = p.CouponPayment[1:] }, credit.ErrInvalidSchedule},
		{"mismatched protection arrays", func(p *credit.Params) { p.ProtectionEnd = nil }, credit.ErrInvalidSchedule},
		{"unsorted starts", func(p *credit.Params) {
			p.CouponStart[1], p.CouponStart[2] = p.CouponStart[2], p.CouponStart[1]
		}, credit.ErrInvalidSchedule},
		{"period ends before start", func(p *credit.Params) { p.CouponEnd[3] = p.CouponStart[3] }, credit.ErrInvalidSchedule},
		{"coupon starts after protection", func(p *credit.Params) { p.ProtectionStart[0] = date(2025, 1, 10) }, credit.ErrInvalidSchedule},
		{"protection starts after effective", func(p *credit.Params) {
			p.CouponStart[0] = date(2025, 1, 10)
			p.ProtectionStart[0] = date(2025, 1, 20)
		}, credit.ErrInvalidSchedule},
		{"coupon end not maturity", func(p *credit.Params) {
			n := len(p.CouponEnd) - 1
			p.CouponEnd[n] = p.CouponEnd[n].AddDate(0, 0, -1)
		}, credit.ErrInvalidSchedule},
		{"protection end not maturity", func(p *credit.Params) { p.ProtectionEnd[0] = date(2030, 3, 21) }, credit.ErrInvalidSchedule},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := baseParams(t)
			tc.mutate(&p)
			_, err := credit.New(p)
			require.ErrorIs(t, err, tc.target)
		})
	}
}

func TestNew_DefaultsAndCopies(t *testing.T) {
	t.Parallel()

	p := baseParams(t)
	p.Schedule = credit.Schedule{}
	p.DayCount = utils.DayCountPolicy{}
	p.Calendar = ""
	c, err := credit.New(p)
	require.NoError(t, err)

	got := c.Params()
	assert.Equal(t, utils.Act360, got.DayCount.Convention)
	assert.Equal(t, calendar.WeekendsOnly, got.Calendar)
	assert.Equal(t, credit.AccrualToDefaultDate, got.AccrualType)
	assert.Equal(t, credit.AccrualPaidAtDefault, got.AccrualPaymentTiming)
	assert.Equal(t, credit.ProtectionPaidAtDefault, got.ProtectionPaymentTiming)
	assert.Equal(t, p.EffectiveDate, got.UpfrontDate)
	require.NotEmpty(t, got.CouponStart)
	assert.Equal(t, p.MaturityDate, got.CouponEnd[len(got.CouponEnd)-1])

	got.CouponStart[0] = date(1999, 1, 1)
	assert.Equal(t, p.EffectiveDate, c.Params().CouponStart[0])

	assert.Equal(t, got.CouponEnd, c.CouponDeterminationDates())
}

func TestNew_DeterminationDatesInAdvance(t *testing.T) {
	t.Parallel()

	p := baseParams(t)
	p.CouponPayFront = true
	c, err := credit.New(p)
	require.NoError(t, err)
	assert.Equal(t, p.CouponStart, c.CouponDeterminationDates())
}

func TestNew_ZeroSpreadCollapses(t *testing.T) {
	t.Parallel()

	p := baseParams(t)
	p.SpreadBP = 0
	p.UpfrontAmount = 25_000
	p.UpfrontDate = date(2025, 1, 20)
	p.AccrualPaymentTiming = credit.AccrualPaidAtPaymentDate
	c, err := credit.New(p)
	require.NoError(t, err)

	got := c.Params()
	assert.True(t, got.CouponPayFront)
	assert.Equal(t, []time.Time{p.EffectiveDate}, got.CouponStart)
	assert.Equal(t, []time.Time{p.MaturityDate}, got.CouponEnd)
	assert.Equal(t, []time.Time{p.UpfrontDate}, got.CouponPayment)
}

func TestWithUpfront(t *testing.T) {
	t.Parallel()

	c, err := credit.New(baseParams(t))
	require.NoError(t, err)
	c2, err := c.WithUpfront(50_000, date(2025, 1, 20))
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.Params().UpfrontAmount)
	assert.Equal(t, 50_000.0, c2.Params().UpfrontAmount)
	assert.Equal(t, date(2025, 1, 20), c2.Params().UpfrontDate)
}

func TestParsers(t *testing.T) {
	t.Parallel()

	d, err := credit.ParseDirection("sell")
	require.NoError(t, err)
	assert.Equal(t, credit.Short, d)
	_, err = credit.ParseDirection("both")
	require.ErrorIs(t, err, credit.ErrInvalidConvention)

	m, err := credit.ParseMode("bbg")
	require.NoError(t, err)
	assert.Equal(t, credit.ModeBBG, m)
	_, err = credit.ParseMode("ISDA")
	require.ErrorIs(t, err, credit.ErrUnsupportedMode)

	k, err := credit.ParseCdsType("INDEX")
	require.NoError(t, err)
	assert.Equal(t, credit.Index, k)
	_, err = credit.ParseCdsType("tranche")
	require.ErrorIs(t, err, credit.ErrUnsupportedCurveType)
}
