package ircurve_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/ircurve"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var estrQuotes = map[string]float64{
	"1M":  1.93,
	"3M":  1.94,
	"6M":  1.96,
	"1Y":  2.00,
	"2Y":  2.05,
	"3Y":  2.10,
	"5Y":  2.20,
	"7Y":  2.30,
	"10Y": 2.45,
	"15Y": 2.60,
}

func TestBuildCurve_SingleAnnualQuoteReprices(t *testing.T) {
	t.Parallel()

	settlement := date(2025, 1, 15)
	crv, err := ircurve.BuildCurve(settlement, map[string]float64{"1Y": 2.0}, calendar.TARGET, ircurve.ESTR)
	require.NoError(t, err)

	// 2026-01-15 is a Thursday; T+1 payment on Friday.
	pay := date(2026, 1, 16)
	alpha := 365.0 / 360.0
	assert.InDelta(t, 1.0, crv.DF(pay)*(1+0.02*alpha), 1e-10)
	assert.Equal(t, 1.0, crv.DF(settlement))

	assert.Equal(t, settlement, crv.Settlement())
	nodes := crv.PillarDFs()
	require.Len(t, nodes, 2)
	assert.Equal(t, 1.0, nodes[settlement])
	// The pillar is the adjusted maturity, not the payment date.
	assert.InDelta(t, crv.DF(date(2026, 1, 15)), nodes[date(2026, 1, 15)], 1e-15)
}

func TestBuildCurve_MonotoneAndShift(t *testing.T) {
	t.Parallel()

	settlement := date(2025, 1, 15)
	crv, err := ircurve.BuildCurve(settlement, estrQuotes, calendar.TARGET, ircurve.ESTR)
	require.NoError(t, err)

	prev := 1.0
	for d := settlement.AddDate(0, 1, 0); d.Before(settlement.AddDate(16, 0, 0)); d = d.AddDate(0, 1, 0) {
		df := crv.DF(d)
		require.Less(t, df, prev, "DF must decrease at %s", d.Format("2006-01-02"))
		prev = df
	}

	up, err := crv.Shift(1)
	require.NoError(t, err)
	tenY := date(2035, 1, 15)
	assert.Less(t, up.DF(tenY), crv.DF(tenY))

	z := crv.ZeroRateAt(tenY)
	assert.InDelta(t, 2.4, z, 0.2)
}

func TestBuildCurve_Errors(t *testing.T) {
	t.Parallel()

	_, err := ircurve.BuildCurve(date(2025, 1, 15), nil, calendar.TARGET, ircurve.ESTR)
	require.ErrorIs(t, err, ircurve.ErrNoQuotes)

	_, err = ircurve.BuildCurve(date(2025, 1, 15), map[string]float64{"1Q": 2}, calendar.TARGET, ircurve.ESTR)
	require.Error(t, err)

	_, err = ircurve.BuildCurve(date(2025, 1, 15), map[string]float64{"12M": 2, "1Y": 2}, calendar.TARGET, ircurve.ESTR)
	require.Error(t, err)
}

func TestFlatCurveAndNodeCurve(t *testing.T) {
	t.Parallel()

	settlement := date(2025, 1, 1)
	flat := ircurve.NewFlatCurve(settlement, 0.03, "")
	oneY := date(2026, 1, 1)
	assert.InDelta(t, math.Exp(-0.03), flat.DF(oneY), 1e-12)

	shifted, err := flat.Shift(100)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-0.04), shifted.DF(oneY), 1e-12)

	nodes, err := ircurve.NewCurveFromDFs(settlement, map[time.Time]float64{
		settlement: 1.0,
		oneY:       0.95,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.95, nodes.DF(oneY), 1e-12)
	assert.InDelta(t, math.Pow(0.95, 182.0/365.0), nodes.DF(date(2025, 7, 2)), 1e-12)

	nodesUp, err := nodes.Shift(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.95*math.Exp(-0.0001), nodesUp.DF(oneY), 1e-12)

	_, err = ircurve.NewCurveFromDFs(settlement, map[time.Time]float64{oneY: -1})
	require.Error(t, err)
}
