package credit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/cdslib/credit"
)

func TestValueBatch_MatchesSequential(t *testing.T) {
	t.Parallel()

	disc := flatDiscount(0.03)
	curve, err := singleNameMarket(disc, upwardSpreads).Build()
	require.NoError(t, err)

	var trades []*credit.CDS
	for i, spread := range []float64{25, 100, 250, 500, 1000} {
		dir := credit.Long
		if i%2 == 1 {
			dir = credit.Short
		}
		trades = append(trades, newCDS(t, dir, spread, date(2024, 12, 20), date(2029, 12, 20)))
	}

	got, err := credit.ValueBatch(context.Background(), trades, valuationDate, disc, curve, credit.ModeFI, 3)
	require.NoError(t, err)
	require.Len(t, got, len(trades))
	for i, trade := range trades {
		legs, err := trade.Legs(valuationDate, disc, curve)
		require.NoError(t, err)
		price, err := trade.PriceCalculation(valuationDate, disc, curve, credit.ModeFI)
		require.NoError(t, err)
		assert.Equal(t, legs, got[i].Legs)
		assert.Equal(t, price, got[i].Price)
	}
}

func TestValueBatch_Errors(t *testing.T) {
	t.Parallel()

	disc := flatDiscount(0.03)
	curve := flatHazard(t, 0.02, 0.4)
	trades := []*credit.CDS{
		newCDS(t, credit.Long, 100, date(2024, 12, 20), date(2029, 12, 20)),
		newCDS(t, credit.Long, 100, date(2023, 12, 20), date(2024, 12, 20)),
	}
	_, err := credit.ValueBatch(context.Background(), trades, valuationDate, disc, curve, credit.ModeFI, 2)
	require.ErrorIs(t, err, credit.ErrValuationAfterMaturity)

	_, err = credit.ValueBatch(context.Background(), trades, valuationDate, disc, nil, credit.ModeFI, 2)
	require.ErrorIs(t, err, credit.ErrNilCurve)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = credit.ValueBatch(ctx, trades[:1], valuationDate, disc, curve, credit.ModeFI, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCalibrateBatch(t *testing.T) {
	t.Parallel()

	disc := flatDiscount(0.03)
	tight := singleNameMarket(disc, map[string]float64{"1Y": 40, "5Y": 60})
	wide := singleNameMarket(disc, map[string]float64{"1Y": 400, "5Y": 600})
	wide.Entity = "WIDE"

	curves, err := credit.CalibrateBatch(context.Background(), []*credit.MarketCurve{tight, wide}, 2)
	require.NoError(t, err)
	require.Len(t, curves, 2)
	assert.Equal(t, "ACME", curves[0].Entity())
	assert.Equal(t, "WIDE", curves[1].Entity())
	assert.Greater(t, curves[1].Rates()[1], curves[0].Rates()[1])

	bad := singleNameMarket(nil, map[string]float64{"1Y": 40})
	_, err = credit.CalibrateBatch(context.Background(), []*credit.MarketCurve{tight, bad}, 2)
	require.ErrorIs(t, err, credit.ErrNilCurve)
}
