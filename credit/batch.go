package credit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Valuation is the result for one trade in a batch.
type Valuation struct {
	Legs  LegPV       `json:"legs"`
	Price PriceResult `json:"price"`
}

// ValueBatch values trades concurrently against one immutable curve.
// Results keep the input order; the first error cancels the rest.
func ValueBatch(ctx context.Context, trades []*CDS, asOf time.Time, disc DiscountCurve, curve *HazardRateCurve, mode Mode, workers int) ([]Valuation, error) {
	if curve == nil || disc == nil {
		return nil, fmt.Errorf("ValueBatch: %w", ErrNilCurve)
	}
	out := make([]Valuation, len(trades))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, trade := range trades {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			legs, err := trade.Legs(asOf, disc, curve)
			if err != nil {
				return fmt.Errorf("trade %d: %w", i, err)
			}
			price, err := trade.PriceCalculation(asOf, disc, curve, mode)
			if err != nil {
				return fmt.Errorf("trade %d: %w", i, err)
			}
			out[i] = Valuation{Legs: legs, Price: price}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ValueBatch: %w", err)
	}
	return out, nil
}

// CalibrateBatch bootstraps independent market curves concurrently, one builder per goroutine.
func CalibrateBatch(ctx context.Context, markets []*MarketCurve, workers int) ([]*HazardRateCurve, error) {
	out := make([]*HazardRateCurve, len(markets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, m := range markets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			curve, err := m.Build()
			if err != nil {
				return err
			}
			out[i] = curve
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("CalibrateBatch: %w", err)
	}
	return out, nil
}
