package main

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/credit"
	"github.com/meenmo/cdslib/ircurve"
	"github.com/meenmo/cdslib/utils"
)

// Reprices every calibration instrument off a curve bootstrapped from externally
// supplied discount factors, isolating the credit bootstrap from the OIS bootstrap.
func main() {
	valuationDate := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	// Replace with the DF export of the reference system.
	dfs := map[time.Time]float64{
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC): 0.976470,
		time.Date(2028, 1, 17, 0, 0, 0, 0, time.UTC): 0.935370,
		time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC): 0.894011,
		time.Date(2035, 1, 15, 0, 0, 0, 0, time.UTC): 0.789200,
	}
	disc, err := ircurve.NewCurveFromDFs(valuationDate, dfs)
	if err != nil {
		panic(err)
	}

	market := &credit.MarketCurve{
		Entity:        "DIAG",
		ValuationDate: valuationDate,
		Quotes: []credit.Quote{
			{Tenor: "6M", SpreadBP: 40},
			{Tenor: "1Y", SpreadBP: 45},
			{Tenor: "2Y", SpreadBP: 55},
			{Tenor: "3Y", SpreadBP: 65},
			{Tenor: "5Y", SpreadBP: 85},
			{Tenor: "7Y", SpreadBP: 100},
			{Tenor: "10Y", SpreadBP: 115},
		},
		Discount:     disc,
		RecoveryRate: 0.4,
		DayCount:     utils.DayCountPolicy{Convention: utils.Act360, Stub: utils.IncludeFirstExcludeEnd},
		Calendar:     calendar.WeekendsOnly,
	}

	curve, err := market.Build()
	if err != nil {
		panic(err)
	}
	instruments, err := market.CalibrationInstruments()
	if err != nil {
		panic(err)
	}

	fmt.Printf("Diagnosis: %s credit curve (valuation %s)\n", market.Entity, utils.FormatDate(valuationDate))
	fmt.Println("  Maturity   |   Quote |  ParSpread |     Residual NPV | Survival")
	worst := 0.0
	for i, cds := range instruments {
		npv, err := cds.NPV(valuationDate, disc, curve)
		if err != nil {
			panic(err)
		}
		par, err := cds.ParSpread(valuationDate, disc, curve)
		if err != nil {
			panic(err)
		}
		worst = math.Max(worst, math.Abs(npv))
		fmt.Printf("  %s | %7.2f | %10.4f | %16.3e | %8.6f\n",
			utils.FormatDate(cds.MaturityDate()), market.Quotes[i].SpreadBP, par, npv,
			curve.SurvivalProbability(cds.MaturityDate()))
	}
	fmt.Printf("\nLargest residual: %.3e\n", worst)
}
