package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/credit"
	"github.com/meenmo/cdslib/ircurve"
	"github.com/meenmo/cdslib/utils"
)

func main() {
	valuationDate := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	disc := ircurve.NewFlatCurve(valuationDate, 0.03, utils.Act365F)

	market := &credit.MarketCurve{
		Entity:        "ACME",
		ValuationDate: valuationDate,
		Quotes: []credit.Quote{
			{Tenor: "1Y", SpreadBP: 250},
			{Tenor: "3Y", SpreadBP: 350},
			{Tenor: "5Y", SpreadBP: 420},
			{Tenor: "7Y", SpreadBP: 450},
		},
		Discount:     disc,
		RecoveryRate: 0.4,
		DayCount:     utils.DayCountPolicy{Convention: utils.Act360, Stub: utils.IncludeFirstExcludeEnd},
		Calendar:     calendar.WeekendsOnly,
		Logger:       zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger(),
	}

	curve, err := market.Build()
	if err != nil {
		panic(err)
	}

	trade, err := credit.New(credit.Params{
		Direction:     credit.Long,
		Notional:      10000000,
		EffectiveDate: time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
		MaturityDate:  time.Date(2029, 12, 20, 0, 0, 0, 0, time.UTC),
		SpreadBP:      500,
	})
	if err != nil {
		panic(err)
	}

	legs, err := trade.Legs(valuationDate, disc, curve)
	if err != nil {
		panic(err)
	}
	price, err := trade.PriceCalculation(valuationDate, disc, curve, credit.ModeFI)
	if err != nil {
		panic(err)
	}
	price = price.Rounded()

	fmt.Printf("Protection leg:  %.2f\n", legs.Protection)
	fmt.Printf("Premium leg:     %.2f\n", legs.PremiumSurvival+legs.PremiumAccrual)
	fmt.Printf("NPV:             %.2f\n", legs.NPV)
	fmt.Printf("Accrued (%d d):  %.2f\n", price.AccruedDays, price.AccruedCoupon)
	fmt.Printf("Price:           %.6f\n", price.Price)
}
