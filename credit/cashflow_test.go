package credit_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/meenmo/cdslib/credit"
)

func TestCashflows_ReconcilesPremiumLeg(t *testing.T) {
	t.Parallel()

	disc := flatDiscount(0.03)
	curve := flatHazard(t, 0.02, 0.4)
	c := newCDS(t, credit.Long, 100, date(2024, 12, 20), date(2029, 12, 20))

	rep, err := c.Cashflows(valuationDate, disc, curve)
	require.NoError(t, err)
	require.Len(t, rep.Rows, 20)

	legs, err := c.Legs(valuationDate, disc, curve)
	require.NoError(t, err)
	assert.InDelta(t, -legs.PremiumSurvival, rep.Total.DiscountedCashflow, 1e-6)
	assert.Equal(t, legs, rep.Legs)
	explained := rep.Total.DiscountedCashflow + rep.Legs.Protection - rep.Legs.PremiumAccrual - rep.Legs.Upfront
	assert.InDelta(t, legs.NPV, explained, 1e-6)

	first := rep.Rows[0]
	assert.Equal(t, date(2025, 3, 20), first.Date)
	assert.InDelta(t, -10_000_000*0.01*90/360, first.ActualCashflow, 1e-6)
	// 64 of the 90 days of the first period are still to run.
	assert.InDelta(t, 64.0/90.0, first.CalendarRatio, 1e-12)
	assert.InDelta(t, first.DiscountedCashflow*first.CalendarRatio, first.DiscountedCalendarAdjusted, 1e-9)
	assert.Equal(t, 1.0, rep.Rows[1].CalendarRatio)

	short := newCDS(t, credit.Short, 100, date(2024, 12, 20), date(2029, 12, 20))
	srep, err := short.Cashflows(valuationDate, disc, curve)
	require.NoError(t, err)
	assert.Equal(t, -first.ActualCashflow, srep.Rows[0].ActualCashflow)
}

func TestCashflowReport_Renderers(t *testing.T) {
	t.Parallel()

	disc := flatDiscount(0.03)
	curve := flatHazard(t, 0.02, 0.4)
	c := newCDS(t, credit.Long, 100, date(2024, 12, 20), date(2026, 12, 20))
	rep, err := c.Cashflows(valuationDate, disc, curve)
	require.NoError(t, err)

	var table bytes.Buffer
	rep.RenderTable(&table)
	assert.Contains(t, table.String(), "DiscountedCashflow(Full)")
	assert.Contains(t, table.String(), "Total")
	assert.Contains(t, table.String(), "NPV ")

	var buf bytes.Buffer
	require.NoError(t, rep.WriteCSV(&buf))
	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(rep.Rows)+2)
	assert.Equal(t, "Date", records[0][0])
	assert.Equal(t, "2025-03-20", records[1][0])
	assert.Equal(t, "Total", records[len(records)-1][0])

	var xlsx bytes.Buffer
	require.NoError(t, rep.WriteXLSX(&xlsx))
	f, err := excelize.OpenReader(&xlsx)
	require.NoError(t, err)
	defer f.Close()
	header, err := f.GetCellValue("Cashflows", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Date", header)
	rows, err := f.GetRows("Cashflows")
	require.NoError(t, err)
	require.Len(t, rows, len(rep.Rows)+2)
	assert.Equal(t, "Total", rows[len(rows)-1][0])
}
