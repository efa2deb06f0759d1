package credit

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"

	"github.com/meenmo/cdslib/utils"
)

// CashflowRow is one premium payment in the cashflow report.
type CashflowRow struct {
	Date                       time.Time `json:"date"`
	ActualCashflow             float64   `json:"actual_cashflow"`
	DiscountFactor             float64   `json:"discount_factor"`
	SurvivalProbability        float64   `json:"survival_probability"`
	DiscountedCashflow         float64   `json:"discounted_cashflow"`
	CalendarRatio              float64   `json:"calendar_ratio"`
	DiscountedCalendarAdjusted float64   `json:"discounted_cashflow_calendar_adjusted"`
}

// CashflowReport lists the premium coupons still to be paid and their totals.
//
// Rows cover the fixed coupons only, so Total.DiscountedCashflow is the signed
// survival-contingent premium leg. Legs carries the protection, default accrual
// and upfront components that close the gap to Legs.NPV.
type CashflowReport struct {
	AsOf  time.Time     `json:"as_of"`
	Rows  []CashflowRow `json:"rows"`
	Total CashflowRow   `json:"total"`
	Legs  LegPV         `json:"legs"`
}

var cashflowHeader = []string{
	"Date", "ActualCashflow", "DiscountFactor", "SurvivalProbability",
	"DiscountedCashflow(Full)", "CalendarRatio", "DiscountedCashflow(Calendar-adjusted)",
}

// Cashflows reports every coupon paid after asOf from the direction's side.
// Survival is conditional on asOf; CalendarRatio is the unelapsed share of the period.
func (c *CDS) Cashflows(asOf time.Time, disc DiscountCurve, curve SurvivalCurve) (CashflowReport, error) {
	if err := c.checkValuation(asOf, disc, curve); err != nil {
		return CashflowReport{}, fmt.Errorf("Cashflows: %w", err)
	}
	sAsOf := curve.SurvivalProbability(asOf)
	spread := c.p.SpreadBP / 10000.0

	legs, err := c.Legs(asOf, disc, curve)
	if err != nil {
		return CashflowReport{}, fmt.Errorf("Cashflows: %w", err)
	}
	rep := CashflowReport{AsOf: asOf, Legs: legs}
	for _, cp := range c.periods {
		if !cp.payment.After(asOf) {
			continue
		}
		det := cp.determination
		if det.Before(asOf) {
			det = asOf
		}
		from := cp.start
		if from.Before(asOf) {
			from = asOf
		}
		ratio := 1.0
		if full := utils.Days(cp.start, cp.end); full > 0 {
			ratio = utils.Days(from, cp.end) / full
			if ratio < 0 {
				ratio = 0
			}
		}
		row := CashflowRow{
			Date:                cp.payment,
			ActualCashflow:      -c.sign * c.p.Notional * spread * cp.yearFraction,
			DiscountFactor:      disc.DF(cp.payment),
			SurvivalProbability: curve.SurvivalProbability(det) / sAsOf,
			CalendarRatio:       ratio,
		}
		row.DiscountedCashflow = row.ActualCashflow * row.DiscountFactor * row.SurvivalProbability
		row.DiscountedCalendarAdjusted = row.DiscountedCashflow * ratio
		rep.Rows = append(rep.Rows, row)

		rep.Total.ActualCashflow += row.ActualCashflow
		rep.Total.DiscountedCashflow += row.DiscountedCashflow
		rep.Total.DiscountedCalendarAdjusted += row.DiscountedCalendarAdjusted
	}
	return rep, nil
}

func (r CashflowReport) records() [][]string {
	f := func(v float64, prec int) string { return strconv.FormatFloat(v, 'f', prec, 64) }
	out := make([][]string, 0, len(r.Rows)+1)
	for _, row := range r.Rows {
		out = append(out, []string{
			utils.FormatDate(row.Date),
			f(row.ActualCashflow, 2),
			f(row.DiscountFactor, 8),
			f(row.SurvivalProbability, 8),
			f(row.DiscountedCashflow, 2),
			f(row.CalendarRatio, 6),
			f(row.DiscountedCalendarAdjusted, 2),
		})
	}
	out = append(out, []string{
		"Total",
		f(r.Total.ActualCashflow, 2), "", "",
		f(r.Total.DiscountedCashflow, 2), "",
		f(r.Total.DiscountedCalendarAdjusted, 2),
	})
	return out
}

// reconciliation explains NPV from the buyer-side legs.
func (r CashflowReport) reconciliation() string {
	return fmt.Sprintf("NPV %.2f = sign x (protection %.2f - premium %.2f - default accrual %.2f - upfront %.2f)",
		r.Legs.NPV, r.Legs.Protection, r.Legs.PremiumSurvival, r.Legs.PremiumAccrual, r.Legs.Upfront)
}

// RenderTable writes the report as an ASCII table.
func (r CashflowReport) RenderTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(cashflowHeader)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	recs := r.records()
	table.AppendBulk(recs[:len(recs)-1])
	table.SetFooter(recs[len(recs)-1])
	table.SetCaption(true, r.reconciliation())
	table.Render()
}

// WriteCSV writes the header, one line per row and the Total line.
func (r CashflowReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cashflowHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(r.records()); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	return nil
}

const cashflowSheet = "Cashflows"

// WriteXLSX writes the report as a single-sheet workbook.
func (r CashflowReport) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", cashflowSheet); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	header := make([]interface{}, len(cashflowHeader))
	for i, h := range cashflowHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(cashflowSheet, "A1", &header); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}

	for i, row := range r.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("WriteXLSX: %w", err)
		}
		values := []interface{}{
			utils.FormatDate(row.Date), row.ActualCashflow, row.DiscountFactor, row.SurvivalProbability,
			row.DiscountedCashflow, row.CalendarRatio, row.DiscountedCalendarAdjusted,
		}
		if err := f.SetSheetRow(cashflowSheet, cell, &values); err != nil {
			return fmt.Errorf("WriteXLSX: %w", err)
		}
	}

	cell, err := excelize.CoordinatesToCellName(1, len(r.Rows)+2)
	if err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	total := []interface{}{"Total", r.Total.ActualCashflow, "", "", r.Total.DiscountedCashflow, "", r.Total.DiscountedCalendarAdjusted}
	if err := f.SetSheetRow(cashflowSheet, cell, &total); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	return f.Write(w)
}
