package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const market = `{
  "entity": "ACME",
  "valuation_date": "2025-01-15",
  "recovery_rate": 0.4,
  "quotes": [
    {"tenor": "1Y", "spread_bp": 60},
    {"tenor": "3Y", "spread_bp": 80},
    {"tenor": "5Y", "spread_bp": 100}
  ],
  "discount": {"flat_rate": 0.03}
}`

const trade = `{
  "direction": "long",
  "notional": 10000000,
  "effective_date": "2025-01-16",
  "maturity_date": "2030-03-20",
  "spread_bp": 100
}`

func exec(t *testing.T, input string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(input), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	t.Parallel()

	code, _, stderr := exec(t, "")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage: cds")

	code, _, stderr = exec(t, "", "bogus")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "bogus"`)

	code, stdout, _ := exec(t, "", "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "calibrate")
}

func TestRun_Calibrate(t *testing.T) {
	t.Parallel()

	code, stdout, _ := exec(t, market, "calibrate")
	require.Equal(t, 0, code, stdout)

	var out struct {
		Entity string `json:"entity"`
		Points []struct {
			Date                string  `json:"date"`
			HazardRate          float64 `json:"hazard_rate"`
			SurvivalProbability float64 `json:"survival_probability"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "ACME", out.Entity)
	require.Len(t, out.Points, 3)
	// 2025-03-20 is the next IMM date; 1Y rolls to 2026-03-20.
	assert.Equal(t, "2026-03-20", out.Points[0].Date)
	for i, p := range out.Points {
		assert.Greater(t, p.HazardRate, 0.0)
		if i > 0 {
			assert.Less(t, p.SurvivalProbability, out.Points[i-1].SurvivalProbability)
		}
	}
}

func TestRun_CalibrateMetrics(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := exec(t, market, "calibrate", "-metrics")
	require.Equal(t, 0, code, stdout)
	assert.Contains(t, stderr, `cds_calibrations_total{status="ok",type="single_name"} 1`)
	assert.Contains(t, stderr, "cds_solver_iterations_count 3")

	input := `{"market": ` + market + `, "trades": [` + trade + `]}`
	code, stdout, stderr = exec(t, input, "price", "-metrics")
	require.Equal(t, 0, code, stdout)
	assert.Contains(t, stderr, "cds_calibrations_total")
}

func TestRun_CalibrateBatch(t *testing.T) {
	t.Parallel()

	code, stdout, _ := exec(t, "["+market+","+market+"]", "calibrate", "-batch")
	require.Equal(t, 0, code, stdout)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Len(t, out, 2)
}

func TestRun_Price(t *testing.T) {
	t.Parallel()

	input := `{"market": ` + market + `, "trades": [` + trade + `], "settlement_date": "2025-01-15"}`
	code, stdout, _ := exec(t, input, "price")
	require.Equal(t, 0, code, stdout)

	var out struct {
		Mode   string `json:"mode"`
		Trades []struct {
			Legs struct {
				Protection float64 `json:"protection_leg"`
			} `json:"legs"`
			Price struct {
				AccruedDays int     `json:"accrued_days"`
				Price       float64 `json:"price"`
			} `json:"price"`
		} `json:"trades"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "FI", out.Mode)
	require.Len(t, out.Trades, 1)
	assert.Greater(t, out.Trades[0].Legs.Protection, 0.0)
	// Running coupon equals the 5Y quote, so the contract trades near par.
	assert.InDelta(t, 100.0, out.Trades[0].Price.Price, 0.5)
}

func TestRun_Risk(t *testing.T) {
	t.Parallel()

	input := `{"market": ` + market + `, "trade": ` + trade + `, "hold_credit_curve": true}`
	code, stdout, _ := exec(t, input, "risk")
	require.Equal(t, 0, code, stdout)

	var out struct {
		ParSpread  float64 `json:"par_spread_bp"`
		DV01Spread float64 `json:"dv01_spread"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Greater(t, out.DV01Spread, 0.0)
	assert.InDelta(t, 100.0, out.ParSpread, 2.0)
}

func TestRun_Cashflows(t *testing.T) {
	t.Parallel()

	input := `{"market": ` + market + `, "trade": ` + trade + `}`

	code, stdout, _ := exec(t, input, "cashflows", "-format", "csv")
	require.Equal(t, 0, code, stdout)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "Date,ActualCashflow"))
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "Total"))

	code, stdout, _ = exec(t, input, "cashflows", "-format", "table")
	require.Equal(t, 0, code, stdout)
	assert.Contains(t, stdout, "DiscountFactor")

	code, stdout, _ = exec(t, input, "cashflows", "-format", "pdf")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "unknown format")
}

func TestRun_InputErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		args  []string
		input string
		want  string
	}{
		{"bad json", []string{"calibrate"}, "{", "failed to parse JSON input"},
		{"missing entity", []string{"calibrate"}, `{"valuation_date": "2025-01-15", "quotes": [{"tenor": "5Y", "spread_bp": 100}], "discount": {"flat_rate": 0.03}}`, "invalid input"},
		{"no discount", []string{"calibrate"}, `{"entity": "X", "valuation_date": "2025-01-15", "quotes": [{"tenor": "5Y", "spread_bp": 100}]}`, "discount requires"},
		{"bad direction", []string{"price"}, `{"market": ` + market + `, "trades": [{"direction": "up", "notional": 1, "effective_date": "2025-01-16", "maturity_date": "2030-03-20"}]}`, "invalid input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			code, stdout, _ := exec(t, tc.input, tc.args...)
			assert.Equal(t, 1, code)
			var out map[string]string
			require.NoError(t, json.Unmarshal([]byte(stdout), &out))
			assert.Contains(t, out["error"], tc.want)
		})
	}
}
