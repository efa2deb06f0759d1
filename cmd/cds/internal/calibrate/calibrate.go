package calibrate

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/meenmo/cdslib/cmd/cds/internal/request"
	"github.com/meenmo/cdslib/credit"
	"github.com/meenmo/cdslib/utils"
)

// Point is one calibrated pillar.
type Point struct {
	Date                string  `json:"date"`
	Time                float64 `json:"time"`
	HazardRate          float64 `json:"hazard_rate"`
	SurvivalProbability float64 `json:"survival_probability"`
}

// Output is the calibrated curve of one reference entity.
type Output struct {
	Entity        string  `json:"entity"`
	ValuationDate string  `json:"valuation_date"`
	RecoveryRate  float64 `json:"recovery_rate"`
	Points        []Point `json:"points"`
}

func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("calibrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "JSON input path (optional; if set, ignores stdin)")
	configPath := fs.String("config", "", "YAML config path (optional)")
	metrics := fs.Bool("metrics", false, "Write calibration metrics to stderr in Prometheus text format")
	batch := fs.Bool("batch", false, "Input is a JSON array of markets calibrated concurrently")
	help := fs.Bool("h", false, "Show help")
	fs.BoolVar(help, "help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		usage(stderr)
		return 0
	}

	path := strings.TrimSpace(*inputPath)
	if path == "" && request.StdinIsTerminal(stdin) {
		usage(stderr)
		return 2
	}

	env, err := request.LoadEnv(*configPath, stderr)
	if err != nil {
		return request.WriteError(stdout, err.Error())
	}
	if *metrics {
		defer func() {
			if err := env.WriteMetrics(stderr); err != nil {
				fmt.Fprintln(stderr, err)
			}
		}()
	}

	if !*batch {
		var input request.Market
		if err := request.Decode(stdin, path, &input); err != nil {
			return request.WriteError(stdout, err.Error())
		}
		if err := request.Validate(input); err != nil {
			return request.WriteError(stdout, err.Error())
		}
		market, _, err := input.MarketCurve(env)
		if err != nil {
			return request.WriteError(stdout, err.Error())
		}
		curve, err := market.Build()
		if err != nil {
			return request.WriteError(stdout, err.Error())
		}
		return request.WriteJSON(stdout, toOutput(curve))
	}

	var inputs []request.Market
	if err := request.Decode(stdin, path, &inputs); err != nil {
		return request.WriteError(stdout, err.Error())
	}
	markets := make([]*credit.MarketCurve, len(inputs))
	for i, in := range inputs {
		if err := request.Validate(in); err != nil {
			return request.WriteError(stdout, fmt.Sprintf("market %d: %v", i, err))
		}
		if markets[i], _, err = in.MarketCurve(env); err != nil {
			return request.WriteError(stdout, fmt.Sprintf("market %d: %v", i, err))
		}
	}
	curves, err := credit.CalibrateBatch(context.Background(), markets, env.Config.Batch.Workers)
	if err != nil {
		return request.WriteError(stdout, err.Error())
	}
	out := make([]Output, len(curves))
	for i, c := range curves {
		out[i] = toOutput(c)
	}
	return request.WriteJSON(stdout, out)
}

func toOutput(curve *credit.HazardRateCurve) Output {
	pts := curve.Points()
	out := Output{
		Entity:        curve.Entity(),
		ValuationDate: utils.FormatDate(curve.ValuationDate()),
		RecoveryRate:  curve.RecoveryRate(),
		Points:        make([]Point, len(pts)),
	}
	for i, p := range pts {
		out.Points[i] = Point{
			Date:                utils.FormatDate(p.Date),
			Time:                p.Time,
			HazardRate:          p.HazardRate,
			SurvivalProbability: p.SurvivalProbability,
		}
	}
	return out
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cds calibrate < market.json")
	fmt.Fprintln(w, "  cds calibrate -input /path/to/market.json [-config cds.yaml]")
	fmt.Fprintln(w, "  cds calibrate -batch -input /path/to/markets.json")
	fmt.Fprintln(w, "  cds calibrate -metrics < market.json   (Prometheus text metrics on stderr)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Bootstrap a piecewise-constant hazard rate curve from CDS par spreads, output JSON to stdout.")
}

