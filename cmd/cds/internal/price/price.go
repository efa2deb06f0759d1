package price

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/meenmo/cdslib/cmd/cds/internal/request"
	"github.com/meenmo/cdslib/credit"
)

// PricingInput values one or more trades against a single market.
type PricingInput struct {
	Market request.Market  `json:"market"`
	Trades []request.Trade `json:"trades" validate:"required,min=1,dive"`

	// SettlementDate defaults to the market valuation date.
	SettlementDate string `json:"settlement_date" validate:"omitempty,datetime=2006-01-02"`

	// Mode is FI or BBG; empty uses the configured mode.
	Mode string `json:"mode" validate:"omitempty,oneof=FI BBG"`
}

type PricingOutput struct {
	Entity         string             `json:"entity"`
	SettlementDate string             `json:"settlement_date"`
	Mode           string             `json:"mode"`
	Trades         []credit.Valuation `json:"trades"`
}

func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "JSON input path (optional; if set, ignores stdin)")
	configPath := fs.String("config", "", "YAML config path (optional)")
	metrics := fs.Bool("metrics", false, "Write calibration metrics to stderr in Prometheus text format")
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

	var input PricingInput
	if err := request.Decode(stdin, path, &input); err != nil {
		return request.WriteError(stdout, err.Error())
	}
	if err := request.Validate(input); err != nil {
		return request.WriteError(stdout, err.Error())
	}

	output, err := calculatePrice(context.Background(), input, env)
	if err != nil {
		return request.WriteError(stdout, err.Error())
	}
	return request.WriteJSON(stdout, output)
}

func calculatePrice(ctx context.Context, input PricingInput, env request.Env) (PricingOutput, error) {
	modeName := input.Mode
	if modeName == "" {
		modeName = env.Config.Valuation.Mode
	}
	mode, err := credit.ParseMode(modeName)
	if err != nil {
		return PricingOutput{}, err
	}

	market, disc, err := input.Market.MarketCurve(env)
	if err != nil {
		return PricingOutput{}, err
	}
	curve, err := market.Build()
	if err != nil {
		return PricingOutput{}, err
	}

	settleDate := market.ValuationDate
	if input.SettlementDate != "" {
		if settleDate, err = request.ParseDate("settlement_date", input.SettlementDate); err != nil {
			return PricingOutput{}, err
		}
	}

	trades := make([]*credit.CDS, len(input.Trades))
	for i, t := range input.Trades {
		if trades[i], err = t.CDS(market, env); err != nil {
			return PricingOutput{}, fmt.Errorf("trade %d: %w", i, err)
		}
	}

	vals, err := credit.ValueBatch(ctx, trades, settleDate, disc, curve, mode, env.Config.Batch.Workers)
	if err != nil {
		return PricingOutput{}, err
	}

	out := PricingOutput{
		Entity:         curve.Entity(),
		SettlementDate: settleDate.Format("2006-01-02"),
		Mode:           string(mode),
		Trades:         vals,
	}
	for i := range out.Trades {
		out.Trades[i].Price = out.Trades[i].Price.Rounded()
	}
	return out, nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cds price < input.json")
	fmt.Fprintln(w, "  cds price -input /path/to/input.json [-config cds.yaml] [-metrics]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Calibrate the market curve, value each trade (legs, cash amount, accrued, price), output JSON to stdout.")
}
