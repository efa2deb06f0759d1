package risk

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/meenmo/cdslib/cmd/cds/internal/request"
	"github.com/meenmo/cdslib/credit"
)

// RiskInput is a position plus optional bump overrides in bp.
type RiskInput struct {
	request.Position

	SpreadTweakBP   float64 `json:"spread_tweak_bp" validate:"gte=0"`
	RateTweakBP     float64 `json:"rate_tweak_bp" validate:"gte=0"`
	HoldCreditCurve *bool   `json:"hold_credit_curve"`
}

type RiskOutput struct {
	AsOf string `json:"as_of"`
	credit.RiskReport
}

func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("risk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "JSON input path (optional; if set, ignores stdin)")
	configPath := fs.String("config", "", "YAML config path (optional)")
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

	var input RiskInput
	if err := request.Decode(stdin, path, &input); err != nil {
		return request.WriteError(stdout, err.Error())
	}
	if err := request.Validate(input); err != nil {
		return request.WriteError(stdout, err.Error())
	}

	r, err := input.Resolve(env)
	if err != nil {
		return request.WriteError(stdout, err.Error())
	}

	cfg := env.Config.Risk
	if input.SpreadTweakBP > 0 {
		cfg.SpreadTweakBP = input.SpreadTweakBP
	}
	if input.RateTweakBP > 0 {
		cfg.RateTweakBP = input.RateTweakBP
	}
	if input.HoldCreditCurve != nil {
		cfg.HoldCreditCurve = *input.HoldCreditCurve
	}

	report, err := r.CDS.Risk(r.AsOf, r.Discount, r.Market, cfg)
	if err != nil {
		return request.WriteError(stdout, err.Error())
	}
	return request.WriteJSON(stdout, RiskOutput{AsOf: r.AsOf.Format("2006-01-02"), RiskReport: report})
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cds risk < input.json")
	fmt.Fprintln(w, "  cds risk -input /path/to/input.json [-config cds.yaml]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compute NPV, par spread, spread DV01 and IR DV01 of one position, output JSON to stdout.")
}
