package cashflows

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meenmo/cdslib/cmd/cds/internal/request"
)

func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cashflows", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "JSON input path (optional; if set, ignores stdin)")
	configPath := fs.String("config", "", "YAML config path (optional)")
	format := fs.String("format", "json", "Output format: json, table, csv or xlsx")
	outputPath := fs.String("output", "", "Output file path (optional; required for xlsx on a terminal)")
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

	var input request.Position
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
	curve, err := r.Market.Build()
	if err != nil {
		return request.WriteError(stdout, err.Error())
	}
	report, err := r.CDS.Cashflows(r.AsOf, r.Discount, curve)
	if err != nil {
		return request.WriteError(stdout, err.Error())
	}

	var out io.Writer = stdout
	if p := strings.TrimSpace(*outputPath); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return request.WriteError(stdout, fmt.Sprintf("failed to create output: %v", err))
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	defer w.Flush()

	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "json":
		return request.WriteJSON(w, report)
	case "table":
		report.RenderTable(w)
	case "csv":
		err = report.WriteCSV(w)
	case "xlsx":
		err = report.WriteXLSX(w)
	default:
		return request.WriteError(stdout, fmt.Sprintf("unknown format %q", *format))
	}
	if err != nil {
		return request.WriteError(stdout, err.Error())
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cds cashflows < input.json")
	fmt.Fprintln(w, "  cds cashflows -input /path/to/input.json -format table")
	fmt.Fprintln(w, "  cds cashflows -input /path/to/input.json -format xlsx -output cashflows.xlsx")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "List the remaining premium cashflows with discount factors and survival probabilities.")
}
