package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meenmo/cdslib/cmd/cds/internal/calibrate"
	"github.com/meenmo/cdslib/cmd/cds/internal/cashflows"
	"github.com/meenmo/cdslib/cmd/cds/internal/price"
	"github.com/meenmo/cdslib/cmd/cds/internal/risk"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "calibrate":
		return calibrate.Run(args[1:], stdin, stdout, stderr)
	case "price":
		return price.Run(args[1:], stdin, stdout, stderr)
	case "risk":
		return risk.Run(args[1:], stdin, stdout, stderr)
	case "cashflows", "cf":
		return cashflows.Run(args[1:], stdin, stdout, stderr)
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: cds <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  calibrate  Bootstrap a hazard rate curve from par spreads")
	fmt.Fprintln(w, "  price      NPV, cash amount, accrued and price")
	fmt.Fprintln(w, "  risk       Spread DV01 and IR DV01")
	fmt.Fprintln(w, "  cashflows  Premium cashflow report (json, table, csv, xlsx)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run `cds <command> -h` for command-specific help.")
}
