package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/vsinha/blend/pkg/interfaces/cli/commands"
)

func main() {
	// Command line flags
	var (
		batchesFile      = flag.String("batches", "", "Path to batch CSV file")
		bloomMin         = flag.Float64("min", 0, "Minimum target bloom")
		bloomMax         = flag.Float64("max", 0, "Maximum target bloom")
		mean             = flag.String("mean", "", "Preferred mean bloom (optional)")
		bags             = flag.Int("bags", 0, "Target bag count, a multiple of 10")
		mode             = flag.String("mode", "target-range", "Selection mode: target-range, high-low, random-average")
		pins             = flag.String("pin", "", "Comma-separated batch ids that must be selected")
		includeOutsource = flag.Bool("include-outsource", false, "Include outsource batches")
		onlyOutsource    = flag.Bool("only-outsource", false, "Use outsource batches only")
		fiscalYear       = flag.Int("fiscal-year", 0, "Fiscal year of the pool (default: latest in the file)")
		format           = flag.String("format", "text", "Output format: text, json, csv")
		seed             = flag.String("seed", "", "Random seed for random-average mode (optional)")
		verbose          = flag.Bool("verbose", false, "Enable verbose output")
		help             = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	config := commands.Config{
		BatchesFile:      *batchesFile,
		Min:              *bloomMin,
		Max:              *bloomMax,
		Bags:             *bags,
		Mode:             *mode,
		Pins:             *pins,
		IncludeOutsource: *includeOutsource,
		OnlyOutsource:    *onlyOutsource,
		FiscalYear:       *fiscalYear,
		Format:           *format,
		Verbose:          *verbose,
		Help:             *help,
	}

	if *mean != "" {
		v, err := strconv.ParseFloat(*mean, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -mean %q: %v\n", *mean, err)
			os.Exit(2)
		}
		config.Mean = &v
	}
	if *seed != "" {
		v, err := strconv.ParseUint(*seed, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -seed %q: %v\n", *seed, err)
			os.Exit(2)
		}
		config.Seed = &v
	}

	cmd := commands.NewOptimizeCommand(config)
	ctx := context.Background()

	if err := cmd.Execute(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
