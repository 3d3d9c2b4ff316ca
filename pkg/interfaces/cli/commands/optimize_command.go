package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vsinha/blend/pkg/application/services"
	"github.com/vsinha/blend/pkg/application/services/optimizer"
	"github.com/vsinha/blend/pkg/domain/entities"
	"github.com/vsinha/blend/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/blend/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/blend/pkg/interfaces/cli/output"
)

// Config holds the configuration for the optimize command
type Config struct {
	BatchesFile      string
	Min              float64
	Max              float64
	Mean             *float64
	Bags             int
	Mode             string
	Pins             string
	IncludeOutsource bool
	OnlyOutsource    bool
	FiscalYear       int
	Format           string
	Seed             *uint64
	Verbose          bool
	Help             bool
}

// OptimizeCommand proposes a blend from a batch CSV without committing it
type OptimizeCommand struct {
	config Config
	loader *csv.Loader
}

// NewOptimizeCommand creates a new optimize command
func NewOptimizeCommand(config Config) *OptimizeCommand {
	return &OptimizeCommand{
		config: config,
		loader: csv.NewLoader(),
	}
}

// Execute runs the optimize command and writes the proposal to w
func (cmd *OptimizeCommand) Execute(ctx context.Context, w io.Writer) error {
	if cmd.config.Help {
		cmd.showHelp(w)
		return nil
	}

	if err := cmd.validateInputs(); err != nil {
		return fmt.Errorf("input validation failed: %w", err)
	}

	mode, err := entities.ParseSelectionMode(cmd.config.Mode)
	if err != nil {
		return err
	}

	if cmd.config.Verbose {
		fmt.Fprintf(w, "Loading batches from %s\n", cmd.config.BatchesFile)
	}
	batches, err := cmd.loader.LoadBatches(cmd.config.BatchesFile)
	if err != nil {
		return fmt.Errorf("failed to load batches: %w", err)
	}

	batchRepo := memory.NewBatchRepository()
	if err := batchRepo.LoadBatches(ctx, batches); err != nil {
		return fmt.Errorf("failed to load batches: %w", err)
	}

	fiscalYear := cmd.config.FiscalYear
	if fiscalYear == 0 {
		fiscalYear = latestFiscalYear(batches)
	}

	spec := entities.TargetSpecification{
		BloomMin:            cmd.config.Min,
		BloomMax:            cmd.config.Max,
		MeanBloom:           cmd.config.Mean,
		Mode:                mode,
		TargetBags:          cmd.config.Bags,
		IncludeOutsource:    cmd.config.IncludeOutsource || cmd.config.OnlyOutsource,
		OnlyOutsource:       cmd.config.OnlyOutsource,
		PreSelectedBatchIDs: parsePins(cmd.config.Pins),
		FiscalYear:          fiscalYear,
	}

	if cmd.config.Verbose {
		fmt.Fprintf(w, "Loaded %d batches; optimizing fiscal year %d in %s mode\n", len(batches), fiscalYear, mode)
	}

	var opts []optimizer.Option
	if cmd.config.Seed != nil {
		opts = append(opts, optimizer.WithSeed(*cmd.config.Seed))
	}
	service := services.NewBlendService(batchRepo, memory.NewBlendRepository(batchRepo), optimizer.New(opts...))

	result, err := service.Optimize(ctx, spec)
	if err != nil {
		return err
	}

	return output.Generate(w, result, output.Config{Format: cmd.config.Format, Target: spec})
}

// validateInputs checks that the required flags are present
func (cmd *OptimizeCommand) validateInputs() error {
	if cmd.config.BatchesFile == "" {
		return fmt.Errorf("a batches CSV file is required (-batches)")
	}
	if cmd.config.Bags <= 0 {
		return fmt.Errorf("a positive bag count is required (-bags)")
	}
	switch cmd.config.Format {
	case "", "text", "json", "csv":
	default:
		return fmt.Errorf("unsupported output format: %s", cmd.config.Format)
	}
	return nil
}

// showHelp displays help information
func (cmd *OptimizeCommand) showHelp(w io.Writer) {
	fmt.Fprint(w, `blendctl - gelatin blend optimizer

USAGE:
    blendctl -batches <file> -min <bloom> -max <bloom> -bags <n> [options]

OPTIONS:
    -batches <file>        Batch CSV file
    -min, -max <bloom>     Target bloom range (inclusive)
    -mean <bloom>          Preferred mean bloom inside the range
    -bags <n>              Target bag count, a multiple of 10
    -mode <mode>           target-range, high-low or random-average (default target-range)
    -pin <id,id>           Batch ids that must be part of the blend
    -include-outsource     Add outsource batches to the pool
    -only-outsource        Blend outsource batches only
    -fiscal-year <year>    Fiscal year of the pool (default: latest in the file)
    -format <format>       Output format: text, json, csv (default text)
    -seed <n>              Seed for reproducible random-average runs
    -verbose               Enable verbose output
    -help                  Show this help message

EXAMPLES:
    blendctl -batches pool.csv -min 240 -max 260 -bags 100
    blendctl -batches pool.csv -min 240 -max 260 -mean 250 -bags 60 -mode high-low -format json
`)
}

func latestFiscalYear(batches []*entities.Batch) int {
	latest := 0
	for _, batch := range batches {
		latest = max(latest, batch.FiscalYear)
	}
	return latest
}

func parsePins(s string) []entities.BatchID {
	var ids []entities.BatchID
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, entities.BatchID(id))
		}
	}
	return ids
}
