package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/vsinha/blend/pkg/application/dto"
	"github.com/vsinha/blend/pkg/domain/entities"
)

// Config holds configuration for output generation
type Config struct {
	Format string
	Target entities.TargetSpecification
}

// Generate writes result to w in the configured format
func Generate(w io.Writer, result dto.OptimizationResult, config Config) error {
	switch config.Format {
	case "", "text":
		return generateTextOutput(w, result, config)
	case "json":
		return generateJSONOutput(w, result)
	case "csv":
		return generateCSVOutput(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(w io.Writer, result dto.OptimizationResult, config Config) error {
	t := config.Target
	p := &printer{w: w}

	p.printf("Blend Proposal\n")
	p.printf("==============\n\n")
	p.printf("Mode:          %s\n", t.Mode)
	p.printf("Bloom range:   %g-%g", t.BloomMin, t.BloomMax)
	if t.MeanBloom != nil {
		p.printf(" (mean %g)", *t.MeanBloom)
	}
	p.printf("\n")
	p.printf("Fiscal year:   %d\n", t.FiscalYear)
	p.printf("Target bags:   %d\n\n", t.TargetBags)

	if len(result.SelectedBatches) > 0 {
		p.printf("%-12s %-8s %-10s %-10s %-6s %-10s\n", "Batch", "Number", "Bloom", "Viscosity", "Bags", "Source")
		p.printf("%-12s %-8s %-10s %-10s %-6s %-10s\n", "------------", "--------", "----------", "----------", "------", "----------")
		for _, sb := range result.SelectedBatches {
			source := "production"
			if sb.IsOutsource {
				source = "outsource"
			}
			if sb.Pinned {
				source += "*"
			}
			p.printf("%-12s %-8d %-10s %-10s %-6d %-10s\n",
				sb.Batch.ID,
				sb.Batch.BatchNumber,
				formatOptional(sb.Batch.Quality.Bloom),
				formatOptional(sb.Batch.Quality.Viscosity),
				sb.Bags,
				source)
		}
		p.printf("\n")
	}

	p.printf("Total bags:    %d\n", result.TotalBags)
	p.printf("Total weight:  %g\n", result.TotalWeight)
	p.printf("Average bloom: %s\n", formatOptional(result.AverageBloom))
	if result.AverageViscosity != nil {
		p.printf("Average visc.: %s\n", formatOptional(result.AverageViscosity))
	}
	p.printf("\n%s\n", result.Message)
	if result.OptimizationStatus != "" {
		p.printf("Status:  %s\n", result.OptimizationStatus)
	}
	if result.Warning != "" {
		p.printf("Warning: %s\n", result.Warning)
	}
	return p.err
}

type jsonBatch struct {
	ID          string   `json:"id"`
	BatchNumber int      `json:"batchNumber"`
	FiscalYear  int      `json:"fiscalYear"`
	Bloom       *float64 `json:"bloom"`
	Viscosity   *float64 `json:"viscosity,omitempty"`
	Bags        int      `json:"bags"`
	IsOutsource bool     `json:"isOutsource"`
	Pinned      bool     `json:"pinned,omitempty"`
}

type jsonResult struct {
	SelectedBatches    []jsonBatch `json:"selectedBatches"`
	TotalBags          int         `json:"totalBags"`
	TotalWeight        float64     `json:"totalWeight"`
	AverageBloom       *float64    `json:"averageBloom,omitempty"`
	AverageViscosity   *float64    `json:"averageViscosity,omitempty"`
	Message            string      `json:"message"`
	Warning            string      `json:"warning,omitempty"`
	OptimizationStatus string      `json:"optimizationStatus,omitempty"`
}

// generateJSONOutput creates JSON output
func generateJSONOutput(w io.Writer, result dto.OptimizationResult) error {
	out := jsonResult{
		SelectedBatches:    make([]jsonBatch, len(result.SelectedBatches)),
		TotalBags:          result.TotalBags,
		TotalWeight:        result.TotalWeight,
		AverageBloom:       result.AverageBloom,
		AverageViscosity:   result.AverageViscosity,
		Message:            result.Message,
		Warning:            result.Warning,
		OptimizationStatus: result.OptimizationStatus,
	}
	for i, sb := range result.SelectedBatches {
		out.SelectedBatches[i] = jsonBatch{
			ID:          string(sb.Batch.ID),
			BatchNumber: sb.Batch.BatchNumber,
			FiscalYear:  sb.Batch.FiscalYear,
			Bloom:       sb.Batch.Quality.Bloom,
			Viscosity:   sb.Batch.Quality.Viscosity,
			Bags:        sb.Bags,
			IsOutsource: sb.IsOutsource,
			Pinned:      sb.Pinned,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

// generateCSVOutput writes one row per selected batch
func generateCSVOutput(w io.Writer, result dto.OptimizationResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "batch_number", "fiscal_year", "bloom", "viscosity", "bags", "is_outsource", "pinned"}); err != nil {
		return err
	}
	for _, sb := range result.SelectedBatches {
		record := []string{
			string(sb.Batch.ID),
			strconv.Itoa(sb.Batch.BatchNumber),
			strconv.Itoa(sb.Batch.FiscalYear),
			csvOptional(sb.Batch.Quality.Bloom),
			csvOptional(sb.Batch.Quality.Viscosity),
			strconv.Itoa(sb.Bags),
			strconv.FormatBool(sb.IsOutsource),
			strconv.FormatBool(sb.Pinned),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func csvOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
