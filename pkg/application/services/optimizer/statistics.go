package optimizer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/blend/pkg/application/dto"
	"github.com/vsinha/blend/pkg/domain/entities"
)

// Statistics aggregates a set of batches
type Statistics struct {
	Count            int
	Outsource        int
	WithBloom        int
	TotalBags        int
	AverageBloom     *float64
	AverageViscosity *float64
	MinBloom         *float64
	MaxBloom         *float64
}

// Summarize computes bag totals and attribute means over batches. Means are
// taken over the batches that carry the attribute and rounded to 2 places;
// they are nil when no batch carries it.
func Summarize(batches []entities.Batch) Statistics {
	stats := Statistics{
		Count:     len(batches),
		TotalBags: len(batches) * entities.BagsPerBatch,
	}

	blooms := make([]float64, 0, len(batches))
	viscosities := make([]float64, 0, len(batches))
	for _, batch := range batches {
		if batch.IsOutsource {
			stats.Outsource++
		}
		if v, ok := batch.Quality.Numeric(entities.AttrBloom); ok {
			blooms = append(blooms, v)
			if stats.MinBloom == nil || v < *stats.MinBloom {
				stats.MinBloom = entities.Float(v)
			}
			if stats.MaxBloom == nil || v > *stats.MaxBloom {
				stats.MaxBloom = entities.Float(v)
			}
		}
		if v, ok := batch.Quality.Numeric(entities.AttrViscosity); ok {
			viscosities = append(viscosities, v)
		}
	}

	stats.WithBloom = len(blooms)
	stats.AverageBloom = mean(blooms)
	stats.AverageViscosity = mean(viscosities)
	return stats
}

// TotalWeight returns bags × bagWeight
func TotalWeight(bags int, bagWeight float64) float64 {
	return decimal.NewFromInt(int64(bags)).Mul(decimal.NewFromFloat(bagWeight)).InexactFloat64()
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2).InexactFloat64()
	return &avg
}

func buildResult(s *selection, bagWeight float64) dto.OptimizationResult {
	selected := append(make([]dto.SelectedBatch, 0, len(s.batches)), s.batches...)
	batches := make([]entities.Batch, len(selected))
	for i, sb := range selected {
		batches[i] = sb.Batch
	}
	stats := Summarize(batches)

	return dto.OptimizationResult{
		SelectedBatches:    selected,
		TotalBags:          stats.TotalBags,
		TotalWeight:        TotalWeight(stats.TotalBags, bagWeight),
		AverageBloom:       stats.AverageBloom,
		AverageViscosity:   stats.AverageViscosity,
		Message:            summaryMessage(stats),
		Warning:            s.warning,
		OptimizationStatus: s.status,
	}
}

func summaryMessage(stats Statistics) string {
	if stats.Count == 0 {
		return "No batches selected"
	}
	msg := fmt.Sprintf("Selected %d %s", stats.Count, plural(stats.Count, "batch", "batches"))
	if stats.AverageBloom != nil {
		msg += ", average bloom " + formatBloom(*stats.AverageBloom)
	}
	if stats.Outsource > 0 {
		msg += fmt.Sprintf(" (%d outsource)", stats.Outsource)
	}
	return msg
}

// formatBloom renders a bloom value with at most one decimal place
func formatBloom(v float64) string {
	return decimal.NewFromFloat(v).Round(1).String()
}
