package dto

import (
	"github.com/vsinha/blend/pkg/domain/entities"
)

// SelectedBatch is one batch of an optimization result
type SelectedBatch struct {
	Batch       entities.Batch
	Bags        int
	IsOutsource bool
	Pinned      bool
}

// OptimizationResult contains the complete output of an optimizer run.
// AverageBloom and AverageViscosity are nil when no selected batch carries the attribute.
type OptimizationResult struct {
	SelectedBatches    []SelectedBatch
	TotalBags          int
	TotalWeight        float64
	AverageBloom       *float64
	AverageViscosity   *float64
	Message            string
	Warning            string
	OptimizationStatus string
}

// Empty returns a result with no selection
func Empty(message, warning string) OptimizationResult {
	return OptimizationResult{
		SelectedBatches: []SelectedBatch{},
		Message:         message,
		Warning:         warning,
	}
}

// Batches returns the selected batches in selection order
func (r OptimizationResult) Batches() []entities.Batch {
	batches := make([]entities.Batch, len(r.SelectedBatches))
	for i, selected := range r.SelectedBatches {
		batches[i] = selected.Batch
	}
	return batches
}

// BatchIDs returns the ids of the selected batches in selection order
func (r OptimizationResult) BatchIDs() []entities.BatchID {
	ids := make([]entities.BatchID, len(r.SelectedBatches))
	for i, selected := range r.SelectedBatches {
		ids[i] = selected.Batch.ID
	}
	return ids
}

// PoolSummary describes the batches currently available for blending
type PoolSummary struct {
	FiscalYear    int
	Available     int
	Production    int
	Outsource     int
	WithBloom     int
	AverageBloom  *float64
	MinBloom      *float64
	MaxBloom      *float64
	AvailableBags int
}
