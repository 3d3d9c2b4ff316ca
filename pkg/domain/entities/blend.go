package entities

import (
	"fmt"
	"strings"
	"time"
)

// BlendID is an opaque blend identifier
type BlendID string

// BlendLine records one batch consumed by a blend
type BlendLine struct {
	BatchID     BatchID
	BatchNumber int
	Bloom       *float64
	Viscosity   *float64
	Bags        int
	IsOutsource bool
}

// Blend is a committed blend document
type Blend struct {
	ID           BlendID
	LotNumber    string
	SerialNumber string
	FiscalYear   int
	Target       TargetSpecification
	Mesh         string
	Notes        string
	CreatedAt    time.Time
	Lines        []BlendLine
}

// NewBlend creates a validated Blend. Lines are copied.
func NewBlend(lotNumber string, fiscalYear int, target TargetSpecification, mesh, notes string, lines []BlendLine) (*Blend, error) {
	lotNumber = strings.TrimSpace(lotNumber)
	if lotNumber == "" {
		return nil, fmt.Errorf("lot number cannot be empty")
	}
	if fiscalYear <= 0 {
		return nil, fmt.Errorf("fiscal year must be positive, got %d", fiscalYear)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("blend %s has no batches", lotNumber)
	}

	seen := make(map[BatchID]bool, len(lines))
	copied := make([]BlendLine, len(lines))
	for i, line := range lines {
		if seen[line.BatchID] {
			return nil, fmt.Errorf("batch %s listed twice in blend %s", line.BatchID, lotNumber)
		}
		seen[line.BatchID] = true
		if line.Bags == 0 {
			line.Bags = BagsPerBatch
		}
		copied[i] = line
	}

	return &Blend{
		LotNumber:  lotNumber,
		FiscalYear: fiscalYear,
		Target:     target,
		Mesh:       mesh,
		Notes:      notes,
		Lines:      copied,
	}, nil
}

// BatchIDs returns the ids of every batch in the blend, in line order
func (b *Blend) BatchIDs() []BatchID {
	ids := make([]BatchID, len(b.Lines))
	for i, line := range b.Lines {
		ids[i] = line.BatchID
	}
	return ids
}

// TotalBags returns the sum of bags over all lines
func (b *Blend) TotalBags() int {
	total := 0
	for _, line := range b.Lines {
		total += line.Bags
	}
	return total
}

// LineFromBatch builds the blend line for a selected batch
func LineFromBatch(batch Batch) BlendLine {
	return BlendLine{
		BatchID:     batch.ID,
		BatchNumber: batch.BatchNumber,
		Bloom:       batch.Quality.Bloom,
		Viscosity:   batch.Quality.Viscosity,
		Bags:        BagsPerBatch,
		IsOutsource: batch.IsOutsource,
	}
}
