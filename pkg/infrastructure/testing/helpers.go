package testing

import (
	"context"
	"fmt"

	"github.com/vsinha/blend/pkg/domain/entities"
	"github.com/vsinha/blend/pkg/infrastructure/repositories/memory"
)

// DefaultFiscalYear is the fiscal year used by the fixtures
const DefaultFiscalYear = 2025

// NewBatch builds an available production batch with the given bloom
func NewBatch(number int, bloom float64) entities.Batch {
	return entities.Batch{
		ID:          entities.BatchID(fmt.Sprintf("B-%04d", number)),
		BatchNumber: number,
		FiscalYear:  DefaultFiscalYear,
		Quality: entities.QualityAttributes{
			Bloom: entities.Float(bloom),
		},
	}
}

// NewOutsourceBatch builds an available outsource batch with the given bloom
func NewOutsourceBatch(number int, bloom float64) entities.Batch {
	batch := NewBatch(number, bloom)
	batch.ID = entities.BatchID(fmt.Sprintf("O-%04d", number))
	batch.IsOutsource = true
	return batch
}

// BuildPool builds one production batch per bloom value, numbered from 1
func BuildPool(blooms ...float64) []entities.Batch {
	pool := make([]entities.Batch, len(blooms))
	for i, bloom := range blooms {
		pool[i] = NewBatch(i+1, bloom)
	}
	return pool
}

// BuildSpreadPool builds n production batches with bloom spread evenly over
// [from, to], numbered from 1
func BuildSpreadPool(n int, from, to float64) []entities.Batch {
	blooms := make([]float64, n)
	for i := range blooms {
		if n == 1 {
			blooms[i] = from
			continue
		}
		blooms[i] = from + float64(i)*(to-from)/float64(n-1)
	}
	return BuildPool(blooms...)
}

// BuildRangeScenario builds a production pool with inRange batches of bloom
// inside [240, 260] and outside batches split between 200-235 and 265-300.
func BuildRangeScenario(inRange, outside int) []entities.Batch {
	blooms := make([]float64, 0, inRange+outside)
	for i := 0; i < inRange; i++ {
		blooms = append(blooms, 240+float64(i%21))
	}
	for i := 0; i < outside; i++ {
		if i%2 == 0 {
			blooms = append(blooms, 200+float64(i%36))
		} else {
			blooms = append(blooms, 265+float64(i%36))
		}
	}
	return BuildPool(blooms...)
}

// BuildBatchRepository loads batches into a fresh in-memory repository
func BuildBatchRepository(batches []entities.Batch) *memory.BatchRepository {
	repo := memory.NewBatchRepository()
	ptrs := make([]*entities.Batch, len(batches))
	for i := range batches {
		b := batches[i]
		ptrs[i] = &b
	}
	if err := repo.LoadBatches(context.Background(), ptrs); err != nil {
		panic(err)
	}
	return repo
}
