package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/blend/pkg/domain/entities"
	"github.com/vsinha/blend/pkg/domain/repositories"
)

// BatchRepository provides in-memory batch storage. Callers always receive
// copies; stored batches change only through the repository.
type BatchRepository struct {
	mu         sync.RWMutex
	batches    []entities.Batch
	batchesMap map[entities.BatchID]int
}

// NewBatchRepository creates a new in-memory batch repository
func NewBatchRepository() *BatchRepository {
	return &BatchRepository{
		batches:    []entities.Batch{},
		batchesMap: make(map[entities.BatchID]int),
	}
}

// Verify interface compliance
var _ repositories.BatchRepository = (*BatchRepository)(nil)

// LoadBatches loads batches into the repository. Known batches keep their usage and hold state.
func (r *BatchRepository) LoadBatches(ctx context.Context, batches []*entities.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, batch := range batches {
		loaded := *batch
		if index, exists := r.batchesMap[loaded.ID]; exists {
			current := r.batches[index]
			loaded.IsUsed = current.IsUsed
			loaded.IsOnHold = current.IsOnHold
			loaded.UsedInOrder = current.UsedInOrder
			loaded.UsedDate = current.UsedDate
		}
		if err := r.putLocked(loaded); err != nil {
			return err
		}
	}
	return nil
}

// SaveBatch inserts a batch or replaces the stored batch with the same id
func (r *BatchRepository) SaveBatch(ctx context.Context, batch *entities.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.putLocked(*batch)
}

func (r *BatchRepository) putLocked(batch entities.Batch) error {
	if batch.ID == "" {
		return fmt.Errorf("batch id cannot be empty")
	}
	if index, exists := r.batchesMap[batch.ID]; exists {
		r.batches[index] = batch
		return nil
	}
	r.batchesMap[batch.ID] = len(r.batches)
	r.batches = append(r.batches, batch)
	return nil
}

// GetBatch returns a batch by id
func (r *BatchRepository) GetBatch(ctx context.Context, id entities.BatchID) (*entities.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.batchesMap[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrBatchNotFound, id)
	}
	batch := r.batches[index]
	return &batch, nil
}

// ListBatches returns every batch of a fiscal year (all years when 0), ordered by batch number
func (r *BatchRepository) ListBatches(ctx context.Context, fiscalYear int) ([]entities.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var batches []entities.Batch
	for _, batch := range r.batches {
		if fiscalYear != 0 && batch.FiscalYear != fiscalYear {
			continue
		}
		batches = append(batches, batch)
	}
	sortByBatchNumber(batches)
	return batches, nil
}

// ListAvailable returns the unused, unheld batches matching the query, ordered by batch number
func (r *BatchRepository) ListAvailable(ctx context.Context, query repositories.PoolQuery) ([]entities.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var available []entities.Batch
	for _, batch := range r.batches {
		if batch.IsAvailable() && query.Admits(batch) {
			available = append(available, batch)
		}
	}
	sortByBatchNumber(available)
	return available, nil
}

// SetHold places a batch on hold or releases the hold
func (r *BatchRepository) SetHold(ctx context.Context, id entities.BatchID, onHold bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, exists := r.batchesMap[id]
	if !exists {
		return fmt.Errorf("%w: %s", entities.ErrBatchNotFound, id)
	}
	r.batches[index].IsOnHold = onHold
	return nil
}

// lookupLocked returns the stored batch for id; the caller holds mu
func (r *BatchRepository) lookupLocked(id entities.BatchID) (*entities.Batch, error) {
	index, exists := r.batchesMap[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrBatchNotFound, id)
	}
	return &r.batches[index], nil
}

func sortByBatchNumber(batches []entities.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].BatchNumber < batches[j].BatchNumber
	})
}
