package repositories

import (
	"context"

	"github.com/vsinha/blend/pkg/domain/entities"
)

// PoolQuery selects the batches offered to the optimizer
type PoolQuery struct {
	FiscalYear       int
	IncludeOutsource bool
	OnlyOutsource    bool
}

// Admits reports whether a batch belongs to the pool described by the query.
// Availability is checked separately.
func (q PoolQuery) Admits(batch entities.Batch) bool {
	if q.FiscalYear != 0 && batch.FiscalYear != q.FiscalYear {
		return false
	}
	switch {
	case q.OnlyOutsource:
		return batch.IsOutsource
	case q.IncludeOutsource:
		return true
	default:
		return !batch.IsOutsource
	}
}

// BatchRepository provides access to production batch data.
// ListAvailable is the batch pool provider: it returns only batches that are
// neither used nor on hold and match the requested composition.
// LoadBatches inserts new batches and refreshes the lab data of known ones;
// the usage and hold state of a known batch is kept.
type BatchRepository interface {
	ListAvailable(ctx context.Context, query PoolQuery) ([]entities.Batch, error)
	ListBatches(ctx context.Context, fiscalYear int) ([]entities.Batch, error)
	GetBatch(ctx context.Context, id entities.BatchID) (*entities.Batch, error)
	SaveBatch(ctx context.Context, batch *entities.Batch) error
	LoadBatches(ctx context.Context, batches []*entities.Batch) error
	SetHold(ctx context.Context, id entities.BatchID, onHold bool) error
}
