package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/blend/pkg/domain/entities"
	"github.com/vsinha/blend/pkg/domain/repositories"
	"github.com/vsinha/blend/pkg/domain/services"
)

// BlendRepository provides in-memory blend storage on top of a BatchRepository.
// Commit and Delete hold the batch repository's write lock for their whole
// duration, so batch consumption is serialized and all-or-nothing.
type BlendRepository struct {
	batches   *BatchRepository
	mu        sync.RWMutex
	blends    map[entities.BlendID]*entities.Blend
	lotIndex  map[string]entities.BlendID
	sequencer *services.SerialSequencer
	now       func() time.Time
}

// NewBlendRepository creates a new in-memory blend repository consuming from batches
func NewBlendRepository(batches *BatchRepository) *BlendRepository {
	return &BlendRepository{
		batches:   batches,
		blends:    make(map[entities.BlendID]*entities.Blend),
		lotIndex:  make(map[string]entities.BlendID),
		sequencer: services.NewSerialSequencer(),
		now:       time.Now,
	}
}

// Verify interface compliance
var _ repositories.BlendRepository = (*BlendRepository)(nil)

// Commit records the blend and marks every referenced batch as used
func (r *BlendRepository) Commit(ctx context.Context, blend *entities.Blend) (entities.BlendID, error) {
	r.batches.mu.Lock()
	defer r.batches.mu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lotIndex[blend.LotNumber]; exists {
		return "", fmt.Errorf("%w: %s", entities.ErrDuplicateLotNumber, blend.LotNumber)
	}

	// Check every batch before touching any of them
	targets := make([]*entities.Batch, 0, len(blend.Lines))
	seen := make(map[entities.BatchID]bool, len(blend.Lines))
	for _, line := range blend.Lines {
		if seen[line.BatchID] {
			return "", fmt.Errorf("batch %s listed twice in blend %s", line.BatchID, blend.LotNumber)
		}
		seen[line.BatchID] = true
		batch, err := r.batches.lookupLocked(line.BatchID)
		if err != nil {
			return "", err
		}
		if batch.IsUsed {
			return "", fmt.Errorf("batch %d already used in %s: %w", batch.BatchNumber, batch.UsedInOrder, entities.ErrBatchUnavailable)
		}
		if batch.IsOnHold {
			return "", fmt.Errorf("batch %d is on hold: %w", batch.BatchNumber, entities.ErrBatchUnavailable)
		}
		targets = append(targets, batch)
	}

	now := r.now().UTC()
	for _, batch := range targets {
		if err := batch.Consume(blend.LotNumber, now); err != nil {
			return "", err
		}
	}

	stored := cloneBlend(blend)
	stored.ID = entities.BlendID(uuid.NewString())
	stored.SerialNumber = r.sequencer.Next(stored.FiscalYear, r.serialsLocked())
	stored.CreatedAt = now

	r.blends[stored.ID] = stored
	r.lotIndex[stored.LotNumber] = stored.ID

	blend.ID = stored.ID
	blend.SerialNumber = stored.SerialNumber
	blend.CreatedAt = stored.CreatedAt
	return stored.ID, nil
}

// Delete removes a blend and returns its batches to the available pool
func (r *BlendRepository) Delete(ctx context.Context, id entities.BlendID) error {
	r.batches.mu.Lock()
	defer r.batches.mu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	blend, exists := r.blends[id]
	if !exists {
		return fmt.Errorf("%w: %s", entities.ErrBlendNotFound, id)
	}

	for _, line := range blend.Lines {
		batch, err := r.batches.lookupLocked(line.BatchID)
		if err != nil {
			// Batch removed since the blend was committed; nothing to release
			continue
		}
		batch.Release()
	}

	delete(r.lotIndex, blend.LotNumber)
	delete(r.blends, id)
	return nil
}

// Get returns a blend by id
func (r *BlendRepository) Get(ctx context.Context, id entities.BlendID) (*entities.Blend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	blend, exists := r.blends[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrBlendNotFound, id)
	}
	return cloneBlend(blend), nil
}

// List returns the blends of a fiscal year (all years when 0), ordered by serial number
func (r *BlendRepository) List(ctx context.Context, fiscalYear int) ([]*entities.Blend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var blends []*entities.Blend
	for _, blend := range r.blends {
		if fiscalYear != 0 && blend.FiscalYear != fiscalYear {
			continue
		}
		blends = append(blends, cloneBlend(blend))
	}
	sort.SliceStable(blends, func(i, j int) bool {
		return r.sequencer.CompareSerials(blends[i].SerialNumber, blends[j].SerialNumber) < 0
	})
	return blends, nil
}

func (r *BlendRepository) serialsLocked() []string {
	serials := make([]string, 0, len(r.blends))
	for _, blend := range r.blends {
		serials = append(serials, blend.SerialNumber)
	}
	return serials
}

func cloneBlend(blend *entities.Blend) *entities.Blend {
	clone := *blend
	clone.Lines = append([]entities.BlendLine(nil), blend.Lines...)
	clone.Target.AdditionalTargets = append([]entities.AttributeTarget(nil), blend.Target.AdditionalTargets...)
	clone.Target.PreSelectedBatchIDs = append([]entities.BatchID(nil), blend.Target.PreSelectedBatchIDs...)
	return &clone
}
