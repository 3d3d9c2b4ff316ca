package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/blend/pkg/application/services/optimizer"
	"github.com/vsinha/blend/pkg/domain/entities"
	"github.com/vsinha/blend/pkg/domain/repositories"
	"github.com/vsinha/blend/pkg/infrastructure/cache"
	"github.com/vsinha/blend/pkg/infrastructure/events"
	"github.com/vsinha/blend/pkg/infrastructure/repositories/memory"
	fixtures "github.com/vsinha/blend/pkg/infrastructure/testing"
)

type serviceHarness struct {
	service *BlendService
	batches *memory.BatchRepository
	blends  *memory.BlendRepository
	events  *events.InMemoryEventStore
}

func newHarness(t *testing.T, pool []entities.Batch, opts ...ServiceOption) serviceHarness {
	t.Helper()
	batches := fixtures.BuildBatchRepository(pool)
	blends := memory.NewBlendRepository(batches)
	store := events.NewInMemoryEventStore(nil)
	opts = append([]ServiceOption{WithPublisher(store)}, opts...)
	return serviceHarness{
		service: NewBlendService(batches, blends, optimizer.New(), opts...),
		batches: batches,
		blends:  blends,
		events:  store,
	}
}

func rangeSpec(bags int) entities.TargetSpecification {
	return entities.TargetSpecification{
		BloomMin:   240,
		BloomMax:   260,
		Mode:       entities.TargetRange,
		TargetBags: bags,
		FiscalYear: fixtures.DefaultFiscalYear,
	}
}

func TestBlendService_OptimizeRejectsInvalidTarget(t *testing.T) {
	h := newHarness(t, fixtures.BuildRangeScenario(12, 8))

	spec := rangeSpec(95)
	_, err := h.service.Optimize(context.Background(), spec)
	require.ErrorIs(t, err, entities.ErrInvalidTarget)
	assert.Contains(t, err.Error(), "multiple of 10")

	spec = rangeSpec(100)
	spec.BloomMin, spec.BloomMax = 260, 240
	_, err = h.service.Optimize(context.Background(), spec)
	assert.ErrorIs(t, err, entities.ErrInvalidTarget)
}

func TestBlendService_OptimizeUsesAvailablePool(t *testing.T) {
	pool := fixtures.BuildRangeScenario(12, 8)
	pool[0].IsUsed = true
	pool[1].IsOnHold = true
	h := newHarness(t, pool)

	result, err := h.service.Optimize(context.Background(), rangeSpec(100))
	require.NoError(t, err)
	require.Len(t, result.SelectedBatches, 10)
	assert.Equal(t, 100, result.TotalBags)
	assert.Empty(t, result.Warning)
	for _, id := range result.BatchIDs() {
		assert.NotEqual(t, pool[0].ID, id)
		assert.NotEqual(t, pool[1].ID, id)
	}
}

func TestBlendService_SaveConsumesBatches(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fixtures.BuildRangeScenario(12, 8))
	spec := rangeSpec(50)

	proposal, err := h.service.Optimize(ctx, spec)
	require.NoError(t, err)
	require.Len(t, proposal.SelectedBatches, 5)

	blend, err := h.service.Save(ctx, SaveRequest{
		Target:    spec,
		LotNumber: "L-2025-001",
		Mesh:      "8",
		BatchIDs:  proposal.BatchIDs(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, blend.ID)
	assert.Equal(t, "2025-001", blend.SerialNumber)
	assert.Equal(t, 50, blend.TotalBags())

	for _, id := range proposal.BatchIDs() {
		batch, err := h.batches.GetBatch(ctx, id)
		require.NoError(t, err)
		assert.True(t, batch.IsUsed)
		assert.Equal(t, "L-2025-001", batch.UsedInOrder)
	}

	next, err := h.service.Optimize(ctx, spec)
	require.NoError(t, err)
	for _, id := range next.BatchIDs() {
		assert.NotContains(t, proposal.BatchIDs(), id)
	}

	all, err := h.events.ReadAll(0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, events.BlendCommittedEvent, all[0].Type())
}

func TestBlendService_SaveValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fixtures.BuildRangeScenario(12, 8))
	spec := rangeSpec(20)

	_, err := h.service.Save(ctx, SaveRequest{Target: spec, LotNumber: "  ", BatchIDs: []entities.BatchID{"B-0001"}})
	require.ErrorIs(t, err, entities.ErrInvalidTarget)
	assert.Contains(t, err.Error(), "lotNumber is required")

	_, err = h.service.Save(ctx, SaveRequest{Target: spec, LotNumber: "L-1"})
	require.ErrorIs(t, err, entities.ErrInvalidTarget)
	assert.Contains(t, err.Error(), "selectedBatches")

	_, err = h.service.Save(ctx, SaveRequest{Target: spec, LotNumber: "L-1", BatchIDs: []entities.BatchID{"B-0001"}})
	require.NoError(t, err)

	_, err = h.service.Save(ctx, SaveRequest{Target: spec, LotNumber: "L-1", BatchIDs: []entities.BatchID{"B-0002"}})
	assert.ErrorIs(t, err, entities.ErrDuplicateLotNumber)

	_, err = h.service.Save(ctx, SaveRequest{Target: spec, LotNumber: "L-2", BatchIDs: []entities.BatchID{"B-0002", "B-0001"}})
	assert.ErrorIs(t, err, entities.ErrBatchUnavailable)
	second, err := h.batches.GetBatch(ctx, "B-0002")
	require.NoError(t, err)
	assert.False(t, second.IsUsed, "rejected commit must not consume any batch")

	_, err = h.service.Save(ctx, SaveRequest{Target: spec, LotNumber: "L-3", BatchIDs: []entities.BatchID{"missing"}})
	assert.ErrorIs(t, err, entities.ErrBatchNotFound)
}

func TestBlendService_DeleteReleasesBatches(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fixtures.BuildRangeScenario(4, 0))
	spec := rangeSpec(40)

	blend, err := h.service.Save(ctx, SaveRequest{
		Target:    spec,
		LotNumber: "L-1",
		BatchIDs:  []entities.BatchID{"B-0001", "B-0002", "B-0003", "B-0004"},
	})
	require.NoError(t, err)

	pool, err := h.service.Pool(ctx, repositories.PoolQuery{FiscalYear: fixtures.DefaultFiscalYear})
	require.NoError(t, err)
	assert.Equal(t, 0, pool.Available)

	require.NoError(t, h.service.Delete(ctx, blend.ID))

	pool, err = h.service.Pool(ctx, repositories.PoolQuery{FiscalYear: fixtures.DefaultFiscalYear})
	require.NoError(t, err)
	assert.Equal(t, 4, pool.Available)
	assert.Equal(t, 40, pool.AvailableBags)

	_, err = h.service.GetBlend(ctx, blend.ID)
	assert.ErrorIs(t, err, entities.ErrBlendNotFound)
	assert.ErrorIs(t, h.service.Delete(ctx, blend.ID), entities.ErrBlendNotFound)

	all, err := h.events.ReadAll(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, events.BlendDeletedEvent, all[1].Type())
}

func TestBlendService_ProposalCache(t *testing.T) {
	ctx := context.Background()
	proposals := cache.NewProposalCache(cache.NewMemoryStore(), time.Minute)
	h := newHarness(t, fixtures.BuildRangeScenario(3, 0), WithProposalCache(proposals))
	spec := rangeSpec(30)

	first, err := h.service.Optimize(ctx, spec)
	require.NoError(t, err)
	require.Len(t, first.SelectedBatches, 3)

	// A change made behind the service's back is not seen while cached
	require.NoError(t, h.batches.SetHold(ctx, "B-0001", true))
	cached, err := h.service.Optimize(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, first.BatchIDs(), cached.BatchIDs())

	// Changes made through the service invalidate the year's proposals
	require.NoError(t, h.service.SetHold(ctx, "B-0002", true))
	fresh, err := h.service.Optimize(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, []entities.BatchID{"B-0003"}, fresh.BatchIDs())
	assert.Contains(t, fresh.Warning, "Only 1 of 3")
}

// committingBatchRepository commits a blend right after the pool has been
// read, so the optimizer works on a snapshot that is already out of date.
type committingBatchRepository struct {
	repositories.BatchRepository
	commit func()
}

func (r *committingBatchRepository) ListAvailable(ctx context.Context, query repositories.PoolQuery) ([]entities.Batch, error) {
	pool, err := r.BatchRepository.ListAvailable(ctx, query)
	if r.commit != nil {
		commit := r.commit
		r.commit = nil
		commit()
	}
	return pool, err
}

func TestBlendService_ProposalComputedDuringCommitIsNotCached(t *testing.T) {
	ctx := context.Background()
	batches := fixtures.BuildBatchRepository(fixtures.BuildRangeScenario(5, 0))
	repo := &committingBatchRepository{BatchRepository: batches}
	proposals := cache.NewProposalCache(cache.NewMemoryStore(), time.Minute)
	service := NewBlendService(repo, memory.NewBlendRepository(batches), optimizer.New(), WithProposalCache(proposals))
	spec := rangeSpec(30)

	repo.commit = func() {
		_, err := service.Save(ctx, SaveRequest{Target: spec, LotNumber: "L1", BatchIDs: []entities.BatchID{"B-0001"}})
		require.NoError(t, err)
	}

	stale, err := service.Optimize(ctx, spec)
	require.NoError(t, err)
	require.Contains(t, stale.BatchIDs(), entities.BatchID("B-0001"))

	used, err := batches.GetBatch(ctx, "B-0001")
	require.NoError(t, err)
	require.True(t, used.IsUsed)

	next, err := service.Optimize(ctx, spec)
	require.NoError(t, err)
	assert.NotContains(t, next.BatchIDs(), entities.BatchID("B-0001"), "consumed batch must not be proposed again")
	assert.Len(t, next.SelectedBatches, 3)
}

func TestBlendService_SaveRejectsBatchesOutsideTarget(t *testing.T) {
	ctx := context.Background()
	other := fixtures.NewBatch(90, 250)
	other.FiscalYear = fixtures.DefaultFiscalYear - 1
	pool := []entities.Batch{
		fixtures.NewBatch(1, 250),
		fixtures.NewOutsourceBatch(2, 250),
		other,
	}
	h := newHarness(t, pool)
	spec := rangeSpec(10)

	_, err := h.service.Save(ctx, SaveRequest{Target: spec, LotNumber: "L-1", BatchIDs: []entities.BatchID{other.ID}})
	require.ErrorIs(t, err, entities.ErrInvalidTarget)
	assert.Contains(t, err.Error(), "fiscal year")

	_, err = h.service.Save(ctx, SaveRequest{Target: spec, LotNumber: "L-1", BatchIDs: []entities.BatchID{"O-0002"}})
	require.ErrorIs(t, err, entities.ErrInvalidTarget)
	assert.Contains(t, err.Error(), "outsource")

	stored, err := h.batches.GetBatch(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsUsed)

	spec.IncludeOutsource = true
	_, err = h.service.Save(ctx, SaveRequest{Target: spec, LotNumber: "L-1", BatchIDs: []entities.BatchID{"O-0002"}})
	assert.NoError(t, err)
}

func TestBlendService_PoolSummary(t *testing.T) {
	pool := []entities.Batch{
		fixtures.NewBatch(1, 240),
		fixtures.NewBatch(2, 260),
		fixtures.NewOutsourceBatch(3, 250),
	}
	h := newHarness(t, pool)

	summary, err := h.service.Pool(context.Background(), repositories.PoolQuery{
		FiscalYear:       fixtures.DefaultFiscalYear,
		IncludeOutsource: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Available)
	assert.Equal(t, 2, summary.Production)
	assert.Equal(t, 1, summary.Outsource)
	require.NotNil(t, summary.AverageBloom)
	assert.Equal(t, 250.0, *summary.AverageBloom)
	assert.Equal(t, 240.0, *summary.MinBloom)
	assert.Equal(t, 260.0, *summary.MaxBloom)
}
