package gormrepository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vsinha/blend/pkg/domain/entities"
	"github.com/vsinha/blend/pkg/domain/repositories"
)

// openTestStore connects to the database named by BLEND_TEST_DSN and resets
// the blend tables. Tests are skipped when it is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("BLEND_TEST_DSN")
	if dsn == "" {
		t.Skip("BLEND_TEST_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&BlendLineModel{}, &BlendModel{}, &BatchModel{}))
	require.NoError(t, db.AutoMigrate(Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return New(db)
}

func seedStore(t *testing.T, store *Store) {
	t.Helper()
	batches := make([]*entities.Batch, 0, 6)
	for i := 1; i <= 4; i++ {
		batches = append(batches, &entities.Batch{
			ID:          entities.BatchID(fmt.Sprintf("B-%d", i)),
			BatchNumber: i,
			FiscalYear:  2025,
			Quality:     entities.QualityAttributes{Bloom: entities.Float(240 + float64(i)*5)},
		})
	}
	batches = append(batches,
		&entities.Batch{ID: "O-1", BatchNumber: 5, FiscalYear: 2025, IsOutsource: true},
		&entities.Batch{ID: "H-1", BatchNumber: 6, FiscalYear: 2025, IsOnHold: true},
	)
	require.NoError(t, store.LoadBatches(context.Background(), batches))
}

func testBlend(t *testing.T, lot string, ids ...entities.BatchID) *entities.Blend {
	t.Helper()
	lines := make([]entities.BlendLine, len(ids))
	for i, id := range ids {
		lines[i] = entities.BlendLine{BatchID: id}
	}
	blend, err := entities.NewBlend(lot, 2025, entities.TargetSpecification{BloomMin: 240, BloomMax: 260, TargetBags: 10 * len(ids), FiscalYear: 2025}, "", "", lines)
	require.NoError(t, err)
	return blend
}

func TestStore_PoolAndHold(t *testing.T) {
	store := openTestStore(t)
	seedStore(t, store)
	ctx := context.Background()

	pool, err := store.ListAvailable(ctx, repositories.PoolQuery{FiscalYear: 2025})
	require.NoError(t, err)
	require.Len(t, pool, 4)
	assert.Equal(t, entities.BatchID("B-1"), pool[0].ID)

	pool, err = store.ListAvailable(ctx, repositories.PoolQuery{FiscalYear: 2025, OnlyOutsource: true})
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, entities.BatchID("O-1"), pool[0].ID)

	require.NoError(t, store.SetHold(ctx, "B-1", true))
	pool, err = store.ListAvailable(ctx, repositories.PoolQuery{FiscalYear: 2025})
	require.NoError(t, err)
	assert.Len(t, pool, 3)

	assert.ErrorIs(t, store.SetHold(ctx, "missing", true), entities.ErrBatchNotFound)
}

func TestStore_CommitAndDelete(t *testing.T) {
	store := openTestStore(t)
	seedStore(t, store)
	ctx := context.Background()

	blend := testBlend(t, "LOT-1", "B-1", "B-2")
	id, err := store.Commit(ctx, blend)
	require.NoError(t, err)
	assert.Equal(t, "2025-001", blend.SerialNumber)

	batch, err := store.GetBatch(ctx, "B-1")
	require.NoError(t, err)
	assert.True(t, batch.IsUsed)
	assert.Equal(t, "LOT-1", batch.UsedInOrder)

	_, err = store.Commit(ctx, testBlend(t, "LOT-1", "B-3"))
	assert.ErrorIs(t, err, entities.ErrDuplicateLotNumber)

	_, err = store.Commit(ctx, testBlend(t, "LOT-2", "B-3", "B-2"))
	assert.ErrorIs(t, err, entities.ErrBatchUnavailable)
	batch, err = store.GetBatch(ctx, "B-3")
	require.NoError(t, err)
	assert.False(t, batch.IsUsed, "failed commit must not consume any batch")

	_, err = store.Commit(ctx, testBlend(t, "LOT-3", "H-1"))
	assert.ErrorIs(t, err, entities.ErrBatchUnavailable)

	stored, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []entities.BatchID{"B-1", "B-2"}, stored.BatchIDs())

	require.NoError(t, store.Delete(ctx, id))
	pool, err := store.ListAvailable(ctx, repositories.PoolQuery{FiscalYear: 2025})
	require.NoError(t, err)
	assert.Len(t, pool, 4)
	assert.ErrorIs(t, store.Delete(ctx, id), entities.ErrBlendNotFound)
}

func TestStore_ReloadKeepsCommittedBatchesUsed(t *testing.T) {
	store := openTestStore(t)
	seedStore(t, store)
	ctx := context.Background()

	_, err := store.Commit(ctx, testBlend(t, "LOT-1", "B-1"))
	require.NoError(t, err)

	// A restart seeds the same file again
	seedStore(t, store)

	batch, err := store.GetBatch(ctx, "B-1")
	require.NoError(t, err)
	assert.True(t, batch.IsUsed)
	assert.Equal(t, "LOT-1", batch.UsedInOrder)

	pool, err := store.ListAvailable(ctx, repositories.PoolQuery{FiscalYear: 2025})
	require.NoError(t, err)
	for _, b := range pool {
		assert.NotEqual(t, entities.BatchID("B-1"), b.ID)
	}
}

func TestStore_ConcurrentCommits(t *testing.T) {
	store := openTestStore(t)
	seedStore(t, store)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.Commit(ctx, testBlend(t, fmt.Sprintf("LOT-%d", i), "B-1", "B-2"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, entities.ErrBatchUnavailable)
	}
	assert.Equal(t, 1, succeeded)

	blends, err := store.List(ctx, 2025)
	require.NoError(t, err)
	assert.Len(t, blends, 1)
}
