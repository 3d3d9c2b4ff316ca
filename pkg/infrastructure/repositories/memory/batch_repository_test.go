package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/vsinha/blend/pkg/domain/entities"
	"github.com/vsinha/blend/pkg/domain/repositories"
)

func seedBatches() []*entities.Batch {
	return []*entities.Batch{
		{ID: "B-3", BatchNumber: 3, FiscalYear: 2025, Quality: entities.QualityAttributes{Bloom: entities.Float(250)}},
		{ID: "B-1", BatchNumber: 1, FiscalYear: 2025, Quality: entities.QualityAttributes{Bloom: entities.Float(240)}},
		{ID: "B-2", BatchNumber: 2, FiscalYear: 2025, IsUsed: true},
		{ID: "B-4", BatchNumber: 4, FiscalYear: 2025, IsOnHold: true},
		{ID: "O-1", BatchNumber: 5, FiscalYear: 2025, IsOutsource: true},
		{ID: "B-9", BatchNumber: 9, FiscalYear: 2024},
	}
}

func TestBatchRepository_ListAvailable(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository()
	if err := repo.LoadBatches(ctx, seedBatches()); err != nil {
		t.Fatalf("Failed to load batches: %v", err)
	}

	tests := []struct {
		name        string
		query       repositories.PoolQuery
		expectedIDs []entities.BatchID
	}{
		{
			name:        "production_only",
			query:       repositories.PoolQuery{FiscalYear: 2025},
			expectedIDs: []entities.BatchID{"B-1", "B-3"},
		},
		{
			name:        "include_outsource",
			query:       repositories.PoolQuery{FiscalYear: 2025, IncludeOutsource: true},
			expectedIDs: []entities.BatchID{"B-1", "B-3", "O-1"},
		},
		{
			name:        "only_outsource",
			query:       repositories.PoolQuery{FiscalYear: 2025, OnlyOutsource: true},
			expectedIDs: []entities.BatchID{"O-1"},
		},
		{
			name:        "other_year",
			query:       repositories.PoolQuery{FiscalYear: 2024},
			expectedIDs: []entities.BatchID{"B-9"},
		},
		{
			name:        "empty_year",
			query:       repositories.PoolQuery{FiscalYear: 2030},
			expectedIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, err := repo.ListAvailable(ctx, tt.query)
			if err != nil {
				t.Fatalf("Failed to list available batches: %v", err)
			}
			if len(batches) != len(tt.expectedIDs) {
				t.Fatalf("Expected %d batches, got %d", len(tt.expectedIDs), len(batches))
			}
			for i, batch := range batches {
				if batch.ID != tt.expectedIDs[i] {
					t.Errorf("Expected batch %s at position %d, got %s", tt.expectedIDs[i], i, batch.ID)
				}
				if batch.IsUsed || batch.IsOnHold {
					t.Errorf("Unavailable batch %s returned", batch.ID)
				}
			}
		})
	}
}

func TestBatchRepository_SaveAndGetBatch(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository()

	batch := &entities.Batch{ID: "B-1", BatchNumber: 1, FiscalYear: 2025}
	if err := repo.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("Failed to save batch: %v", err)
	}

	// Returned batches are copies
	got, err := repo.GetBatch(ctx, "B-1")
	if err != nil {
		t.Fatalf("Failed to get batch: %v", err)
	}
	got.IsUsed = true
	again, _ := repo.GetBatch(ctx, "B-1")
	if again.IsUsed {
		t.Error("Expected stored batch to be unaffected by caller mutation")
	}

	// Saving again replaces
	batch.IsOnHold = true
	if err := repo.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("Failed to replace batch: %v", err)
	}
	all, _ := repo.ListBatches(ctx, 0)
	if len(all) != 1 || !all[0].IsOnHold {
		t.Errorf("Expected one held batch after replace, got %+v", all)
	}

	_, err = repo.GetBatch(ctx, "missing")
	if !errors.Is(err, entities.ErrBatchNotFound) {
		t.Errorf("Expected ErrBatchNotFound, got %v", err)
	}
}

func TestBatchRepository_SetHold(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository()
	if err := repo.LoadBatches(ctx, seedBatches()); err != nil {
		t.Fatalf("Failed to load batches: %v", err)
	}

	if err := repo.SetHold(ctx, "B-1", true); err != nil {
		t.Fatalf("Failed to hold batch: %v", err)
	}
	available, _ := repo.ListAvailable(ctx, repositories.PoolQuery{FiscalYear: 2025})
	if len(available) != 1 || available[0].ID != "B-3" {
		t.Errorf("Expected only B-3 after holding B-1, got %+v", available)
	}

	if err := repo.SetHold(ctx, "B-4", false); err != nil {
		t.Fatalf("Failed to release hold: %v", err)
	}
	available, _ = repo.ListAvailable(ctx, repositories.PoolQuery{FiscalYear: 2025})
	if len(available) != 2 {
		t.Errorf("Expected 2 available batches after releasing B-4, got %d", len(available))
	}

	if err := repo.SetHold(ctx, "missing", true); !errors.Is(err, entities.ErrBatchNotFound) {
		t.Errorf("Expected ErrBatchNotFound, got %v", err)
	}
}

func TestBatchRepository_ReloadKeepsUsage(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository()
	if err := repo.LoadBatches(ctx, seedBatches()); err != nil {
		t.Fatalf("Failed to load batches: %v", err)
	}
	blends := NewBlendRepository(repo)
	blend, err := entities.NewBlend("LOT-1", 2025, entities.TargetSpecification{BloomMin: 240, BloomMax: 260, TargetBags: 10, FiscalYear: 2025}, "", "",
		[]entities.BlendLine{{BatchID: "B-1"}})
	if err != nil {
		t.Fatalf("Failed to build blend: %v", err)
	}
	if _, err := blends.Commit(ctx, blend); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// Reloading the same file refreshes lab data but must not release B-1
	reload := seedBatches()
	reload[1].Quality.Bloom = entities.Float(242)
	if err := repo.LoadBatches(ctx, reload); err != nil {
		t.Fatalf("Failed to reload batches: %v", err)
	}

	batch, err := repo.GetBatch(ctx, "B-1")
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if !batch.IsUsed || batch.UsedInOrder != "LOT-1" {
		t.Errorf("Expected B-1 to stay used in LOT-1, got used=%t order=%q", batch.IsUsed, batch.UsedInOrder)
	}
	if batch.Quality.Bloom == nil || *batch.Quality.Bloom != 242 {
		t.Errorf("Expected reloaded bloom 242, got %v", batch.Quality.Bloom)
	}

	pool, err := repo.ListAvailable(ctx, repositories.PoolQuery{FiscalYear: 2025})
	if err != nil {
		t.Fatalf("ListAvailable failed: %v", err)
	}
	for _, b := range pool {
		if b.ID == "B-1" {
			t.Error("Expected consumed batch B-1 to stay out of the pool after reload")
		}
	}
}
