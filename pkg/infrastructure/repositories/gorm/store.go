package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/blend/pkg/domain/entities"
	"github.com/vsinha/blend/pkg/domain/repositories"
	"github.com/vsinha/blend/pkg/domain/services"
)

// Store persists batches and blends in PostgreSQL
type Store struct {
	db        *gorm.DB
	sequencer *services.SerialSequencer
	now       func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		sequencer: services.NewSerialSequencer(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ repositories.BatchRepository = (*Store)(nil)
	_ repositories.BlendRepository = (*Store)(nil)
)

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- batches ----------------------------------------------------------------

func (s *Store) ListAvailable(ctx context.Context, query repositories.PoolQuery) ([]entities.Batch, error) {
	q := s.db.WithContext(ctx).
		Model(&BatchModel{}).
		Where("is_used = ?", false).
		Where("is_on_hold = ?", false)
	if query.FiscalYear != 0 {
		q = q.Where("fiscal_year = ?", query.FiscalYear)
	}
	switch {
	case query.OnlyOutsource:
		q = q.Where("is_outsource = ?", true)
	case query.IncludeOutsource:
	default:
		q = q.Where("is_outsource = ?", false)
	}

	var rows []BatchModel
	if err := q.Order("batch_number asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list available batches: %w", err)
	}
	return fromBatchModels(rows), nil
}

func (s *Store) ListBatches(ctx context.Context, fiscalYear int) ([]entities.Batch, error) {
	q := s.db.WithContext(ctx).Model(&BatchModel{})
	if fiscalYear != 0 {
		q = q.Where("fiscal_year = ?", fiscalYear)
	}
	var rows []BatchModel
	if err := q.Order("batch_number asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return fromBatchModels(rows), nil
}

func (s *Store) GetBatch(ctx context.Context, id entities.BatchID) (*entities.Batch, error) {
	var row BatchModel
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", entities.ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get batch %s: %w", id, err)
	}
	batch := fromBatchModel(row)
	return &batch, nil
}

// SaveBatch inserts a batch or replaces the stored batch with the same id
func (s *Store) SaveBatch(ctx context.Context, batch *entities.Batch) error {
	if batch == nil || batch.ID == "" {
		return fmt.Errorf("batch id cannot be empty")
	}
	row := toBatchModel(batch)
	return s.db.WithContext(ctx).Clauses(upsertBatch()).Create(&row).Error
}

func (s *Store) LoadBatches(ctx context.Context, batches []*entities.Batch) error {
	if len(batches) == 0 {
		return nil
	}
	rows := make([]BatchModel, 0, len(batches))
	for _, batch := range batches {
		if batch.ID == "" {
			return fmt.Errorf("batch id cannot be empty")
		}
		rows = append(rows, toBatchModel(batch))
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(reloadBatch()).CreateInBatches(rows, 200).Error
	})
}

func (s *Store) SetHold(ctx context.Context, id entities.BatchID, onHold bool) error {
	res := s.db.WithContext(ctx).
		Model(&BatchModel{}).
		Where("id = ?", string(id)).
		Updates(map[string]any{"is_on_hold": onHold, "updated_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("set hold on batch %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", entities.ErrBatchNotFound, id)
	}
	return nil
}

// --- blends -----------------------------------------------------------------

// Commit stores the blend and consumes its batches in one transaction. The
// batch rows are locked FOR UPDATE, so two commits racing for the same batch
// serialize and the loser sees it as used.
func (s *Store) Commit(ctx context.Context, blend *entities.Blend) (entities.BlendID, error) {
	ids := make([]string, 0, len(blend.Lines))
	seen := make(map[entities.BatchID]bool, len(blend.Lines))
	for _, line := range blend.Lines {
		if seen[line.BatchID] {
			return "", fmt.Errorf("batch %s listed twice in blend %s", line.BatchID, blend.LotNumber)
		}
		seen[line.BatchID] = true
		ids = append(ids, string(line.BatchID))
	}

	stored := *blend
	stored.ID = entities.BlendID(uuid.NewString())
	stored.CreatedAt = s.now()

	err := s.InTx(ctx, func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&BlendModel{}).Where("lot_number = ?", blend.LotNumber).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: %s", entities.ErrDuplicateLotNumber, blend.LotNumber)
		}

		var rows []BatchModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Order("id asc").
			Find(&rows).Error; err != nil {
			return err
		}
		if err := checkConsumable(ids, rows); err != nil {
			return err
		}

		// Serials are per fiscal year; the advisory lock keeps concurrent
		// commits of the same year from computing the same next value.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", int64(blend.FiscalYear)).Error; err != nil {
			return err
		}
		var serials []string
		if err := tx.Model(&BlendModel{}).Where("fiscal_year = ?", blend.FiscalYear).Pluck("serial_number", &serials).Error; err != nil {
			return err
		}
		stored.SerialNumber = s.sequencer.Next(blend.FiscalYear, serials)

		if err := tx.Model(&BatchModel{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"is_used":       true,
				"used_in_order": blend.LotNumber,
				"used_date":     stored.CreatedAt,
				"updated_at":    stored.CreatedAt,
			}).Error; err != nil {
			return err
		}

		row, err := toBlendModel(&stored)
		if err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", fmt.Errorf("%w: %s", entities.ErrDuplicateLotNumber, blend.LotNumber)
	}
	if err != nil {
		return "", err
	}

	blend.ID = stored.ID
	blend.SerialNumber = stored.SerialNumber
	blend.CreatedAt = stored.CreatedAt
	return stored.ID, nil
}

// Delete removes a blend and releases the batches it consumed
func (s *Store) Delete(ctx context.Context, id entities.BlendID) error {
	return s.InTx(ctx, func(tx *gorm.DB) error {
		var row BlendModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", string(id)).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", entities.ErrBlendNotFound, id)
		}
		if err != nil {
			return err
		}

		var batchIDs []string
		if err := tx.Model(&BlendLineModel{}).Where("blend_id = ?", row.ID).Pluck("batch_id", &batchIDs).Error; err != nil {
			return err
		}
		if len(batchIDs) > 0 {
			if err := tx.Model(&BatchModel{}).
				Where("id IN ?", batchIDs).
				Where("used_in_order = ?", row.LotNumber).
				Updates(map[string]any{
					"is_used":       false,
					"used_in_order": nil,
					"used_date":     nil,
					"updated_at":    s.now(),
				}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("blend_id = ?", row.ID).Delete(&BlendLineModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&row).Error
	})
}

func (s *Store) Get(ctx context.Context, id entities.BlendID) (*entities.Blend, error) {
	var row BlendModel
	err := s.db.WithContext(ctx).Preload("Lines").Where("id = ?", string(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", entities.ErrBlendNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get blend %s: %w", id, err)
	}
	return fromBlendModel(row)
}

func (s *Store) List(ctx context.Context, fiscalYear int) ([]*entities.Blend, error) {
	q := s.db.WithContext(ctx).Model(&BlendModel{}).Preload("Lines")
	if fiscalYear != 0 {
		q = q.Where("fiscal_year = ?", fiscalYear)
	}
	var rows []BlendModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list blends: %w", err)
	}

	blends := make([]*entities.Blend, 0, len(rows))
	for _, row := range rows {
		blend, err := fromBlendModel(row)
		if err != nil {
			return nil, err
		}
		blends = append(blends, blend)
	}
	sort.SliceStable(blends, func(i, j int) bool {
		return s.sequencer.CompareSerials(blends[i].SerialNumber, blends[j].SerialNumber) < 0
	})
	return blends, nil
}

// checkConsumable verifies every requested batch exists and is free
func checkConsumable(ids []string, rows []BatchModel) error {
	byID := make(map[string]BatchModel, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: %s", entities.ErrBatchNotFound, id)
		}
		if row.IsUsed {
			used := ""
			if row.UsedInOrder != nil {
				used = *row.UsedInOrder
			}
			return fmt.Errorf("batch %d already used in %s: %w", row.BatchNumber, used, entities.ErrBatchUnavailable)
		}
		if row.IsOnHold {
			return fmt.Errorf("batch %d is on hold: %w", row.BatchNumber, entities.ErrBatchUnavailable)
		}
	}
	return nil
}

func upsertBatch() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}
}

// batchDataColumns are the columns a batch reload may overwrite. Usage and
// hold state belong to the blends committed since and are never reloaded.
var batchDataColumns = []string{
	"batch_number", "fiscal_year", "is_outsource",
	"bloom", "viscosity", "percentage", "ph", "conductivity", "moisture", "h2o2", "so2",
	"color", "clarity", "odour", "updated_at",
}

func reloadBatch() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(batchDataColumns),
	}
}

func fromBatchModels(rows []BatchModel) []entities.Batch {
	batches := make([]entities.Batch, len(rows))
	for i, row := range rows {
		batches[i] = fromBatchModel(row)
	}
	return batches
}
