package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vsinha/blend/pkg/application/dto"
	"github.com/vsinha/blend/pkg/application/services/optimizer"
	"github.com/vsinha/blend/pkg/domain/entities"
	"github.com/vsinha/blend/pkg/domain/repositories"
	domainservices "github.com/vsinha/blend/pkg/domain/services"
	"github.com/vsinha/blend/pkg/infrastructure/cache"
	"github.com/vsinha/blend/pkg/infrastructure/events"
)

// SaveRequest commits a reviewed selection as a blend
type SaveRequest struct {
	Target    entities.TargetSpecification
	LotNumber string
	Mesh      string
	Notes     string
	BatchIDs  []entities.BatchID
}

// BlendService coordinates validation, the batch pool, the optimizer and
// blend persistence
type BlendService struct {
	batchRepo repositories.BatchRepository
	blendRepo repositories.BlendRepository
	optimizer *optimizer.Optimizer
	validator *domainservices.TargetValidator
	publisher events.Publisher
	proposals *cache.ProposalCache
	logger    *zap.Logger
}

// ServiceOption configures optional collaborators of a BlendService
type ServiceOption func(*BlendService)

// WithPublisher records blend and batch events
func WithPublisher(p events.Publisher) ServiceOption {
	return func(s *BlendService) { s.publisher = p }
}

// WithProposalCache caches deterministic optimization results
func WithProposalCache(c *cache.ProposalCache) ServiceOption {
	return func(s *BlendService) { s.proposals = c }
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *BlendService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewBlendService creates a new blend service
func NewBlendService(
	batchRepo repositories.BatchRepository,
	blendRepo repositories.BlendRepository,
	opt *optimizer.Optimizer,
	opts ...ServiceOption,
) *BlendService {
	if opt == nil {
		opt = optimizer.New()
	}
	s := &BlendService{
		batchRepo: batchRepo,
		blendRepo: blendRepo,
		optimizer: opt,
		validator: domainservices.NewTargetValidator(),
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Optimize validates spec, fetches the eligible pool and runs the optimizer.
// Invalid input returns an error wrapping ErrInvalidTarget and the optimizer
// is never invoked.
func (s *BlendService) Optimize(ctx context.Context, spec entities.TargetSpecification) (dto.OptimizationResult, error) {
	if err := s.validator.ValidateTarget(spec).Err(); err != nil {
		return dto.OptimizationResult{}, err
	}

	log := s.logger.With(
		zap.Int("fiscal_year", spec.FiscalYear),
		zap.String("mode", spec.Mode.String()),
		zap.Int("target_bags", spec.TargetBags),
	)

	// The key pins the pool generation before the pool is read
	var cacheKey string
	if s.proposals != nil && spec.Mode != entities.RandomAverage {
		key, err := s.proposals.Key(ctx, spec)
		if err != nil {
			log.Warn("proposal cache lookup failed", zap.Error(err))
		} else {
			cached, ok, err := s.proposals.Get(ctx, key)
			switch {
			case err != nil:
				log.Warn("proposal cache lookup failed", zap.Error(err))
			case ok:
				log.Debug("proposal served from cache")
				return *cached, nil
			}
			cacheKey = key
		}
	}

	pool, err := s.batchRepo.ListAvailable(ctx, repositories.PoolQuery{
		FiscalYear:       spec.FiscalYear,
		IncludeOutsource: spec.IncludeOutsource,
		OnlyOutsource:    spec.OnlyOutsource,
	})
	if err != nil {
		return dto.OptimizationResult{}, fmt.Errorf("failed to load batch pool: %w", err)
	}

	result := s.optimizer.Optimize(pool, spec)

	if cacheKey != "" {
		if err := s.proposals.Put(ctx, cacheKey, result); err != nil {
			log.Warn("proposal cache store failed", zap.Error(err))
		}
	}

	fields := []zap.Field{zap.Int("pool", len(pool)), zap.Int("selected", len(result.SelectedBatches))}
	if result.Warning != "" {
		fields = append(fields, zap.String("warning", result.Warning))
	}
	log.Info("blend optimized", fields...)
	return result, nil
}

// Save commits the selected batches as a blend. The selection is not
// re-optimized; a shortfall or out-of-range average does not block saving.
func (s *BlendService) Save(ctx context.Context, req SaveRequest) (*entities.Blend, error) {
	result := s.validator.ValidateTarget(req.Target)
	result.Errors = append(result.Errors, s.validator.ValidateLotNumber(req.LotNumber).Errors...)
	if len(req.BatchIDs) == 0 {
		result.Errors = append(result.Errors, "selectedBatches must not be empty")
	}
	if err := result.Err(); err != nil {
		return nil, err
	}

	pool := repositories.PoolQuery{
		FiscalYear:       req.Target.FiscalYear,
		IncludeOutsource: req.Target.IncludeOutsource,
		OnlyOutsource:    req.Target.OnlyOutsource,
	}
	lines := make([]entities.BlendLine, 0, len(req.BatchIDs))
	for _, id := range req.BatchIDs {
		batch, err := s.batchRepo.GetBatch(ctx, id)
		if err != nil {
			return nil, err
		}
		if batch.FiscalYear != req.Target.FiscalYear {
			return nil, fmt.Errorf("%w: batch %s belongs to fiscal year %d, not %d",
				entities.ErrInvalidTarget, id, batch.FiscalYear, req.Target.FiscalYear)
		}
		if !pool.Admits(*batch) {
			return nil, fmt.Errorf("%w: batch %s (outsource=%t) does not match the outsource selection",
				entities.ErrInvalidTarget, id, batch.IsOutsource)
		}
		lines = append(lines, entities.LineFromBatch(*batch))
	}

	blend, err := entities.NewBlend(req.LotNumber, req.Target.FiscalYear, req.Target, req.Mesh, req.Notes, lines)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidTarget, err)
	}

	if _, err := s.blendRepo.Commit(ctx, blend); err != nil {
		s.logger.Warn("blend commit rejected",
			zap.String("lot_number", blend.LotNumber),
			zap.Error(err),
		)
		return nil, err
	}

	s.poolChanged(ctx, blend.FiscalYear, events.NewBlendCommitted(blend))
	s.logger.Info("blend committed",
		zap.String("blend_id", string(blend.ID)),
		zap.String("lot_number", blend.LotNumber),
		zap.String("serial_number", blend.SerialNumber),
		zap.Int("fiscal_year", blend.FiscalYear),
		zap.Int("selected", len(blend.Lines)),
	)
	return blend, nil
}

// Delete removes a blend and returns its batches to the pool
func (s *BlendService) Delete(ctx context.Context, id entities.BlendID) error {
	blend, err := s.blendRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.blendRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.poolChanged(ctx, blend.FiscalYear, events.NewBlendDeleted(blend))
	s.logger.Info("blend deleted",
		zap.String("blend_id", string(id)),
		zap.String("lot_number", blend.LotNumber),
		zap.Int("released", len(blend.Lines)),
	)
	return nil
}

func (s *BlendService) GetBlend(ctx context.Context, id entities.BlendID) (*entities.Blend, error) {
	return s.blendRepo.Get(ctx, id)
}

func (s *BlendService) ListBlends(ctx context.Context, fiscalYear int) ([]*entities.Blend, error) {
	return s.blendRepo.List(ctx, fiscalYear)
}

// SetHold places a batch on hold or releases it
func (s *BlendService) SetHold(ctx context.Context, id entities.BatchID, onHold bool) error {
	batch, err := s.batchRepo.GetBatch(ctx, id)
	if err != nil {
		return err
	}
	if err := s.batchRepo.SetHold(ctx, id, onHold); err != nil {
		return err
	}
	s.poolChanged(ctx, batch.FiscalYear, events.NewBatchHoldChanged(id, onHold))
	s.logger.Info("batch hold changed", zap.String("batch_id", string(id)), zap.Bool("on_hold", onHold))
	return nil
}

// AvailableBatches returns the batch pool for query
func (s *BlendService) AvailableBatches(ctx context.Context, query repositories.PoolQuery) ([]entities.Batch, error) {
	return s.batchRepo.ListAvailable(ctx, query)
}

// Pool summarizes the batches available for blending
func (s *BlendService) Pool(ctx context.Context, query repositories.PoolQuery) (dto.PoolSummary, error) {
	batches, err := s.batchRepo.ListAvailable(ctx, query)
	if err != nil {
		return dto.PoolSummary{}, fmt.Errorf("failed to load batch pool: %w", err)
	}
	stats := optimizer.Summarize(batches)
	return dto.PoolSummary{
		FiscalYear:    query.FiscalYear,
		Available:     stats.Count,
		Production:    stats.Count - stats.Outsource,
		Outsource:     stats.Outsource,
		WithBloom:     stats.WithBloom,
		AverageBloom:  stats.AverageBloom,
		MinBloom:      stats.MinBloom,
		MaxBloom:      stats.MaxBloom,
		AvailableBags: stats.TotalBags,
	}, nil
}

// poolChanged publishes event and drops cached proposals of the fiscal year.
// Both are best effort; the state change has already been persisted.
func (s *BlendService) poolChanged(ctx context.Context, fiscalYear int, event events.Event) {
	if s.proposals != nil {
		if err := s.proposals.Invalidate(ctx, fiscalYear); err != nil {
			s.logger.Warn("proposal cache invalidation failed", zap.Int("fiscal_year", fiscalYear), zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(event); err != nil {
			s.logger.Warn("event publish failed", zap.String("event", event.Type()), zap.Error(err))
		}
	}
}
