package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/blend/pkg/application/dto"
	"github.com/vsinha/blend/pkg/domain/repositories"
)

// PoolSummarizer reports the current batch pool
type PoolSummarizer interface {
	Pool(ctx context.Context, query repositories.PoolQuery) (dto.PoolSummary, error)
}

// PoolReportJob logs the available production and outsource batches of the
// current fiscal year. fiscalYear may be nil, in which case the calendar
// year of the run is used.
func PoolReportJob(source PoolSummarizer, logger *zap.Logger, fiscalYear func(time.Time) int) func(context.Context) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fiscalYear == nil {
		fiscalYear = func(t time.Time) int { return t.Year() }
	}
	return func(ctx context.Context) {
		fy := fiscalYear(time.Now())
		summary, err := source.Pool(ctx, repositories.PoolQuery{FiscalYear: fy, IncludeOutsource: true})
		if err != nil {
			logger.Error("pool report failed", zap.Int("fiscal_year", fy), zap.Error(err))
			return
		}

		fields := []zap.Field{
			zap.Int("fiscal_year", fy),
			zap.Int("available", summary.Available),
			zap.Int("production", summary.Production),
			zap.Int("outsource", summary.Outsource),
			zap.Int("available_bags", summary.AvailableBags),
		}
		if summary.AverageBloom != nil {
			fields = append(fields, zap.Float64("average_bloom", *summary.AverageBloom))
		}
		logger.Info("batch pool report", fields...)
	}
}
