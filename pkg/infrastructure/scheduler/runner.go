package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner wraps a seconds-resolution cron and hands every job a shared base context
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DiscardLogger))),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
}

func (r *Runner) Start() {
	r.logger.Info("cron started", zap.Int("jobs", len(r.cron.Entries())))
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}
