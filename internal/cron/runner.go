package cronrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context, loc *time.Location) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	opts := []cron.Option{cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))}
	if loc != nil {
		opts = append(opts, cron.WithLocation(loc))
	}
	return &Runner{
		cron:    cron.New(opts...),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add schedules job. A panicking job is logged and the runner keeps going.
func (r *Runner) Add(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		defer func() {
			if rec := recover(); rec != nil && r.logger != nil {
				r.logger.Error("cron job panicked", zap.String("job", name), zap.String("panic", fmt.Sprint(rec)))
			}
		}()
		if r.logger != nil {
			r.logger.Debug("cron job fired", zap.String("job", name))
		}
		job(r.baseCtx)
	})
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started", zap.Int("entries", len(r.cron.Entries())))
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}
