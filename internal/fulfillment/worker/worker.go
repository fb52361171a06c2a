package worker

import (
	"context"
	"time"

	"github.com/smallbiznis/storefront/internal/fulfillment/domain"
	"github.com/smallbiznis/storefront/internal/observability/metrics"
	"github.com/smallbiznis/storefront/internal/ratelimit"
	"github.com/smallbiznis/storefront/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	jobName = "fulfillment_retry"
	lockKey = "fulfillment:retry:lock"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Retries domain.RetryService
	Config  Config                 `optional:"true"`
	Locker  *ratelimit.Locker      `optional:"true"`
	Metrics *metrics.WorkerMetrics `optional:"true"`
}

// Worker drains the failed-decrement queue. With Redis configured only one
// replica runs a batch at a time.
type Worker struct {
	log     *zap.Logger
	retries domain.RetryService
	cfg     Config
	locker  *ratelimit.Locker
	metrics *metrics.WorkerMetrics
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:     p.Log.Named("fulfillment.retry"),
		retries: p.Retries,
		cfg:     p.Config.withDefaults(),
		locker:  p.Locker,
		metrics: p.Metrics,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	expected := time.Now()
	for {
		w.metrics.ObserveRunLoopLag(time.Since(expected))
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("fulfillment retry run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			expected = tick
		}
	}
}

func (w *Worker) RunOnce(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, w.cfg.RunTimeout)
	defer cancel()
	ctx, log := ctxlogger.ForJob(ctx, w.log, jobName)

	if w.locker.Enabled() {
		lease, err := w.locker.Acquire(ctx, lockKey, w.cfg.LockTTL)
		if err != nil {
			w.metrics.IncJobError(jobName, err)
			return err
		}
		if lease == nil {
			w.metrics.IncBatchDeferred(jobName, metrics.WorkerBatchDeferredReasonLockHeld)
			return nil
		}
		defer func() {
			if err := lease.Release(context.Background()); err != nil {
				log.Warn("failed to release retry lock", zap.Error(err))
			}
		}()
	}

	started := time.Now()
	w.metrics.IncJobRun(jobName)
	result, err := w.retries.ProcessDue(ctx, w.cfg.BatchSize)
	w.metrics.ObserveJobDuration(jobName, time.Since(started))
	if result != nil {
		w.metrics.AddBatchProcessed(jobName, "resolved", result.Resolved)
		w.metrics.AddBatchProcessed(jobName, "failed", result.Failed)
		w.metrics.AddBatchProcessed(jobName, "dead", result.Dead)
		w.metrics.AddBatchProcessed(jobName, "skipped", result.Skipped)
		if result.Claimed > 0 {
			log.Info("fulfillment retry batch done",
				zap.Int("claimed", result.Claimed),
				zap.Int("resolved", result.Resolved),
				zap.Int("failed", result.Failed),
				zap.Int("dead", result.Dead),
				zap.Int("skipped", result.Skipped),
			)
		}
	}
	if err != nil {
		w.metrics.IncJobError(jobName, err)
		return err
	}
	return nil
}
