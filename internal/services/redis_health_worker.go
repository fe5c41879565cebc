package services

import (
	"context"
	"time"

	"github.com/hookdeck/redishook/internal/hooks"
	"github.com/hookdeck/redishook/internal/logging"
	"github.com/hookdeck/redishook/internal/redishook"
	"github.com/hookdeck/redishook/internal/worker"
	"go.uber.org/zap"
)

const RedisComponent = "redis"

// RedisHealthWorker pings the published redis handle on an interval and
// records the result on the health tracker. Observer callbacks only fire on
// dials and failures, so recovery on a pooled connection needs this probe.
type RedisHealthWorker struct {
	ns       *hooks.Namespace
	tracker  *worker.HealthTracker
	logger   *logging.Logger
	interval time.Duration
	timeout  time.Duration
}

func NewRedisHealthWorker(ns *hooks.Namespace, tracker *worker.HealthTracker, logger *logging.Logger, interval time.Duration) worker.Worker {
	timeout := interval / 2
	if timeout <= 0 {
		timeout = time.Second
	}
	return &RedisHealthWorker{
		ns:       ns,
		tracker:  tracker,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

func (w *RedisHealthWorker) Name() string {
	return "redis-health"
}

func (w *RedisHealthWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.probe(ctx)
		}
	}
}

func (w *RedisHealthWorker) probe(ctx context.Context) {
	handle, ok := redishook.ClientFrom(w.ns)
	if !ok {
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := handle.Ping(pingCtx).Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Ctx(ctx).Debug("redis health probe failed", zap.String("error", err.Error()))
		w.tracker.MarkFailed(RedisComponent)
		return
	}
	w.tracker.MarkHealthy(RedisComponent)
}
