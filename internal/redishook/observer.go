package redishook

import (
	"context"
	"sync"

	"github.com/hookdeck/redishook/internal/logging"
	"go.uber.org/zap"
)

// logObserver logs the first connection to each address at info level and
// reconnects at debug, so pool growth does not flood the log.
type logObserver struct {
	logger *logging.Logger
	seen   sync.Map
}

func newLogObserver(logger *logging.Logger) *logObserver {
	return &logObserver{logger: logger}
}

func (o *logObserver) OnConnect(ctx context.Context, addr string) {
	if _, loaded := o.seen.LoadOrStore(addr, struct{}{}); loaded {
		o.logger.Ctx(ctx).Debug("redis connection opened", zap.String("addr", addr))
		return
	}
	o.logger.Ctx(ctx).Info("successfully connected to redis", zap.String("addr", addr))
}

// Cluster nodes may be unreachable during startup; this is reported, never fatal.
func (o *logObserver) OnError(ctx context.Context, err error) {
	o.logger.Ctx(ctx).Error("redis client error", zap.String("error", err.Error()))
}
