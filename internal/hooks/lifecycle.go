package hooks

import (
	"context"
	"sync"

	"github.com/hookdeck/redishook/internal/logging"
	"go.uber.org/zap"
)

type lowerFunc struct {
	name string
	fn   func(ctx context.Context)
}

// Lifecycle carries the host's lower (shutdown) signal.
type Lifecycle struct {
	mu      sync.Mutex
	funcs   []lowerFunc
	lowered bool
	once    sync.Once
	logger  *logging.Logger
}

func NewLifecycle(logger *logging.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// OnLower subscribes fn to the lower signal. Subscribing after Lower has
// run is a no-op.
func (l *Lifecycle) OnLower(name string, fn func(ctx context.Context)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lowered {
		l.logger.Warn("lower already emitted, ignoring subscriber", zap.String("subscriber", name))
		return
	}
	l.funcs = append(l.funcs, lowerFunc{name: name, fn: fn})
}

// Lower runs the subscribers once, most recent first. A panicking
// subscriber is logged and does not stop the others.
func (l *Lifecycle) Lower(ctx context.Context) {
	l.once.Do(func() {
		l.mu.Lock()
		l.lowered = true
		funcs := l.funcs
		l.funcs = nil
		l.mu.Unlock()

		for i := len(funcs) - 1; i >= 0; i-- {
			l.run(ctx, funcs[i])
		}
	})
}

func (l *Lifecycle) run(ctx context.Context, f lowerFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Error("lower subscriber panicked",
				zap.String("subscriber", f.name),
				zap.Any("panic", rec))
		}
	}()
	l.logger.Debug("running lower subscriber", zap.String("subscriber", f.name))
	f.fn(ctx)
}
