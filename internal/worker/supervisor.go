package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNoWorkers        = errors.New("no workers registered")
	ErrAllWorkersExited = errors.New("all workers have exited unexpectedly")
	ErrShutdownTimeout  = errors.New("shutdown timeout exceeded")
)

// Logger is the subset of *logging.Logger the supervisor uses.
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// Supervisor runs workers and records their health. A failed worker is
// marked failed but does not stop the others, so the health endpoint can
// report it.
type Supervisor struct {
	workers         map[string]Worker
	health          *HealthTracker
	logger          Logger
	shutdownTimeout time.Duration
}

type SupervisorOption func(*Supervisor)

// WithShutdownTimeout bounds how long Run waits for workers after ctx is
// cancelled. Zero waits indefinitely.
func WithShutdownTimeout(timeout time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.shutdownTimeout = timeout
	}
}

// WithHealthTracker shares a tracker with other components, e.g. hooks.
func WithHealthTracker(tracker *HealthTracker) SupervisorOption {
	return func(s *Supervisor) {
		s.health = tracker
	}
}

func NewSupervisor(logger Logger, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		workers: make(map[string]Worker),
		health:  NewHealthTracker(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a worker. Panics on a duplicate name.
func (s *Supervisor) Register(w Worker) {
	if _, exists := s.workers[w.Name()]; exists {
		panic(fmt.Sprintf("worker %s already registered", w.Name()))
	}
	s.workers[w.Name()] = w
	s.logger.Debug("worker registered", zap.String("worker", w.Name()))
}

func (s *Supervisor) HealthTracker() *HealthTracker {
	return s.health
}

// Run starts every worker and blocks until ctx is cancelled or all
// workers have exited. It returns ctx.Err() after a graceful shutdown and
// ErrAllWorkersExited if the workers stopped on their own.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.workers) == 0 {
		s.logger.Warn("no workers registered")
		return ErrNoWorkers
	}

	s.logger.Info("starting workers", zap.Int("count", len(s.workers)))

	var wg sync.WaitGroup
	for name, w := range s.workers {
		wg.Add(1)
		s.health.MarkHealthy(name)
		go func(name string, w Worker) {
			defer wg.Done()

			s.logger.Info("worker starting", zap.String("worker", name))
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("worker failed", zap.String("worker", name), zap.Error(err))
				s.health.MarkFailed(name)
				return
			}
			if ctx.Err() == nil {
				// Returned without being asked to stop.
				s.logger.Warn("worker exited", zap.String("worker", name))
				s.health.MarkFailed(name)
				return
			}
			s.logger.Info("worker stopped gracefully", zap.String("worker", name))
		}(name, w)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down workers")
		if s.shutdownTimeout <= 0 {
			<-done
			return ctx.Err()
		}
		select {
		case <-done:
			s.logger.Info("all workers shutdown gracefully")
			return ctx.Err()
		case <-time.After(s.shutdownTimeout):
			s.logger.Warn("shutdown timeout exceeded, some workers may still be running",
				zap.Duration("timeout", s.shutdownTimeout))
			return fmt.Errorf("%w (%v)", ErrShutdownTimeout, s.shutdownTimeout)
		}
	case <-done:
		s.logger.Warn("all workers have exited")
		return ErrAllWorkersExited
	}
}
