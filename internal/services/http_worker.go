package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hookdeck/redishook/internal/logging"
	"github.com/hookdeck/redishook/internal/worker"
	"go.uber.org/zap"
)

// HTTPServerWorker wraps an HTTP server as a worker.
type HTTPServerWorker struct {
	server          *http.Server
	logger          *logging.Logger
	shutdownTimeout time.Duration
}

// NewHTTPServerWorker creates a new HTTP server worker.
func NewHTTPServerWorker(server *http.Server, logger *logging.Logger, shutdownTimeout time.Duration) worker.Worker {
	return &HTTPServerWorker{
		server:          server,
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
	}
}

func (w *HTTPServerWorker) Name() string {
	return "http-server"
}

// Run serves until ctx is cancelled, then shuts the server down so that
// in-flight requests finish before hooks are lowered.
func (w *HTTPServerWorker) Run(ctx context.Context) error {
	logger := w.logger.Ctx(ctx)
	logger.Info("http server listening", zap.String("addr", w.server.Addr))

	errChan := make(chan error, 1)
	go func() {
		if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		if err := w.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down http server", zap.Error(err))
			return err
		}
		logger.Info("http server shut down")
		return nil

	case err := <-errChan:
		logger.Error("http server error", zap.Error(err))
		return err
	}
}
