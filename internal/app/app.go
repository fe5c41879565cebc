package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/hookdeck/redishook/internal/apirouter"
	"github.com/hookdeck/redishook/internal/config"
	"github.com/hookdeck/redishook/internal/hooks"
	"github.com/hookdeck/redishook/internal/logging"
	"github.com/hookdeck/redishook/internal/otel"
	"github.com/hookdeck/redishook/internal/redis"
	"github.com/hookdeck/redishook/internal/redishook"
	"github.com/hookdeck/redishook/internal/services"
	"github.com/hookdeck/redishook/internal/version"
	"github.com/hookdeck/redishook/internal/worker"
	"go.uber.org/zap"
)

const redisHealthInterval = 15 * time.Second

type App struct {
	config *config.Config
	logger *logging.Logger
}

type Option func(a *App)

// WithLogger replaces the logger built from the config.
func WithLogger(logger *logging.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		config: cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) Run(ctx context.Context) error {
	logger := a.logger
	if logger == nil {
		var err error
		logger, err = logging.NewLogger(
			logging.WithLogLevel(a.config.LogLevel),
			logging.WithLogFormat(a.config.LogFormat),
		)
		if err != nil {
			return err
		}
		defer logger.Sync()
	}
	return run(ctx, a.config, logger)
}

func run(mainContext context.Context, cfg *config.Config, logger *logging.Logger) (err error) {
	if cfg.Redis == nil {
		return config.ErrMissingRedis
	}

	instanceID := uuid.NewString()
	logger = logger.With(zap.String("instance_id", instanceID))

	logger.Info("starting redishook", zap.String("config_path", cfg.ConfigFilePath()))
	logger.Info("configuration loaded", cfg.LogConfigurationSummary()...)
	redis.SetLogger(logger)

	// Set up cancellation context
	ctx, cancel := context.WithCancel(mainContext)
	defer cancel()

	// Set up OpenTelemetry.
	otelConfig := cfg.OpenTelemetry.ToConfig()
	if otelConfig != nil {
		otelShutdown, err := otel.SetupOTelSDK(ctx, otelConfig)
		if err != nil {
			return err
		}
		// Handle shutdown properly so nothing leaks.
		defer func() {
			err = errors.Join(err, otelShutdown(context.Background()))
		}()
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:     cfg.SentryDSN,
			Release: version.Version(),
		}); err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		sentry.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("instance_id", instanceID)
		})
		defer sentry.Flush(2 * time.Second)
	}

	health := worker.NewHealthTracker()
	ns := hooks.NewNamespace()
	lc := hooks.NewLifecycle(logger)

	// Lower also runs on early returns; the second call is a no-op.
	defer lc.Lower(context.Background())

	registry := hooks.NewRegistry(logger)
	registry.Register(newRedisHook(cfg, logger, health, instanceID, otelConfig))
	if err := registry.Initialize(ctx, lc, ns); err != nil {
		return err
	}

	supervisor := worker.NewSupervisor(logger,
		worker.WithHealthTracker(health),
		worker.WithShutdownTimeout(cfg.ShutdownTimeout()),
	)

	router := apirouter.NewRouter(apirouter.RouterConfig{
		ServiceName: routerServiceName(cfg, otelConfig),
		GinMode:     cfg.GinMode,
		APIKey:      cfg.APIKey,
		Sentry:      cfg.SentryDSN != "",
	}, logger, ns, health)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.APIPort),
		Handler: router,
	}
	supervisor.Register(services.NewHTTPServerWorker(httpServer, logger, cfg.ShutdownTimeout()))

	if cfg.Redis.Enabled {
		supervisor.Register(services.NewRedisHealthWorker(ns, health, logger, redisHealthInterval))
	} else {
		health.MarkDisabled(services.RedisComponent)
	}

	// Handle sigterm and await termChan signal
	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(termChan)

	// Run workers in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- supervisor.Run(ctx)
	}()

	// Wait for either termination signal or worker failure
	var exitErr error
	select {
	case <-termChan:
		logger.Info("shutdown signal received")
		cancel() // Cancel context to trigger graceful shutdown
		exitErr = shutdownError(logger, <-errChan)
	case err := <-errChan:
		if mainContext.Err() != nil {
			exitErr = shutdownError(logger, err)
			break
		}
		// Workers exited unexpectedly
		if err != nil {
			logger.Error("workers exited unexpectedly", zap.Error(err))
			exitErr = err
		}
	}

	// Workers are stopped; release the hooks.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer shutdownCancel()
	lc.Lower(shutdownCtx)

	logger.Info("redishook shutdown complete")

	return exitErr
}

// context.Canceled is expected during graceful shutdown.
func shutdownError(logger *logging.Logger, err error) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("error during graceful shutdown", zap.Error(err))
		return err
	}
	return nil
}

func newRedisHook(cfg *config.Config, logger *logging.Logger, health *worker.HealthTracker, instanceID string, otelConfig *otel.OpenTelemetryConfig) *redishook.Hook {
	redisConfig := *cfg.Redis
	if redisConfig.Options.ClientName == "" {
		redisConfig.Options.ClientName = "redishook-" + instanceID[:8]
	}

	opts := []redishook.Option{
		redishook.WithObserver(redis.ObserverFuncs{
			Connect: func(ctx context.Context, addr string) {
				health.MarkHealthy(services.RedisComponent)
			},
			Error: func(ctx context.Context, err error) {
				health.MarkFailed(services.RedisComponent)
			},
		}),
	}
	if otelConfig != nil {
		opts = append(opts, redishook.WithInstrumentation(otelConfig.Traces, otelConfig.Metrics))
	}
	return redishook.New(&redisConfig, logger, opts...)
}

func routerServiceName(cfg *config.Config, otelConfig *otel.OpenTelemetryConfig) string {
	if otelConfig == nil || !otelConfig.Traces {
		return ""
	}
	return cfg.OpenTelemetry.GetServiceName()
}
