// Package redishook bootstraps the Redis client of the host application.
//
// On Initialize it selects cluster, sentinel or standalone mode from the
// `redis` config section, attaches lifecycle observers, publishes the
// client on the shared namespace under NamespaceKey and subscribes to the
// lower signal to disconnect it.
package redishook

import (
	"context"
	"time"

	"github.com/hookdeck/redishook/internal/config"
	"github.com/hookdeck/redishook/internal/hooks"
	"github.com/hookdeck/redishook/internal/logging"
	"github.com/hookdeck/redishook/internal/redis"
	"go.uber.org/zap"
)

const (
	Identity = "redis"

	// NamespaceKey is where the client handle is published.
	NamespaceKey = "redis"

	defaultConnectTimeout = 5 * time.Second
)

type Hook struct {
	config    *config.RedisConfig
	logger    *logging.Logger
	observers redis.Observers

	tracing        bool
	metrics        bool
	connectTimeout time.Duration

	handle *redis.Handle
	result redis.ConnectResult
}

var _ hooks.Hook = (*Hook)(nil)

type Option func(h *Hook)

// WithObserver adds an observer next to the logging one.
func WithObserver(observer redis.Observer) Option {
	return func(h *Hook) {
		h.observers = append(h.observers, observer)
	}
}

func WithInstrumentation(tracing, metrics bool) Option {
	return func(h *Hook) {
		h.tracing = tracing
		h.metrics = metrics
	}
}

// WithConnectTimeout bounds the initial PING. Zero skips it.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(h *Hook) {
		h.connectTimeout = timeout
	}
}

// New creates the hook. A nil cfg means the hook defaults.
func New(cfg *config.RedisConfig, logger *logging.Logger, opts ...Option) *Hook {
	if cfg == nil {
		cfg = config.DefaultRedisConfig()
	}
	h := &Hook{
		config:         cfg,
		logger:         logger,
		connectTimeout: defaultConnectTimeout,
	}
	h.observers = redis.Observers{newLogObserver(logger)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hook) Identity() string {
	return Identity
}

func (h *Hook) Defaults() any {
	return config.DefaultRedisConfig()
}

// Initialize constructs and publishes the client. Only construction errors
// are returned; a server that cannot be reached is logged and left to the
// client's reconnect logic.
func (h *Hook) Initialize(ctx context.Context, lc *hooks.Lifecycle, ns *hooks.Namespace) error {
	h.logger.Info("initializing hook", zap.String("hook", Identity))

	if !h.config.Enabled {
		h.logger.Info("redis hook is disabled in config")
		return nil
	}

	redisConfig := h.config.ToConfig()
	mode := redisConfig.Mode()
	h.warnIgnoredFields(mode)
	h.logger.Info("initializing redis client", zap.String("mode", mode.String()))

	handle, err := redis.New(redisConfig,
		redis.WithObserver(h.observers),
		redis.WithInstrumentation(h.tracing, h.metrics),
	)
	if err != nil {
		h.logger.Error("redis hook failed to initialize",
			zap.String("mode", mode.String()),
			zap.Error(err))
		return err
	}

	h.handle = handle
	ns.Publish(NamespaceKey, handle)
	lc.OnLower(Identity, h.lower(ns))

	if h.connectTimeout > 0 {
		connectCtx, cancel := context.WithTimeout(ctx, h.connectTimeout)
		defer cancel()
		h.result = handle.Connect(connectCtx)
		if h.result.Err != nil {
			h.logger.Warn("redis not reachable at startup, continuing",
				zap.String("mode", mode.String()),
				zap.String("error", h.result.Err.Error()))
		}
	}

	return nil
}

// warnIgnoredFields reports config the selected mode will not use.
func (h *Hook) warnIgnoredFields(mode redis.Mode) {
	switch mode {
	case redis.ModeCluster:
		if len(h.config.Sentinels) > 0 {
			h.logger.Warn("cluster_nodes take precedence, sentinels ignored")
		}
		if h.config.DB != 0 {
			h.logger.Warn("cluster mode has no database selector, db ignored", zap.Int("db", h.config.DB))
		}
	case redis.ModeStandalone:
		if len(h.config.Sentinels) > 0 {
			h.logger.Warn("sentinels configured without a master name, using standalone mode")
		}
	}
}

func (h *Hook) lower(ns *hooks.Namespace) func(ctx context.Context) {
	return func(ctx context.Context) {
		v, ok := ns.Remove(NamespaceKey)
		if !ok {
			return
		}
		handle, ok := v.(*redis.Handle)
		if !ok || handle == nil {
			return
		}
		h.logger.Info("disconnecting from redis due to shutdown", zap.String("mode", handle.Mode().String()))
		if err := handle.Disconnect(); err != nil {
			h.logger.Error("redis disconnect failed", zap.Error(err))
		}
	}
}

// Handle returns the constructed handle, or nil when disabled or not yet
// initialized.
func (h *Hook) Handle() *redis.Handle {
	return h.handle
}

// ConnectResult is the outcome of the startup PING.
func (h *Hook) ConnectResult() redis.ConnectResult {
	return h.result
}

// ClientFrom returns the handle published on ns, if any.
func ClientFrom(ns *hooks.Namespace) (*redis.Handle, bool) {
	v, ok := ns.Lookup(NamespaceKey)
	if !ok {
		return nil, false
	}
	handle, ok := v.(*redis.Handle)
	return handle, ok && handle != nil
}
