package apirouter

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/hookdeck/redishook/internal/hooks"
	"github.com/hookdeck/redishook/internal/logging"
	"github.com/hookdeck/redishook/internal/worker"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterConfig struct {
	ServiceName string
	GinMode     string
	APIKey      string
	// Sentry reports panics and 5xx errors; sentry.Init must have run.
	Sentry bool
}

// NewRouter exposes health and key endpoints. Key handlers look the Redis
// handle up on ns per request, so they answer 503 while the redis hook is
// disabled or after it has been lowered.
func NewRouter(cfg RouterConfig, logger *logging.Logger, ns *hooks.Namespace, health *worker.HealthTracker) *gin.Engine {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	r := gin.New()
	if cfg.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(LoggerMiddleware(logger))
	r.Use(ErrorHandlerMiddleware(cfg.Sentry))

	healthHandler := HealthHandler(health)
	r.GET("/healthz", healthHandler)

	apiRouter := r.Group("/api/v1")
	apiRouter.GET("/healthz", healthHandler)

	keyHandlers := NewKeyHandlers(logger, ns)
	keys := apiRouter.Group("/keys", APIKeyMiddleware(cfg.APIKey), keyHandlers.RequireClient())
	keys.GET("/:key", keyHandlers.Get)
	keys.PUT("/:key", keyHandlers.Set)
	keys.DELETE("/:key", keyHandlers.Delete)

	return r
}
