package apirouter

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hookdeck/redishook/internal/hooks"
	"github.com/hookdeck/redishook/internal/logging"
	"github.com/hookdeck/redishook/internal/redis"
	"github.com/hookdeck/redishook/internal/redishook"
	"go.uber.org/zap"
)

const clientContextKey = "redis.client"

type KeyHandlers struct {
	logger *logging.Logger
	ns     *hooks.Namespace
}

func NewKeyHandlers(logger *logging.Logger, ns *hooks.Namespace) *KeyHandlers {
	return &KeyHandlers{
		logger: logger,
		ns:     ns,
	}
}

// RequireClient aborts with 503 when no Redis handle is published.
func (h *KeyHandlers) RequireClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		handle, ok := redishook.ClientFrom(h.ns)
		if !ok {
			AbortWithError(c, NewErrServiceUnavailable("redis is not available"))
			return
		}
		c.Set(clientContextKey, handle)
		c.Next()
	}
}

func mustClient(c *gin.Context) *redis.Handle {
	return c.MustGet(clientContextKey).(*redis.Handle)
}

type KeyResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	// TTL is in seconds; -1 means no expiry.
	TTL int64 `json:"ttl"`
}

func (h *KeyHandlers) Get(c *gin.Context) {
	client := mustClient(c)
	key := c.Param("key")

	value, err := client.Get(c.Request.Context(), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			AbortWithError(c, NewErrNotFound("key"))
			return
		}
		AbortWithError(c, NewErrInternalServer(err))
		return
	}

	ttl, err := client.TTL(c.Request.Context(), key).Result()
	if err != nil {
		AbortWithError(c, NewErrInternalServer(err))
		return
	}

	c.JSON(http.StatusOK, KeyResponse{Key: key, Value: value, TTL: ttlSeconds(ttl)})
}

type SetKeyRequest struct {
	Value *string `json:"value" binding:"required"`
	// TTLSeconds is capped at math.MaxInt64 / time.Second so the
	// expiration fits in a time.Duration.
	TTLSeconds int64 `json:"ttl_seconds" binding:"min=0,max=9223372036"`
}

func (h *KeyHandlers) Set(c *gin.Context) {
	var req SetKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, err)
		return
	}

	client := mustClient(c)
	key := c.Param("key")
	ttl := time.Duration(req.TTLSeconds) * time.Second

	if err := client.Set(c.Request.Context(), key, *req.Value, ttl).Err(); err != nil {
		h.logger.Ctx(c.Request.Context()).Error("failed to set key", zap.String("key", key), zap.Error(err))
		AbortWithError(c, NewErrInternalServer(err))
		return
	}

	resp := KeyResponse{Key: key, Value: *req.Value, TTL: -1}
	if req.TTLSeconds > 0 {
		resp.TTL = req.TTLSeconds
	}
	c.JSON(http.StatusOK, resp)
}

func (h *KeyHandlers) Delete(c *gin.Context) {
	client := mustClient(c)
	key := c.Param("key")

	deleted, err := client.Del(c.Request.Context(), key).Result()
	if err != nil {
		AbortWithError(c, NewErrInternalServer(err))
		return
	}
	if deleted == 0 {
		AbortWithError(c, NewErrNotFound("key"))
		return
	}
	c.Status(http.StatusNoContent)
}

func ttlSeconds(ttl time.Duration) int64 {
	if ttl < 0 {
		return -1
	}
	return int64(ttl / time.Second)
}
