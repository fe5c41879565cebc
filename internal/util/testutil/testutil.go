package testutil

import (
	"crypto/rand"
	"fmt"
	mathrand "math/rand"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hookdeck/redishook/internal/config"
	"github.com/hookdeck/redishook/internal/logging"
	internalredis "github.com/hookdeck/redishook/internal/redis"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func CheckIntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
}

// CreateTestRedisConfig starts a miniredis server and returns a standalone
// hook config pointing at it.
func CreateTestRedisConfig(t *testing.T) (*config.RedisConfig, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	port, _ := strconv.Atoi(mr.Port())

	cfg := config.DefaultRedisConfig()
	cfg.Host = mr.Host()
	cfg.Port = port
	return cfg, mr
}

// CreateTestRedisClient returns a plain client on a fresh miniredis server.
func CreateTestRedisClient(t *testing.T) (internalredis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
	})
	return client, mr
}

func CreateTestLogger(t *testing.T) *logging.Logger {
	zapLogger := zaptest.NewLogger(t)
	logger := otelzap.New(zapLogger,
		otelzap.WithMinLevel(zap.InfoLevel),
	)
	return &logging.Logger{Logger: logger}
}

// UnusedAddr returns a loopback address nothing listens on.
func UnusedAddr(t *testing.T) (string, int) {
	mr := miniredis.RunT(t)
	host := mr.Host()
	port, _ := strconv.Atoi(mr.Port())
	mr.Close()
	return host, port
}

func RandomString(length int) string {
	b := make([]byte, length+2)
	rand.Read(b)
	return fmt.Sprintf("%x", b)[2 : length+2]
}

func RandomPortNumber() int {
	return 10000 + mathrand.Intn(50000)
}
