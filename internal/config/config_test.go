package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/hookdeck/redishook/internal/config"
	"github.com/hookdeck/redishook/internal/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOS struct {
	files   map[string][]byte
	envVars map[string]string
}

func newMockOS() *mockOS {
	return &mockOS{
		files:   make(map[string][]byte),
		envVars: make(map[string]string),
	}
}

func (m *mockOS) Getenv(key string) string {
	return m.envVars[key]
}

func (m *mockOS) Environ() map[string]string {
	return m.envVars
}

func (m *mockOS) Stat(name string) (os.FileInfo, error) {
	if _, ok := m.files[name]; ok {
		return nil, nil
	}
	return nil, os.ErrNotExist
}

func (m *mockOS) ReadFile(name string) ([]byte, error) {
	if data, ok := m.files[name]; ok {
		return data, nil
	}
	return nil, os.ErrNotExist
}

func TestDefaultValues(t *testing.T) {
	cfg, err := config.ParseWithOS(config.Flags{}, newMockOS())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 3333, cfg.APIPort)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
	assert.Empty(t, cfg.ConfigFilePath())
	assert.True(t, cfg.IsValidated())

	require.NotNil(t, cfg.Redis)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "127.0.0.1", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, -1, cfg.Redis.Options.DB)
	assert.Equal(t, redis.ModeStandalone, cfg.Redis.Mode())
	assert.Nil(t, cfg.OpenTelemetry.ToConfig())
}

func TestYAMLConfig(t *testing.T) {
	mockOS := newMockOS()
	mockOS.files[".redishook.yaml"] = []byte(`
log_level: debug
api_port: 4000
redis:
  password: top
  db: 2
  cluster_nodes:
    - a:7000
    - host: b
      port: 7001
  options:
    pool_size: 20
    dial_timeout: 3s
    route_by_latency: true
`)

	cfg, err := config.ParseWithOS(config.Flags{}, mockOS)
	require.NoError(t, err)

	assert.Equal(t, ".redishook.yaml", cfg.ConfigFilePath())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4000, cfg.APIPort)

	assert.True(t, cfg.Redis.Enabled, "defaults survive a partial redis section")
	assert.Equal(t, config.NodeList{{Host: "a", Port: 7000}, {Host: "b", Port: 7001}}, cfg.Redis.ClusterNodes)
	assert.Equal(t, 20, cfg.Redis.Options.PoolSize)
	assert.Equal(t, 3*time.Second, cfg.Redis.Options.DialTimeout)
	assert.Equal(t, -1, cfg.Redis.Options.DB)
	assert.Equal(t, redis.ModeCluster, cfg.Redis.Mode())

	redisConfig := cfg.Redis.ToConfig()
	assert.Equal(t, []redis.Node{{Host: "a", Port: 7000}, {Host: "b", Port: 7001}}, redisConfig.ClusterNodes)
	assert.Equal(t, "top", redisConfig.Password)
	assert.True(t, redisConfig.Options.RouteByLatency)
	assert.Nil(t, redisConfig.Options.DB)
}

func TestYAMLConfig_Sentinel(t *testing.T) {
	mockOS := newMockOS()
	mockOS.files["config.yaml"] = []byte(`
redis:
  sentinels: ["s1:26379", "s2:26379"]
  name: mymaster
  db: 2
  options:
    db: 4
    override: true
`)

	cfg, err := config.ParseWithOS(config.Flags{Config: "config.yaml"}, mockOS)
	require.NoError(t, err)

	assert.Equal(t, redis.ModeSentinel, cfg.Redis.Mode())
	redisConfig := cfg.Redis.ToConfig()
	require.NotNil(t, redisConfig.Options.DB)
	assert.Equal(t, 4, *redisConfig.Options.DB)

	_, db, err := redisConfig.MergeOptions()
	require.NoError(t, err)
	assert.Equal(t, 4, db)
}

func TestEnvOverridesYAML(t *testing.T) {
	mockOS := newMockOS()
	mockOS.files[".redishook.yaml"] = []byte(`
redis:
  host: from-yaml
  port: 6380
`)
	mockOS.envVars["REDIS_HOST"] = "from-env"
	mockOS.envVars["REDIS_ENABLED"] = "false"
	mockOS.envVars["REDIS_OPTIONS_POOL_SIZE"] = "7"
	mockOS.envVars["REDIS_OPTIONS_READ_TIMEOUT"] = "-1ns"

	cfg, err := config.ParseWithOS(config.Flags{}, mockOS)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 7, cfg.Redis.Options.PoolSize)
	assert.Equal(t, time.Duration(-1), cfg.Redis.Options.ReadTimeout)
}

func TestEnvNodeLists(t *testing.T) {
	mockOS := newMockOS()
	mockOS.envVars["REDIS_SENTINELS"] = "s1:26379, s2:26380"
	mockOS.envVars["REDIS_SENTINEL_NAME"] = "mymaster"

	cfg, err := config.ParseWithOS(config.Flags{}, mockOS)
	require.NoError(t, err)

	assert.Equal(t, []string{"s1:26379", "s2:26380"}, cfg.Redis.Sentinels.Strings())
	assert.Equal(t, redis.ModeSentinel, cfg.Redis.Mode())
}

func TestDotEnvFile(t *testing.T) {
	mockOS := newMockOS()
	mockOS.files["/config/redishook/.env"] = []byte(`
REDIS_URL=redis://:secret@cache:6379/1
API_PORT=8080
`)

	cfg, err := config.ParseWithOS(config.Flags{}, mockOS)
	require.NoError(t, err)

	assert.Equal(t, "/config/redishook/.env", cfg.ConfigFilePath())
	assert.Equal(t, "redis://:secret@cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, 8080, cfg.APIPort)
}

func TestUnixSocketURL(t *testing.T) {
	mockOS := newMockOS()
	mockOS.envVars["REDIS_URL"] = "unix:///tmp/redis.sock?db=1"

	cfg, err := config.ParseWithOS(config.Flags{}, mockOS)
	require.NoError(t, err)
	assert.Equal(t, "unix:///tmp/redis.sock?db=1", cfg.Redis.URL)

	for _, valid := range []string{"rediss://cache:6380/2", "redis://"} {
		mockOS.envVars["REDIS_URL"] = valid
		_, err := config.ParseWithOS(config.Flags{}, mockOS)
		assert.NoError(t, err, valid)
	}
}

func TestConfigPathFromEnv(t *testing.T) {
	mockOS := newMockOS()
	mockOS.files["custom.yaml"] = []byte("api_port: 5000\n")
	mockOS.envVars["CONFIG"] = "custom.yaml"

	cfg, err := config.ParseWithOS(config.Flags{}, mockOS)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.APIPort)
}

func TestConflictingConfigPaths(t *testing.T) {
	mockOS := newMockOS()
	mockOS.envVars["CONFIG"] = "a.yaml"

	_, err := config.ParseWithOS(config.Flags{Config: "b.yaml"}, mockOS)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting config paths")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := config.ParseWithOS(config.Flags{Config: "missing.yaml"}, newMockOS())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInvalidNode(t *testing.T) {
	mockOS := newMockOS()
	mockOS.envVars["REDIS_CLUSTER_NODES"] = "a:7000,not-a-node"

	_, err := config.ParseWithOS(config.Flags{}, mockOS)
	require.Error(t, err)
}

func TestParseNode(t *testing.T) {
	node, err := config.ParseNode(" cache.local:7000 ")
	require.NoError(t, err)
	assert.Equal(t, config.NodeConfig{Host: "cache.local", Port: 7000}, node)
	assert.Equal(t, "cache.local:7000", node.String())

	_, err = config.ParseNode("cache.local")
	assert.Error(t, err)

	_, err = config.ParseNode("cache.local:port")
	assert.Error(t, err)
}

func TestOpenTelemetryConfig(t *testing.T) {
	mockOS := newMockOS()
	mockOS.envVars["OTEL_SERVICE_NAME"] = "svc"
	mockOS.envVars["OTEL_TRACES_ENABLED"] = "true"

	cfg, err := config.ParseWithOS(config.Flags{}, mockOS)
	require.NoError(t, err)

	otelConfig := cfg.OpenTelemetry.ToConfig()
	require.NotNil(t, otelConfig)
	assert.Equal(t, "svc", otelConfig.ServiceName)
	assert.Equal(t, "otlp", otelConfig.Exporter)
	assert.Equal(t, "grpc", otelConfig.Protocol)
	assert.True(t, otelConfig.Traces)
	assert.False(t, otelConfig.Metrics)
}
