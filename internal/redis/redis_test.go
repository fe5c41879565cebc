package redis_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hookdeck/redishook/internal/redis"
	"github.com/hookdeck/redishook/internal/util/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStandaloneConfig(t *testing.T) (*redis.RedisConfig, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	port, _ := strconv.Atoi(mr.Port())
	return &redis.RedisConfig{
		Enabled: true,
		Host:    mr.Host(),
		Port:    port,
	}, mr
}

func newHandle(t *testing.T, config *redis.RedisConfig, opts ...redis.Option) *redis.Handle {
	handle, err := redis.New(config, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = handle.Disconnect()
	})
	return handle
}

func TestNew_Cluster(t *testing.T) {
	t.Parallel()

	handle := newHandle(t, &redis.RedisConfig{
		Enabled:      true,
		ClusterNodes: []redis.Node{{Host: "a", Port: 7000}, {Host: "b", Port: 7001}},
		Password:     "p",
		Database:     4,
		Options:      redis.Options{RouteByLatency: true},
	})

	assert.Equal(t, redis.ModeCluster, handle.Mode())
	client, ok := handle.Client.(*goredis.ClusterClient)
	require.True(t, ok, "expected a cluster client, got %T", handle.Client)

	options := client.Options()
	assert.Equal(t, []string{"a:7000", "b:7001"}, options.Addrs)
	assert.Equal(t, "p", options.Password)
	assert.True(t, options.RouteByLatency)
}

func TestNew_Sentinel(t *testing.T) {
	t.Parallel()

	handle := newHandle(t, &redis.RedisConfig{
		Enabled:   true,
		Sentinels: []redis.Node{{Host: "s1", Port: 26379}},
		Name:      "mymaster",
		Database:  2,
		Password:  "secret",
	})

	assert.Equal(t, redis.ModeSentinel, handle.Mode())
	client, ok := handle.Client.(*goredis.Client)
	require.True(t, ok, "expected a failover client, got %T", handle.Client)
	assert.Equal(t, 2, client.Options().DB)
	assert.Equal(t, "secret", client.Options().Password)
}

func TestNew_StandaloneDiscreteFields(t *testing.T) {
	t.Parallel()

	handle := newHandle(t, &redis.RedisConfig{
		Enabled:  true,
		Host:     "localhost",
		Port:     6380,
		Password: "pw",
		Database: 7,
		Options:  redis.Options{PoolSize: 3, Username: "user"},
	})

	assert.Equal(t, redis.ModeStandalone, handle.Mode())
	client, ok := handle.Client.(*goredis.Client)
	require.True(t, ok)
	options := client.Options()
	assert.Equal(t, "localhost:6380", options.Addr)
	assert.Equal(t, "pw", options.Password)
	assert.Equal(t, 7, options.DB)
	assert.Equal(t, 3, options.PoolSize)
	assert.Equal(t, "user", options.Username)
}

func TestNew_StandaloneURLWinsOverDiscreteFields(t *testing.T) {
	t.Parallel()

	handle := newHandle(t, &redis.RedisConfig{
		Enabled:  true,
		URL:      "redis://h:6379/1",
		Host:     "ignored",
		Port:     1234,
		Database: 5,
		Password: "ignored",
	})

	client, ok := handle.Client.(*goredis.Client)
	require.True(t, ok)
	options := client.Options()
	assert.Equal(t, "h:6379", options.Addr)
	assert.Equal(t, 1, options.DB)
	assert.Empty(t, options.Password)
}

func TestNew_StandaloneURLWithOverride(t *testing.T) {
	t.Parallel()

	handle := newHandle(t, &redis.RedisConfig{
		Enabled: true,
		URL:     "redis://:urlpw@h:6379/1",
		Options: redis.Options{Password: "opt", DB: intPtr(9), Override: true},
	})

	options := handle.Client.(*goredis.Client).Options()
	assert.Equal(t, "opt", options.Password)
	assert.Equal(t, 9, options.DB)
}

func TestNew_UnixSocketURL(t *testing.T) {
	t.Parallel()

	handle := newHandle(t, &redis.RedisConfig{Enabled: true, URL: "unix:///tmp/redis.sock?db=1"})
	options := handle.Client.(*goredis.Client).Options()
	assert.Equal(t, "unix", options.Network)
	assert.Equal(t, "/tmp/redis.sock", options.Addr)
	assert.Equal(t, 1, options.DB)
}

func TestNew_ConstructionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config *redis.RedisConfig
	}{
		{"nil config", nil},
		{"invalid url", &redis.RedisConfig{Enabled: true, URL: "http://not-redis"}},
		{"missing host", &redis.RedisConfig{Enabled: true}},
		{"cluster node without host", &redis.RedisConfig{Enabled: true, ClusterNodes: []redis.Node{{Port: 7000}}}},
		{"sentinel without host", &redis.RedisConfig{Enabled: true, Sentinels: []redis.Node{{Port: 26379}}, Name: "mymaster"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handle, err := redis.New(tt.config)
			assert.ErrorIs(t, err, redis.ErrInvalidConfig)
			assert.Nil(t, handle)
		})
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := redis.New(&redis.RedisConfig{
		Enabled: true,
		Host:    "localhost",
		Port:    6379,
		Options: redis.Options{PoolSize: -1},
	})
	assert.ErrorIs(t, err, redis.ErrInvalidOptions)
}

func TestNew_WithInstrumentation(t *testing.T) {
	t.Parallel()

	config, _ := newStandaloneConfig(t)
	handle := newHandle(t, config, redis.WithInstrumentation(true, true))

	require.NoError(t, handle.Set(context.Background(), "k", "v", 0).Err())
}

func TestHandle_ConnectAndCommands(t *testing.T) {
	t.Parallel()

	config, mr := newStandaloneConfig(t)
	handle := newHandle(t, config)

	result := handle.Connect(context.Background())
	assert.True(t, result.Connected)
	assert.NoError(t, result.Err)
	assert.Equal(t, redis.ModeStandalone, result.Mode)

	require.NoError(t, handle.Set(context.Background(), "greeting", "hello", 0).Err())
	got, err := mr.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = handle.Get(context.Background(), "missing").Result()
	assert.ErrorIs(t, err, redis.Nil)
}

func TestHandle_DisconnectIsIdempotent(t *testing.T) {
	t.Parallel()

	config, _ := newStandaloneConfig(t)
	handle, err := redis.New(config)
	require.NoError(t, err)

	assert.NoError(t, handle.Disconnect())
	assert.NoError(t, handle.Disconnect())
	assert.Error(t, handle.Ping(context.Background()).Err())
}

type recordingObserver struct {
	mu       sync.Mutex
	connects []string
	errs     []error
}

func (o *recordingObserver) OnConnect(ctx context.Context, addr string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connects = append(o.connects, addr)
}

func (o *recordingObserver) OnError(ctx context.Context, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) snapshot() ([]string, []error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.connects...), append([]error(nil), o.errs...)
}

func TestObserver_OnConnect(t *testing.T) {
	t.Parallel()

	config, mr := newStandaloneConfig(t)
	observer := &recordingObserver{}
	handle := newHandle(t, config, redis.WithObserver(observer))

	result := handle.Connect(context.Background())
	require.True(t, result.Connected)

	connects, errs := observer.snapshot()
	require.NotEmpty(t, connects)
	assert.Equal(t, mr.Addr(), connects[0])
	assert.Empty(t, errs)
}

func TestObserver_OnErrorWhenUnreachable(t *testing.T) {
	t.Parallel()

	host, port := testutil.UnusedAddr(t)
	observer := &recordingObserver{}
	handle := newHandle(t, &redis.RedisConfig{
		Enabled: true,
		Host:    host,
		Port:    port,
		Options: redis.Options{MaxRetries: -1, DialTimeout: 500 * time.Millisecond},
	}, redis.WithObserver(observer))

	result := handle.Connect(context.Background())
	assert.False(t, result.Connected)
	assert.Error(t, result.Err)

	connects, errs := observer.snapshot()
	assert.Empty(t, connects)
	require.Len(t, errs, 1, "a failed dial is reported once: %v", errs)
	assert.Contains(t, errs[0].Error(), "dial")
}

func TestObserver_SentinelDialReportsMasterName(t *testing.T) {
	t.Parallel()

	host, port := testutil.UnusedAddr(t)
	observer := &recordingObserver{}
	handle := newHandle(t, &redis.RedisConfig{
		Enabled:   true,
		Sentinels: []redis.Node{{Host: host, Port: port}},
		Name:      "mymaster",
		Options:   redis.Options{MaxRetries: -1, DialTimeout: 500 * time.Millisecond},
	}, redis.WithObserver(observer))

	result := handle.Connect(context.Background())
	assert.False(t, result.Connected)

	_, errs := observer.snapshot()
	require.Len(t, errs, 1, "a failed dial is reported once: %v", errs)
	assert.Contains(t, errs[0].Error(), "dial mymaster")
	assert.NotContains(t, errs[0].Error(), "FailoverClient")
}

func TestObserver_MissingKeyIsNotAnError(t *testing.T) {
	t.Parallel()

	config, _ := newStandaloneConfig(t)
	observer := &recordingObserver{}
	handle := newHandle(t, config, redis.WithObserver(observer))

	_, err := handle.Get(context.Background(), "missing").Result()
	require.ErrorIs(t, err, redis.Nil)

	_, errs := observer.snapshot()
	assert.Empty(t, errs)
}

func TestObserverFuncs(t *testing.T) {
	t.Parallel()

	var connected string
	var failed error
	observers := redis.Observers{
		redis.ObserverFuncs{},
		redis.ObserverFuncs{
			Connect: func(ctx context.Context, addr string) { connected = addr },
			Error:   func(ctx context.Context, err error) { failed = err },
		},
	}

	errBoom := errors.New("boom")
	observers.OnConnect(context.Background(), "a:1")
	observers.OnError(context.Background(), errBoom)

	assert.Equal(t, "a:1", connected)
	assert.Equal(t, errBoom, failed)
}

func TestIsConnectionError(t *testing.T) {
	t.Parallel()

	assert.False(t, redis.IsConnectionError(nil))
	assert.False(t, redis.IsConnectionError(redis.Nil))
	assert.False(t, redis.IsConnectionError(goredis.TxFailedErr))
	assert.False(t, redis.IsConnectionError(context.Canceled))
	assert.False(t, redis.IsConnectionError(context.DeadlineExceeded))
	assert.True(t, redis.IsConnectionError(errors.New("dial tcp 127.0.0.1:1: connect: connection refused")))
	assert.True(t, redis.IsConnectionError(goredis.ErrClosed))
}

func TestIsConnectionError_ServerReplies(t *testing.T) {
	t.Parallel()

	client, mr := testutil.CreateTestRedisClient(t)
	ctx := context.Background()

	err := client.Do(ctx, "NOSUCHCOMMAND").Err()
	require.Error(t, err)
	assert.False(t, redis.IsConnectionError(err), "command errors are not connection errors: %v", err)

	mr.RequireAuth("secret")
	client2 := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client2.Close() })
	err = client2.Get(ctx, "k").Err()
	require.Error(t, err)
	assert.True(t, redis.IsConnectionError(err), "auth errors are connection errors: %v", err)
}
