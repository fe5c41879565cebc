package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/redis/go-redis/extra/redisotel/v9"
	r "github.com/redis/go-redis/v9"
)

// Reexport go-redis's Nil constant for DX purposes.
const (
	Nil = r.Nil
)

// Client is the mode-independent client surface shared by the standalone,
// failover and cluster clients.
type Client = r.UniversalClient

// Handle owns a constructed client for its lifetime.
type Handle struct {
	Client

	mode Mode

	disconnectOnce sync.Once
	disconnectErr  error
}

// Mode returns the topology the handle was constructed for.
func (h *Handle) Mode() Mode {
	return h.mode
}

// Disconnect closes the underlying client. Only the first call closes;
// later calls return the first result.
func (h *Handle) Disconnect() error {
	h.disconnectOnce.Do(func() {
		h.disconnectErr = h.Client.Close()
	})
	return h.disconnectErr
}

// ConnectResult is the outcome of the initial round trip to the server.
type ConnectResult struct {
	Mode      Mode
	Connected bool
	Err       error
}

// Connect issues a PING. A failure is reported in the result and to the
// observers but leaves the handle usable; go-redis reconnects on demand.
func (h *Handle) Connect(ctx context.Context) ConnectResult {
	result := ConnectResult{Mode: h.mode}
	if err := h.Client.Ping(ctx).Err(); err != nil {
		result.Err = err
		return result
	}
	result.Connected = true
	return result
}

type newOptions struct {
	observer Observer
	tracing  bool
	metrics  bool
}

type Option func(o *newOptions)

// WithObserver attaches lifecycle callbacks to the client before New returns.
func WithObserver(observer Observer) Option {
	return func(o *newOptions) {
		o.observer = observer
	}
}

// WithInstrumentation enables OpenTelemetry tracing and metrics on the client.
func WithInstrumentation(tracing, metrics bool) Option {
	return func(o *newOptions) {
		o.tracing = tracing
		o.metrics = metrics
	}
}

// New constructs a client for the mode the config resolves to. It does not
// wait for a connection; use Handle.Connect for that. Errors returned here
// are construction errors: a malformed URL or invalid options.
func New(config *RedisConfig, opts ...Option) (*Handle, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	option := &newOptions{}
	for _, opt := range opts {
		opt(option)
	}

	creds, err := config.merge()
	if err != nil {
		return nil, err
	}

	handle := &Handle{mode: config.Mode()}
	dialed := &dialErrors{}
	switch handle.mode {
	case ModeCluster:
		client, err := createClusterClient(config, creds)
		if err != nil {
			return nil, err
		}
		if option.observer != nil {
			// Dials happen on the per-node clients, commands on the cluster client.
			client.OnNewNode(func(node *r.Client) {
				node.AddHook(&lifecycleHook{observer: option.observer, dial: true, dialed: dialed})
			})
			client.AddHook(&lifecycleHook{observer: option.observer, process: true, dialed: dialed})
		}
		handle.Client = client
	case ModeSentinel:
		client, err := createSentinelClient(config, creds)
		if err != nil {
			return nil, err
		}
		handle.Client = client
	default:
		client, err := createStandaloneClient(config, creds)
		if err != nil {
			return nil, err
		}
		handle.Client = client
	}

	if option.observer != nil && handle.mode != ModeCluster {
		hook := &lifecycleHook{observer: option.observer, dial: true, process: true, dialed: dialed}
		if handle.mode == ModeSentinel {
			hook.label = config.Name
		}
		handle.Client.AddHook(hook)
	}

	if err := instrumentOpenTelemetry(handle.Client, option); err != nil {
		_ = handle.Client.Close()
		return nil, fmt.Errorf("redis instrumentation failed: %w", err)
	}

	return handle, nil
}

// Cluster mode has no database selector, so creds.db is never used here.
func createClusterClient(config *RedisConfig, creds credentials) (*r.ClusterClient, error) {
	for _, n := range config.ClusterNodes {
		if n.Host == "" {
			return nil, fmt.Errorf("%w: cluster node without host", ErrInvalidConfig)
		}
	}

	o := config.Options
	options := &r.ClusterOptions{
		Addrs:          addrs(config.ClusterNodes),
		Username:       o.Username,
		Password:       creds.password,
		ClientName:     o.ClientName,
		MaxRetries:     o.MaxRetries,
		PoolSize:       o.PoolSize,
		MinIdleConns:   o.MinIdleConns,
		DialTimeout:    o.DialTimeout,
		ReadTimeout:    o.ReadTimeout,
		WriteTimeout:   o.WriteTimeout,
		PoolTimeout:    o.PoolTimeout,
		ReadOnly:       o.ReadOnly,
		RouteByLatency: o.RouteByLatency,
		RouteRandomly:  o.RouteRandomly,
		TLSConfig:      tlsConfig(o),
	}

	return r.NewClusterClient(options), nil
}

func createSentinelClient(config *RedisConfig, creds credentials) (*r.Client, error) {
	for _, n := range config.Sentinels {
		if n.Host == "" {
			return nil, fmt.Errorf("%w: sentinel without host", ErrInvalidConfig)
		}
	}

	o := config.Options
	options := &r.FailoverOptions{
		MasterName:       config.Name,
		SentinelAddrs:    addrs(config.Sentinels),
		SentinelUsername: o.SentinelUsername,
		SentinelPassword: o.SentinelPassword,
		ReplicaOnly:      o.ReadOnly,
		Username:         o.Username,
		Password:         creds.password,
		DB:               creds.db,
		ClientName:       o.ClientName,
		MaxRetries:       o.MaxRetries,
		PoolSize:         o.PoolSize,
		MinIdleConns:     o.MinIdleConns,
		DialTimeout:      o.DialTimeout,
		ReadTimeout:      o.ReadTimeout,
		WriteTimeout:     o.WriteTimeout,
		PoolTimeout:      o.PoolTimeout,
		TLSConfig:        tlsConfig(o),
	}

	return r.NewFailoverClient(options), nil
}

func createStandaloneClient(config *RedisConfig, creds credentials) (*r.Client, error) {
	if config.URL != "" {
		return createURLClient(config)
	}

	if config.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}

	options := &r.Options{
		Addr:     Node{Host: config.Host, Port: config.Port}.Addr(),
		Password: creds.password,
		DB:       creds.db,
	}
	applyOptions(options, config.Options)
	if options.TLSConfig == nil {
		options.TLSConfig = tlsConfig(config.Options)
	}

	return r.NewClient(options), nil
}

// createURLClient ignores the discrete host, port, password and database.
// Options still apply, and Options.Password/DB win only with Override.
func createURLClient(config *RedisConfig) (*r.Client, error) {
	options, err := r.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	o := config.Options
	applyOptions(options, o)
	if o.Override {
		if o.Password != "" {
			options.Password = o.Password
		}
		if o.DB != nil {
			options.DB = *o.DB
		}
	}
	if options.TLSConfig == nil {
		options.TLSConfig = tlsConfig(o)
	}

	return r.NewClient(options), nil
}

// applyOptions copies only the settings that are set, so values parsed from
// a URL survive.
func applyOptions(options *r.Options, o Options) {
	if o.Username != "" {
		options.Username = o.Username
	}
	if o.ClientName != "" {
		options.ClientName = o.ClientName
	}
	if o.MaxRetries != 0 {
		options.MaxRetries = o.MaxRetries
	}
	if o.PoolSize != 0 {
		options.PoolSize = o.PoolSize
	}
	if o.MinIdleConns != 0 {
		options.MinIdleConns = o.MinIdleConns
	}
	if o.DialTimeout != 0 {
		options.DialTimeout = o.DialTimeout
	}
	if o.ReadTimeout != 0 {
		options.ReadTimeout = o.ReadTimeout
	}
	if o.WriteTimeout != 0 {
		options.WriteTimeout = o.WriteTimeout
	}
	if o.PoolTimeout != 0 {
		options.PoolTimeout = o.PoolTimeout
	}
}

func tlsConfig(o Options) *tls.Config {
	if !o.TLSEnabled {
		return nil
	}
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: o.TLSInsecureSkipVerify,
	}
}

func instrumentOpenTelemetry(client Client, option *newOptions) error {
	if option.tracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			return err
		}
	}
	if option.metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			return err
		}
	}
	return nil
}
