package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hookdeck/redishook/internal/redis"
	"gopkg.in/yaml.v3"
)

// NodeConfig is a host/port pair. In YAML it is either a mapping
// ({host: a, port: 7000}) or a "host:port" string.
type NodeConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

func ParseNode(s string) (NodeConfig, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return NodeConfig{}, fmt.Errorf("invalid node %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("invalid node %q: bad port", s)
	}
	return NodeConfig{Host: host, Port: port}, nil
}

func (n *NodeConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		node, err := ParseNode(value.Value)
		if err != nil {
			return err
		}
		*n = node
		return nil
	}
	type plain NodeConfig
	return value.Decode((*plain)(n))
}

func (n NodeConfig) String() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

// NodeList parses "a:7000,b:7001" from environment variables.
type NodeList []NodeConfig

func (l *NodeList) UnmarshalText(text []byte) error {
	var nodes NodeList
	for _, part := range strings.Split(string(text), ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		node, err := ParseNode(part)
		if err != nil {
			return err
		}
		nodes = append(nodes, node)
	}
	*l = nodes
	return nil
}

func (l NodeList) Strings() []string {
	out := make([]string, 0, len(l))
	for _, n := range l {
		out = append(out, n.String())
	}
	return out
}

func (l NodeList) toNodes() []redis.Node {
	if len(l) == 0 {
		return nil
	}
	out := make([]redis.Node, 0, len(l))
	for _, n := range l {
		out = append(out, redis.Node{Host: n.Host, Port: n.Port})
	}
	return out
}

// RedisOptionsConfig holds driver settings. Password and DB replace the
// top-level fields only when Override is true; DB -1 means unset.
type RedisOptionsConfig struct {
	Username   string `yaml:"username" env:"USERNAME"`
	ClientName string `yaml:"client_name" env:"CLIENT_NAME"`

	MaxRetries   int `yaml:"max_retries" env:"MAX_RETRIES" validate:"min=-1"`
	PoolSize     int `yaml:"pool_size" env:"POOL_SIZE" validate:"min=0"`
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS" validate:"min=0"`

	DialTimeout  time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT" validate:"min=0"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" validate:"min=-2ns"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" validate:"min=-2ns"`
	PoolTimeout  time.Duration `yaml:"pool_timeout" env:"POOL_TIMEOUT" validate:"min=0"`

	TLSEnabled            bool `yaml:"tls" env:"TLS"`
	TLSInsecureSkipVerify bool `yaml:"tls_insecure_skip_verify" env:"TLS_INSECURE_SKIP_VERIFY"`

	SentinelUsername string `yaml:"sentinel_username" env:"SENTINEL_USERNAME"`
	SentinelPassword string `yaml:"sentinel_password" env:"SENTINEL_PASSWORD"`

	RouteByLatency bool `yaml:"route_by_latency" env:"ROUTE_BY_LATENCY"`
	RouteRandomly  bool `yaml:"route_randomly" env:"ROUTE_RANDOMLY"`
	ReadOnly       bool `yaml:"read_only" env:"READ_ONLY"`

	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB" validate:"min=-1"`
	Override bool   `yaml:"override" env:"OVERRIDE"`
}

// RedisConfig is the `redis` section of the config.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED"`
	Host     string `yaml:"host" env:"REDIS_HOST"`
	Port     int    `yaml:"port" env:"REDIS_PORT" validate:"min=0,max=65535"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" validate:"min=0"`
	URL      string `yaml:"url" env:"REDIS_URL" validate:"omitempty,redis_url"`

	ClusterNodes NodeList `yaml:"cluster_nodes" env:"REDIS_CLUSTER_NODES" validate:"dive"`
	Sentinels    NodeList `yaml:"sentinels" env:"REDIS_SENTINELS" validate:"dive"`
	// Name is the sentinel master group name.
	Name string `yaml:"name" env:"REDIS_SENTINEL_NAME"`

	Options RedisOptionsConfig `yaml:"options" envPrefix:"REDIS_OPTIONS_"`
}

func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Enabled: true,
		Host:    "127.0.0.1",
		Port:    6379,
		DB:      0,
		Options: RedisOptionsConfig{
			DB: -1,
		},
	}
}

// Mode is the topology ToConfig will resolve to.
func (c *RedisConfig) Mode() redis.Mode {
	return c.ToConfig().Mode()
}

func (c *RedisConfig) ToConfig() *redis.RedisConfig {
	o := c.Options
	options := redis.Options{
		Username:              o.Username,
		ClientName:            o.ClientName,
		MaxRetries:            o.MaxRetries,
		PoolSize:              o.PoolSize,
		MinIdleConns:          o.MinIdleConns,
		DialTimeout:           o.DialTimeout,
		ReadTimeout:           o.ReadTimeout,
		WriteTimeout:          o.WriteTimeout,
		PoolTimeout:           o.PoolTimeout,
		TLSEnabled:            o.TLSEnabled,
		TLSInsecureSkipVerify: o.TLSInsecureSkipVerify,
		SentinelUsername:      o.SentinelUsername,
		SentinelPassword:      o.SentinelPassword,
		RouteByLatency:        o.RouteByLatency,
		RouteRandomly:         o.RouteRandomly,
		ReadOnly:              o.ReadOnly,
		Password:              o.Password,
		Override:              o.Override,
	}
	if o.DB >= 0 {
		db := o.DB
		options.DB = &db
	}

	return &redis.RedisConfig{
		Enabled:      c.Enabled,
		Host:         c.Host,
		Port:         c.Port,
		Password:     c.Password,
		Database:     c.DB,
		URL:          c.URL,
		ClusterNodes: c.ClusterNodes.toNodes(),
		Sentinels:    c.Sentinels.toNodes(),
		Name:         c.Name,
		Options:      options,
	}
}
