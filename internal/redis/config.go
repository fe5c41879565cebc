package redis

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// go-redis reserves -1 (block) and -2 (no deadline) for read and write timeouts.
const noDeadline time.Duration = -2

var (
	ErrInvalidConfig  = errors.New("invalid redis config")
	ErrInvalidOptions = errors.New("invalid redis options")
)

// Mode is the connectivity topology selected for a RedisConfig.
type Mode int

const (
	ModeStandalone Mode = iota
	ModeSentinel
	ModeCluster
)

func (m Mode) String() string {
	switch m {
	case ModeStandalone:
		return "standalone"
	case ModeSentinel:
		return "sentinel"
	case ModeCluster:
		return "cluster"
	}
	return "unknown"
}

// Node is a single host/port pair of a cluster seed list or sentinel list.
type Node struct {
	Host string
	Port int
}

func (n Node) Addr() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

// Options holds driver settings applied on top of the connection fields.
//
// Password and DB only replace RedisConfig.Password and RedisConfig.Database
// when Override is set.
type Options struct {
	Username   string
	ClientName string

	MaxRetries   int
	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration

	TLSEnabled            bool
	TLSInsecureSkipVerify bool

	SentinelUsername string
	SentinelPassword string

	RouteByLatency bool
	RouteRandomly  bool
	ReadOnly       bool

	Password string
	DB       *int
	Override bool
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Password     string
	Database     int
	URL          string
	ClusterNodes []Node
	Sentinels    []Node
	// Name is the sentinel master group name.
	Name    string
	Options Options
}

// Mode reports the topology the config resolves to. Cluster nodes win over
// sentinels, and sentinels are only honoured together with a master name.
func (c *RedisConfig) Mode() Mode {
	if len(c.ClusterNodes) > 0 {
		return ModeCluster
	}
	if len(c.Sentinels) > 0 && c.Name != "" {
		return ModeSentinel
	}
	return ModeStandalone
}

// credentials are the password and database after merging Options.
type credentials struct {
	password string
	db       int
}

// MergeOptions resolves the effective password and database and validates
// the driver settings.
func (c *RedisConfig) MergeOptions() (password string, db int, err error) {
	creds, err := c.merge()
	if err != nil {
		return "", 0, err
	}
	return creds.password, creds.db, nil
}

func (c *RedisConfig) merge() (credentials, error) {
	creds := credentials{
		password: c.Password,
		db:       c.Database,
	}

	o := c.Options
	if o.Override {
		if o.Password != "" {
			creds.password = o.Password
		}
		if o.DB != nil {
			creds.db = *o.DB
		}
	}

	if creds.db < 0 {
		return credentials{}, fmt.Errorf("%w: db must not be negative, got %d", ErrInvalidOptions, creds.db)
	}
	if o.MaxRetries < -1 {
		return credentials{}, fmt.Errorf("%w: max_retries must be -1 or greater, got %d", ErrInvalidOptions, o.MaxRetries)
	}
	if o.PoolSize < 0 || o.MinIdleConns < 0 {
		return credentials{}, fmt.Errorf("%w: pool sizes must not be negative", ErrInvalidOptions)
	}
	if o.DialTimeout < 0 || o.PoolTimeout < 0 {
		return credentials{}, fmt.Errorf("%w: dial and pool timeouts must not be negative", ErrInvalidOptions)
	}
	if o.ReadTimeout < noDeadline || o.WriteTimeout < noDeadline {
		return credentials{}, fmt.Errorf("%w: read and write timeouts must be -2 or greater", ErrInvalidOptions)
	}
	return creds, nil
}

func addrs(nodes []Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Addr())
	}
	return out
}
