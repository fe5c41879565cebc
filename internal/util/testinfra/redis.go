package testinfra

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

const maxRedisDBs = 16

// RedisConfig is a test database on a shared server.
type RedisConfig struct {
	Addr string
	DB   int
}

func (c RedisConfig) Host() string {
	host, _, _ := net.SplitHostPort(c.Addr)
	return host
}

func (c RedisConfig) Port() int {
	_, port, _ := net.SplitHostPort(c.Addr)
	n, _ := strconv.Atoi(port)
	return n
}

// redisServer is one Redis-compatible server shared by every test in the
// package. Tests isolate themselves by database number.
type redisServer struct {
	name  string
	image string
	// addr returns the externally provided address, if any.
	addr func(cfg *Config) *string

	once sync.Once
	mu   sync.Mutex
	used [maxRedisDBs]bool
}

var (
	redisStack = &redisServer{
		name:  "redis",
		image: "redis/redis-stack-server:latest",
		addr:  func(cfg *Config) *string { return &cfg.RedisURL },
	}
	dragonfly = &redisServer{
		name:  "dragonfly",
		image: "docker.dragonflydb.io/dragonflydb/dragonfly:latest",
		addr:  func(cfg *Config) *string { return &cfg.DragonflyURL },
	}
)

// NewRedisConfig allocates a database on the Redis server. It is flushed
// on cleanup.
func NewRedisConfig(t *testing.T) RedisConfig {
	return redisStack.allocate(t)
}

// NewDragonflyConfig allocates a database on the Dragonfly server. It is
// flushed on cleanup.
func NewDragonflyConfig(t *testing.T) RedisConfig {
	return dragonfly.allocate(t)
}

func (s *redisServer) allocate(t *testing.T) RedisConfig {
	cfg := ReadConfig()
	addr := s.addr(cfg)
	if *addr == "" {
		s.once.Do(func() { s.start(cfg, addr) })
	}

	db := s.claim()
	t.Cleanup(func() {
		flushDB(*addr, db)
		s.release(db)
	})
	return RedisConfig{Addr: *addr, DB: db}
}

func (s *redisServer) claim() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.used {
		if !s.used[i] {
			s.used[i] = true
			return i
		}
	}
	panic(fmt.Sprintf("%s: no available databases (max %d)", s.name, maxRedisDBs))
}

func (s *redisServer) release(db int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used[db] = false
}

func (s *redisServer) start(cfg *Config, addr *string) {
	ctx := context.Background()

	container, err := redis.Run(ctx, s.image)
	if err != nil {
		panic(err)
	}
	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		panic(err)
	}

	log.Printf("%s running at %s", s.name, endpoint)
	*addr = endpoint
	cfg.cleanupFns = append(cfg.cleanupFns, func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("failed to terminate %s container: %s", s.name, err)
		}
	})
}

func flushDB(addr string, db int) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, DB: db})
	defer client.Close()

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		log.Printf("failed to flush db %d at %s: %s", db, addr, err)
	}
}
