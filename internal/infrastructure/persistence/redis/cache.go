// Package redis implements Redis-backed local state for ClassTrack clients.
//
// Key components:
//   - Cache: the connection, opened with a retried ping
//   - SessionStore: the logged-in user's session, one key per field
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/classtrack/classtrack/pkg/retry"
)

// ErrCacheConnection is returned when the initial ping fails.
var ErrCacheConnection = errors.New("cache: connection failed")

// PrefixSession namespaces session keys.
const PrefixSession = "session:"

// TTLSessionData is the default session lifetime.
const TTLSessionData = 24 * time.Hour

// Config holds the connection settings. DB selects the logical database
// (0-15).
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a local single-node setup sized for a CLI.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     4,
		MinIdleConns: 0,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

// Cache owns the Redis client.
type Cache struct {
	client redis.UniversalClient
}

// NewCache connects to Redis. The initial ping is retried with r; r may
// be nil for a single attempt.
func NewCache(ctx context.Context, cfg Config, r *retry.Retrier) (*Cache, error) {
	client := redis.NewClient(cfg.options())

	if r == nil {
		r = retry.New(retry.WithMaxAttempts(1))
	}
	err := r.Do(ctx, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrCacheConnection, cfg.Addr(), err)
	}

	return &Cache{client: client}, nil
}

// NewCacheFromClient wraps an existing client.
func NewCacheFromClient(client redis.UniversalClient) *Cache {
	return &Cache{client: client}
}

// Client returns the underlying client.
func (c *Cache) Client() redis.UniversalClient {
	return c.client
}

// Close closes the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Delete removes keys; no keys is a no-op.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
