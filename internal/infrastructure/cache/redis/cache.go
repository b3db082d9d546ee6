// Package redis is the Redis backend for the external session store. Values are
// sealed session documents keyed by session id.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultConnectTimeout bounds the startup ping.
const DefaultConnectTimeout = 5 * time.Second

// Config holds the Redis connection used for session documents.
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	// DefaultTTL applies when a write passes no TTL. The session store always
	// passes the inactivity timeout.
	DefaultTTL     time.Duration
	ConnectTimeout time.Duration
}

// Cache implements cache.Cache on a single Redis client.
type Cache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewCache connects and pings once, so a misconfigured session backend fails
// at startup rather than on the first message.
func NewCache(cfg Config) (*Cache, error) {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis session backend at %s: %w", addr, err)
	}

	return &Cache{client: client, defaultTTL: cfg.DefaultTTL}, nil
}

// Get returns nil, nil when the session key is absent or has expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("session cache read %s: %w", key, err)
	}
	return val, nil
}

// Set writes a session document and resets its expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("session cache write %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("session cache delete %s: %w", key, err)
	}
	return n > 0, nil
}

// Ping backs the readiness check for the redis session store.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("session cache unreachable: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("closing session cache: %w", err)
	}
	return nil
}
