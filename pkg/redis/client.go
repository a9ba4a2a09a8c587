// Package redis connects to Redis and exposes the key/value operations the
// user cache needs.
package redis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/usermgmt/pkg/config"
)

// Client is a go-redis client whose keys live under a fixed prefix.
// The embedded client still answers Ping for health checks.
type Client struct {
	*redis.Client

	prefix string
	closed atomic.Bool
}

// Options converts cfg into go-redis options.
func Options(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	if cfg.IdleTimeout > 0 {
		opts.ConnMaxIdleTime = cfg.IdleTimeout
	}
	return opts
}

// New dials Redis and fails unless the server answers PING.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(Options(cfg))
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	return &Client{Client: rdb, prefix: cfg.KeyPrefix}, nil
}

// Key returns the namespaced form of key.
func (c *Client) Key(key string) string {
	return c.prefix + key
}

// Get returns the value under key, or redis.Nil when it is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, c.Key(key)).Result()
}

// Set stores value under key for ttl. A zero ttl keeps the key forever.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, c.Key(key), value, ttl).Err()
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.Client.Del(ctx, c.Key(key)).Err()
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Close releases the connection pool. Only the first call closes it.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.Client.Close()
}
