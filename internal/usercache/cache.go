// Package usercache keeps user rows in Redis in front of the repository.
package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/usermgmt/internal/domain"
)

const keyPrefix = "user:"

// Store is the key/value surface of pkg/redis the cache relies on.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Cache stores JSON-encoded users under "user:<id>" with a fixed TTL.
// A nil *Cache is a valid cache that never hits.
type Cache struct {
	store Store
	ttl   time.Duration
}

func NewCache(store Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.store != nil
}

// Get returns the cached user, or nil on a miss. An entry that no longer
// decodes is evicted and treated as a miss.
func (c *Cache) Get(ctx context.Context, userID int64) (*domain.User, error) {
	if !c.enabled() {
		return nil, nil
	}

	key := cacheKey(userID)
	raw, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	user := new(domain.User)
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		if delErr := c.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("evict undecodable %s: %w", key, delErr)
		}
		return nil, nil
	}

	return user, nil
}

func (c *Cache) Set(ctx context.Context, user *domain.User) error {
	if !c.enabled() || user == nil {
		return nil
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user %d: %w", user.ID, err)
	}

	key := cacheKey(user.ID)
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	if !c.enabled() {
		return nil
	}

	key := cacheKey(userID)
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close releases the Redis connection pool behind the cache.
func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.store.Close()
}

func cacheKey(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}
