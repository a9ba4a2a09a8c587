package usercache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/usermgmt/internal/domain"
	"github.com/Proton-105/usermgmt/pkg/config"
	"github.com/Proton-105/usermgmt/pkg/redis"
)

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redis.New(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)

	return NewCache(redis.NewMetricsClient(client), time.Minute), mr
}

func TestCache_SetGetInvalidate(t *testing.T) {
	cache, mr := newCache(t)
	ctx := context.Background()

	user := &domain.User{ID: 42, Username: "alice", Email: "alice@example.com", IsActive: true}
	require.NoError(t, cache.Set(ctx, user))
	assert.True(t, mr.Exists("user:42"))
	assert.Equal(t, time.Minute, mr.TTL("user:42"))

	got, err := cache.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.IsActive)

	require.NoError(t, cache.Invalidate(ctx, 42))
	got, err = cache.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_Miss(t *testing.T) {
	cache, _ := newCache(t)

	got, err := cache.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_CorruptEntry(t *testing.T) {
	cache, mr := newCache(t)
	require.NoError(t, mr.Set("user:9", "not-json"))

	got, err := cache.Get(context.Background(), 9)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("user:9"))
}

func TestCache_Close(t *testing.T) {
	cache, _ := newCache(t)

	require.NoError(t, cache.Close())
	_, err := cache.Get(context.Background(), 1)
	assert.Error(t, err)
}

func TestCache_NilSafe(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	got, err := cache.Get(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, cache.Set(ctx, &domain.User{ID: 1}))
	assert.NoError(t, cache.Invalidate(ctx, 1))
	assert.NoError(t, cache.Close())
}
