package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/usermgmt/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := New(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)

	return client, mr
}

func TestNew_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), config.RedisConfig{Addr: addr, MaxRetries: -1})
	assert.Error(t, err)
}

func TestMetricsClient_RoundTrip(t *testing.T) {
	client, mr := newTestClient(t)
	m := NewMetricsClient(client)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "user:1", "alice", time.Minute))
	assert.True(t, mr.Exists("user:1"))

	got, err := m.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	misses := testutil.ToFloat64(commandsTotal.WithLabelValues("get", outcomeMiss))
	require.NoError(t, m.Delete(ctx, "user:1"))
	_, err = m.Get(ctx, "user:1")
	assert.ErrorIs(t, err, goredis.Nil)
	assert.Equal(t, misses+1, testutil.ToFloat64(commandsTotal.WithLabelValues("get", outcomeMiss)))

	assert.NoError(t, m.HealthCheck(ctx))
	assert.NoError(t, m.Close())
	assert.Error(t, m.HealthCheck(ctx))
}

func TestClient_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "usermgmt:"})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "user:1", "alice", 0))
	assert.True(t, mr.Exists("usermgmt:user:1"))
	assert.False(t, mr.Exists("user:1"))

	got, err := client.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestClient_CloseTwice(t *testing.T) {
	client, _ := newTestClient(t)

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}
