package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestChecker_Check(t *testing.T) {
	c := NewChecker(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.AddCheck("ok", checkFunc(func(context.Context) error { return nil }))
	c.AddCheck("broken", checkFunc(func(context.Context) error { return errors.New("down") }))
	c.AddCheck("", checkFunc(func(context.Context) error { return nil }))
	c.AddCheck("nil", nil)

	assert.Equal(t, []string{"broken", "ok"}, c.Components())

	results := c.Check(context.Background())
	assert.Equal(t, map[string]string{"ok": StatusOK, "broken": "down"}, results)
	assert.False(t, Healthy(results))
	assert.True(t, Healthy(map[string]string{"ok": StatusOK}))

	assert.Equal(t, float64(1), testutil.ToFloat64(componentUp.WithLabelValues("ok")))
	assert.Equal(t, float64(0), testutil.ToFloat64(componentUp.WithLabelValues("broken")))
}

func TestChecker_RunsConcurrently(t *testing.T) {
	c := NewChecker(nil)

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)
	for _, name := range []string{"a", "b"} {
		c.AddCheck(name, checkFunc(func(context.Context) error {
			started.Done()
			<-release
			return nil
		}))
	}

	go func() {
		started.Wait()
		close(release)
	}()

	assert.True(t, Healthy(c.Check(context.Background())))
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checker := NewRedisChecker(client)
	require.NoError(t, checker.HealthCheck(context.Background()))

	mr.SetError("LOADING")
	assert.Error(t, checker.HealthCheck(context.Background()))
}

func TestNilCheckers(t *testing.T) {
	var db *DBChecker
	var rc *RedisChecker

	assert.Error(t, db.HealthCheck(context.Background()))
	assert.ErrorIs(t, rc.HealthCheck(context.Background()), redis.ErrClosed)
	assert.Error(t, NewDBChecker(nil).HealthCheck(context.Background()))
}
