package redis

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	goredis "github.com/redis/go-redis/v9"
)

const (
	outcomeOK    = "ok"
	outcomeMiss  = "miss"
	outcomeError = "error"
)

var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_commands_total",
			Help: "Redis commands issued by the cache, by command and outcome (ok, miss, error).",
		},
		[]string{"command", "outcome"},
	)
	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_command_duration_seconds",
			Help:    "Latency of Redis commands issued by the cache.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"command"},
	)
)

// MetricsClient records a command counter and latency for every cache
// operation it forwards to Client.
type MetricsClient struct {
	next *Client
}

func NewMetricsClient(next *Client) *MetricsClient {
	return &MetricsClient{next: next}
}

func (m *MetricsClient) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	val, err := m.next.Get(ctx, key)
	record("get", start, err)
	return val, err
}

func (m *MetricsClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	err := m.next.Set(ctx, key, value, ttl)
	record("set", start, err)
	return err
}

func (m *MetricsClient) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := m.next.Delete(ctx, key)
	record("del", start, err)
	return err
}

func (m *MetricsClient) HealthCheck(ctx context.Context) error {
	return m.next.HealthCheck(ctx)
}

func (m *MetricsClient) Close() error {
	return m.next.Close()
}

func record(command string, start time.Time, err error) {
	commandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())

	outcome := outcomeOK
	switch {
	case errors.Is(err, goredis.Nil):
		outcome = outcomeMiss
	case err != nil:
		outcome = outcomeError
	}
	commandsTotal.WithLabelValues(command, outcome).Inc()
}
