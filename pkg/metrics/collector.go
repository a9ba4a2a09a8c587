// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Total number of background tasks processed labeled by type and status",
		},
		[]string{"task_type", "status"},
	)
	jobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Duration of background tasks in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	usersByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "users_by_status",
			Help: "Number of users per account status",
		},
		[]string{"status"},
	)
)

// RecordJob increments task counters and records duration.
func RecordJob(taskType, status string, duration time.Duration) {
	if taskType == "" {
		taskType = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	jobsProcessedTotal.WithLabelValues(taskType, status).Inc()
	jobDurationSeconds.WithLabelValues(taskType).Observe(duration.Seconds())
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// SetUsers updates the per-status user gauges.
func SetUsers(active, inactive int64) {
	usersByStatus.WithLabelValues("active").Set(float64(active))
	usersByStatus.WithLabelValues("inactive").Set(float64(inactive))
}

// UserCounter is the subset of the user repository the collector needs.
type UserCounter interface {
	CountByActive(ctx context.Context, active bool) (int64, error)
}

// UserCollector periodically gathers user counts and emits gauge metrics.
type UserCollector struct {
	users    UserCounter
	log      *slog.Logger
	interval time.Duration
}

// NewUserCollector builds a collector bound to users.
func NewUserCollector(users UserCounter, log *slog.Logger, interval time.Duration) *UserCollector {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &UserCollector{users: users, log: log, interval: interval}
}

// Run polls user counts every interval until ctx is cancelled.
func (c *UserCollector) Run(ctx context.Context) {
	if c == nil || c.users == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.collect(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("user metrics collection failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			c.log.Info("user metrics collector stopped")
			return
		case <-ticker.C:
		}
	}
}

func (c *UserCollector) collect(ctx context.Context) error {
	active, err := c.users.CountByActive(ctx, true)
	if err != nil {
		return err
	}

	inactive, err := c.users.CountByActive(ctx, false)
	if err != nil {
		return err
	}

	SetUsers(active, inactive)
	return nil
}
