package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusOK     = "ok"
	statusFailed = "failed"
	// statusDisposeFailed: Close succeeded, Dispose of the pool failed.
	statusDisposeFailed = "dispose_failed"
)

var (
	hooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shutdown_hooks_total",
			Help: "Shutdown hook executions labeled by hook and status",
		},
		[]string{"hook", "status"},
	)
	hookDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shutdown_hook_duration_seconds",
			Help:    "Duration of shutdown hooks in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"hook"},
	)
	resourceClosesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shutdown_resource_closes_total",
			Help: "Core resource closes during shutdown labeled by resource and status (ok, failed, or dispose_failed when the close succeeded but disposing the pool did not)",
		},
		[]string{"resource", "status"},
	)
	shutdownInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shutdown_in_progress",
			Help: "Set to 1 once the shutdown sequence has started",
		},
	)
)
