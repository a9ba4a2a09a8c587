package app

import (
	"log/slog"
	"time"

	"github.com/Proton-105/usermgmt/internal/lifecycle"
)

// Default shutdown hooks, in execution order.
const (
	HookLogStatistics    = "LogStatistics"
	HookHTTPServer       = "HTTPServer"
	HookCacheCleanup     = "CacheCleanup"
	HookSchedulerCleanup = "SchedulerCleanup"
	HookTaskQueueCleanup = "TaskQueueCleanup"
	HookSentryFlush      = "SentryFlush"
)

const (
	PriorityLogStatistics    = 1
	PriorityHTTPServer       = 3
	PriorityCacheCleanup     = 5
	PrioritySchedulerCleanup = 7
	PriorityTaskQueueCleanup = 8
	PrioritySentryFlush      = 50
)

// ResourceDefaultDB names the primary PostgreSQL pool in the core resource set.
const ResourceDefaultDB = "default"

// statsSource is the part of the coordinator logStatistics reads.
type statsSource interface {
	Hooks() []lifecycle.HookInfo
	Resources() []string
}

func logStatistics(log *slog.Logger, src statsSource, startedAt, now time.Time) {
	log.Info("shutdown statistics",
		slog.Time("shutdown_time", now),
		slog.Duration("uptime", now.Sub(startedAt).Round(time.Second)),
		slog.Int("registered_hooks", len(src.Hooks())),
		slog.Any("resources", src.Resources()),
	)
}
