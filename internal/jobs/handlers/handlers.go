// Package handlers implements the asynq task handlers.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/usermgmt/pkg/metrics"
)

// UserCounter is the subset of the user repository the handlers read from.
type UserCounter interface {
	CountAll(ctx context.Context) (int64, error)
	CountByActive(ctx context.Context, active bool) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

// instrumented wraps h so every run is recorded in the job metrics.
func instrumented(h asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := h(ctx, t)

		status := "success"
		if err != nil {
			status = "failed"
		}
		metrics.RecordJob(t.Type(), status, time.Since(start))

		return err
	}
}

func taskLogger(log *slog.Logger, t *asynq.Task) *slog.Logger {
	if log == nil {
		log = slog.Default()
	}

	return log.With(slog.String("task_type", t.Type()))
}
