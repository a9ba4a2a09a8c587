package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/usermgmt/internal/domain"
	"github.com/Proton-105/usermgmt/internal/jobs"
)

type DailyReportHandler struct {
	users UserCounter
	log   *slog.Logger
	now   func() time.Time
}

func NewDailyReportHandler(users UserCounter, log *slog.Logger) *DailyReportHandler {
	return &DailyReportHandler{users: users, log: log, now: time.Now}
}

func (h *DailyReportHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	return instrumented(h.process)(ctx, t)
}

func (h *DailyReportHandler) process(ctx context.Context, t *asynq.Task) error {
	log := taskLogger(h.log, t)

	var payload jobs.DailyReportPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			log.ErrorContext(ctx, "daily report: failed to decode payload", slog.Any("error", err))
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	day := payload.Day
	if day.IsZero() {
		day = h.now()
	}

	stats, err := h.collect(ctx, startOfDay(day))
	if err != nil {
		return fmt.Errorf("collect user stats: %w", err)
	}

	log.InfoContext(ctx, "daily report generated",
		slog.String("day", day.Format(time.DateOnly)),
		slog.Int64("total_users", stats.Total),
		slog.Int64("active_users", stats.Active),
		slog.Int64("inactive_users", stats.Inactive),
		slog.Int64("new_users_today", stats.NewToday),
	)

	return nil
}

func (h *DailyReportHandler) collect(ctx context.Context, since time.Time) (domain.UserStats, error) {
	var (
		stats domain.UserStats
		err   error
	)

	if stats.Total, err = h.users.CountAll(ctx); err != nil {
		return stats, err
	}
	if stats.Active, err = h.users.CountByActive(ctx, true); err != nil {
		return stats, err
	}
	if stats.Inactive, err = h.users.CountByActive(ctx, false); err != nil {
		return stats, err
	}
	if stats.NewToday, err = h.users.CountCreatedSince(ctx, since); err != nil {
		return stats, err
	}

	return stats, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
