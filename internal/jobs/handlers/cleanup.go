package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/usermgmt/internal/jobs"
)

type CleanupInactiveHandler struct {
	users UserCounter
	log   *slog.Logger
}

func NewCleanupInactiveHandler(users UserCounter, log *slog.Logger) *CleanupInactiveHandler {
	return &CleanupInactiveHandler{users: users, log: log}
}

// ProcessTask reports how many inactive accounts are eligible for cleanup.
// Accounts are never deleted here.
func (h *CleanupInactiveHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	return instrumented(h.process)(ctx, t)
}

func (h *CleanupInactiveHandler) process(ctx context.Context, t *asynq.Task) error {
	log := taskLogger(h.log, t)

	var payload jobs.CleanupInactivePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			log.ErrorContext(ctx, "cleanup: failed to decode payload", slog.Any("error", err))
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	inactive, err := h.users.CountByActive(ctx, false)
	if err != nil {
		return fmt.Errorf("count inactive users: %w", err)
	}

	log.InfoContext(ctx, "inactive users found",
		slog.Int64("inactive_users", inactive),
		slog.Bool("dry_run", payload.DryRun),
	)

	return nil
}
