package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

type BackupReminderHandler struct {
	log *slog.Logger
}

func NewBackupReminderHandler(log *slog.Logger) *BackupReminderHandler {
	return &BackupReminderHandler{log: log}
}

func (h *BackupReminderHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	return instrumented(func(ctx context.Context, t *asynq.Task) error {
		taskLogger(h.log, t).InfoContext(ctx, "reminder: verify that the database backup completed")
		return nil
	})(ctx, t)
}
