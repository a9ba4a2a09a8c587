package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/usermgmt/pkg/config"
)

const (
	TaskTypeDailyReport     = "report:daily"
	TaskTypeCleanupInactive = "users:cleanup_inactive"
	TaskTypeBackupReminder  = "reminder:backup"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues is the weighted queue set processed by the worker.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

type DailyReportPayload struct {
	Day time.Time `json:"day"`
}

type CleanupInactivePayload struct {
	DryRun bool `json:"dry_run"`
}

// RedisOpt converts cfg into the asynq connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
}

func NewDailyReportTask(day time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(DailyReportPayload{Day: day})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeDailyReport, payload, asynq.Queue(QueueDefault)), nil
}

func NewCleanupInactiveTask(dryRun bool) (*asynq.Task, error) {
	payload, err := json.Marshal(CleanupInactivePayload{DryRun: dryRun})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeCleanupInactive, payload, asynq.Queue(QueueLow)), nil
}

func NewBackupReminderTask() *asynq.Task {
	return asynq.NewTask(TaskTypeBackupReminder, nil, asynq.Queue(QueueLow), asynq.MaxRetry(0))
}

// NewTaskByName builds the task for a short CLI name: report, cleanup or reminder.
func NewTaskByName(name string, now time.Time) (*asynq.Task, error) {
	switch name {
	case "report":
		return NewDailyReportTask(now)
	case "cleanup":
		return NewCleanupInactiveTask(false)
	case "reminder":
		return NewBackupReminderTask(), nil
	default:
		return nil, fmt.Errorf("unknown task %q", name)
	}
}
