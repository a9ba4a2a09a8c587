package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/usermgmt/pkg/config"
)

// Scheduler enqueues periodic tasks on their cron specs.
type Scheduler interface {
	RegisterTasks() error
	Start() error
	Shutdown()
}

type scheduler struct {
	inner *asynq.Scheduler
	cfg   config.JobsConfig
	log   *slog.Logger
}

func NewScheduler(redisOpt asynq.RedisConnOpt, cfg config.JobsConfig, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "jobs_scheduler"))

	return &scheduler{
		inner: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
			Location: time.UTC,
			Logger:   newAsynqLogger(log),
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if err != nil {
					log.Error("periodic enqueue failed", slog.Any("error", err))
					return
				}
				log.Debug("periodic task enqueued", slog.String("task_type", info.Type), slog.String("task_id", info.ID))
			},
		}),
		cfg: cfg,
		log: log,
	}
}

type periodicTask struct {
	cron string
	task *asynq.Task
}

// periodicTasks pairs each cron expression from cfg with its task. A zero report
// day is resolved to the processing day by the handler.
func periodicTasks(cfg config.JobsConfig) ([]periodicTask, error) {
	report, err := NewDailyReportTask(time.Time{})
	if err != nil {
		return nil, err
	}
	cleanup, err := NewCleanupInactiveTask(false)
	if err != nil {
		return nil, err
	}

	return []periodicTask{
		{cron: cfg.DailyReportCron, task: report},
		{cron: cfg.InactiveCleanupCron, task: cleanup},
		{cron: cfg.BackupReminderCron, task: NewBackupReminderTask()},
	}, nil
}

func (s *scheduler) RegisterTasks() error {
	tasks, err := periodicTasks(s.cfg)
	if err != nil {
		return err
	}

	for _, pt := range tasks {
		id, err := s.inner.Register(pt.cron, pt.task)
		if err != nil {
			return fmt.Errorf("schedule %s at %q: %w", pt.task.Type(), pt.cron, err)
		}
		s.log.Info("periodic task registered",
			slog.String("task_type", pt.task.Type()),
			slog.String("cron", pt.cron),
			slog.String("entry_id", id),
		)
	}

	return nil
}

// Start runs the scheduler in the background without installing signal
// handlers.
func (s *scheduler) Start() error {
	s.log.Info("starting scheduler")
	return s.inner.Start()
}

func (s *scheduler) Shutdown() {
	s.log.Info("stopping scheduler")
	s.inner.Shutdown()
}
