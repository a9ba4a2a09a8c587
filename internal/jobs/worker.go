package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	apperrors "github.com/Proton-105/usermgmt/internal/errors"
)

// Reporter receives tasks that failed their last attempt.
type Reporter interface {
	Report(ctx context.Context, err error)
}

// Worker processes queued tasks until Shutdown.
type Worker interface {
	RegisterHandler(taskType string, handler asynq.Handler)
	Start() error
	Shutdown()
}

type worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

var _ Worker = (*worker)(nil)

// NewWorker builds an asynq-backed Worker. reporter may be nil.
func NewWorker(redisOpt asynq.RedisConnOpt, queues map[string]int, concurrency int, log *slog.Logger, reporter Reporter) Worker {
	if log == nil {
		log = slog.Default()
	}

	w := &worker{
		mux: asynq.NewServeMux(),
		log: log.With(slog.String("component", "jobs_worker")),
	}
	w.server = asynq.NewServer(redisOpt, asynq.Config{
		Queues:          queues,
		Concurrency:     concurrency,
		ShutdownTimeout: 8 * time.Second,
		Logger:          newAsynqLogger(w.log),
		ErrorHandler:    asynq.ErrorHandlerFunc(w.taskFailed(reporter)),
	})

	return w
}

func (w *worker) taskFailed(reporter Reporter) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		w.log.WarnContext(ctx, "task attempt failed",
			slog.String("task_type", task.Type()),
			slog.Int("retried", retried),
			slog.Int("max_retry", maxRetry),
			slog.Any("error", err),
		)

		if reporter != nil && retried >= maxRetry {
			reporter.Report(ctx, apperrors.NewTaskError(task.Type(), err))
		}
	}
}

func (w *worker) RegisterHandler(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

// Start processes tasks in the background. Run is not used because it
// installs its own SIGINT/SIGTERM handling.
func (w *worker) Start() error {
	w.log.Info("starting task processing")
	return w.server.Start(w.mux)
}

// Shutdown stops fetching tasks and waits for active ones.
func (w *worker) Shutdown() {
	w.log.Info("stopping task processing")
	w.server.Shutdown()
}
