// Package app wires the service's dependencies and their shutdown hooks.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/viper"

	"github.com/Proton-105/usermgmt/internal/database"
	apperrors "github.com/Proton-105/usermgmt/internal/errors"
	"github.com/Proton-105/usermgmt/internal/health"
	"github.com/Proton-105/usermgmt/internal/httpapi"
	"github.com/Proton-105/usermgmt/internal/jobs"
	"github.com/Proton-105/usermgmt/internal/jobs/handlers"
	"github.com/Proton-105/usermgmt/internal/lifecycle"
	"github.com/Proton-105/usermgmt/internal/repository"
	"github.com/Proton-105/usermgmt/internal/usercache"
	"github.com/Proton-105/usermgmt/pkg/config"
	"github.com/Proton-105/usermgmt/pkg/graceful"
	"github.com/Proton-105/usermgmt/pkg/logger"
	"github.com/Proton-105/usermgmt/pkg/metrics"
	"github.com/Proton-105/usermgmt/pkg/redis"
)

const userMetricsInterval = time.Minute

// App owns the process-wide resources and the shutdown coordinator that
// releases them.
type App struct {
	cfg   *config.Config
	v     *viper.Viper
	log   *logger.Logger
	coord *lifecycle.Coordinator

	reporter  *apperrors.Handler
	db        *sql.DB
	redis     *redis.Client
	cache     *usercache.Cache
	users     repository.UserRepository
	startedAt time.Time
}

// New connects to PostgreSQL and Redis and registers the hooks every
// command needs: cache cleanup, Sentry flush and the "default" database
// pool as a core resource. If a connection fails, whatever was opened so far
// is released before the error is returned.
func New(ctx context.Context, cfg *config.Config, v *viper.Viper, log *logger.Logger) (*App, error) {
	if cfg.Sentry.Enabled {
		if err := apperrors.InitSentry(apperrors.SentryOptions{
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
			Release:     cfg.App.Version,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			return nil, err
		}
	}

	reporter := apperrors.NewHandler(log.Logger, cfg.Sentry.Enabled)
	coord := lifecycle.NewCoordinator(log.Logger,
		lifecycle.WithHookTimeout(cfg.Shutdown.HookTimeout),
		lifecycle.WithReporter(reporter),
	)

	a := &App{
		cfg:       cfg,
		v:         v,
		log:       log,
		coord:     coord,
		reporter:  reporter,
		startedAt: time.Now(),
	}

	if cfg.Sentry.Enabled {
		coord.RegisterErrFunc(HookSentryFlush, PrioritySentryFlush, func() error {
			return apperrors.FlushSentry(cfg.Sentry.FlushTimeout)
		})
	}

	db, err := database.Open(ctx, *cfg, log.Logger)
	if err != nil {
		coord.Execute()
		return nil, err
	}
	coord.AddResource(ResourceDefaultDB, db)
	a.db = db

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		coord.Execute()
		return nil, err
	}
	a.redis = rc
	a.cache = usercache.NewCache(redis.NewMetricsClient(rc), cfg.Redis.CacheTTL)
	coord.RegisterCloser(HookCacheCleanup, PriorityCacheCleanup, a.cache)
	a.users = usercache.NewRepository(repository.NewUserRepository(db, log.Logger), a.cache, log.Logger)

	return a, nil
}

// Coordinator returns the shutdown coordinator owned by a.
func (a *App) Coordinator() *lifecycle.Coordinator {
	return a.coord
}

// Close runs the shutdown sequence for commands that do not install the
// signal trigger.
func (a *App) Close() {
	a.coord.Execute()
	a.coord.Wait()
}

// Serve runs the HTTP API and the periodic task scheduler until shutdown.
func (a *App) Serve(ctx context.Context) error {
	log := a.log.Logger

	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(a.db))
	checker.AddCheck("redis", health.NewRedisChecker(a.redis))

	router := httpapi.NewRouter(log, lifecycle.NewProbes(log, a.coord), checker)
	srv := graceful.NewServer(log, &http.Server{
		Addr:         net.JoinHostPort("", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}, a.cfg.Server.ShutdownTimeout)

	scheduler := jobs.NewScheduler(jobs.RedisOpt(a.cfg.Redis), a.cfg.Jobs, log)
	if err := scheduler.RegisterTasks(); err != nil {
		return fmt.Errorf("register scheduled tasks: %w", err)
	}

	a.registerLogStatistics()
	a.coord.Register(func() {
		cancelServe()
		<-srv.Stopped()
	}, HookHTTPServer, PriorityHTTPServer)
	a.coord.Register(scheduler.Shutdown, HookSchedulerCleanup, PrioritySchedulerCleanup)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(serveCtx)
	}()
	go metrics.NewUserCollector(a.users, log, userMetricsInterval).Run(serveCtx)

	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	a.watchConfig()
	a.coord.Install()

	log.Info("usermgmt serving", slog.String("port", a.cfg.Server.Port))

	select {
	case err := <-serveErr:
		return err
	case <-a.coord.Done():
		return nil
	}
}

// Work processes background tasks until shutdown.
func (a *App) Work(ctx context.Context) error {
	log := a.log.Logger

	worker := jobs.NewWorker(jobs.RedisOpt(a.cfg.Redis), jobs.Queues, a.cfg.Jobs.Concurrency, log, a.reporter)
	worker.RegisterHandler(jobs.TaskTypeDailyReport, handlers.NewDailyReportHandler(a.users, log))
	worker.RegisterHandler(jobs.TaskTypeCleanupInactive, handlers.NewCleanupInactiveHandler(a.users, log))
	worker.RegisterHandler(jobs.TaskTypeBackupReminder, handlers.NewBackupReminderHandler(log))

	a.registerLogStatistics()
	a.coord.Register(worker.Shutdown, HookTaskQueueCleanup, PriorityTaskQueueCleanup)

	if err := worker.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	a.watchConfig()
	a.coord.Install()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.coord.Done():
		return nil
	}
}

// Migrate applies pending schema migrations.
func (a *App) Migrate(ctx context.Context) error {
	return database.NewMigrator(a.db, a.log.Logger).ApplyDir(ctx, a.cfg.Database.MigrationsDir)
}

// Enqueue submits the named task for immediate processing.
func (a *App) Enqueue(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	task, err := jobs.NewTaskByName(name, time.Now())
	if err != nil {
		return nil, err
	}

	manager := jobs.NewManager(jobs.RedisOpt(a.cfg.Redis), a.log.Logger)
	a.coord.RegisterCloser(HookTaskQueueCleanup, PriorityTaskQueueCleanup, manager)

	return manager.Enqueue(ctx, task)
}

func (a *App) registerLogStatistics() {
	a.coord.Register(func() {
		logStatistics(a.log.Logger, a.coord, a.startedAt, time.Now())
	}, HookLogStatistics, PriorityLogStatistics)
}

func (a *App) watchConfig() {
	config.Watch(a.v, a.cfg, a.log.Logger, func(next *config.Config) {
		if next.Logger.Level != a.cfg.Logger.Level {
			a.log.SetLevel(next.Logger.Level)
			a.log.Info("log level changed", slog.String("level", next.Logger.Level))
		}
	})
}
