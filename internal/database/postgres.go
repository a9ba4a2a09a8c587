package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	apperrors "github.com/Proton-105/usermgmt/internal/errors"
	"github.com/Proton-105/usermgmt/pkg/config"
)

// Open connects to PostgreSQL and waits for it to answer a ping, retrying
// transient failures.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (*sql.DB, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	err = apperrors.WithRetry(ctx, apperrors.StartupBackoff, func() error {
		if pingErr := db.PingContext(ctx); pingErr != nil {
			log.Warn("database not reachable yet", slog.String("host", cfg.Database.Host), slog.Any("error", pingErr))
			return apperrors.NewDatabaseError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database connection established",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
	)

	return db, nil
}
