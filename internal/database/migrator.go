// Package database provides the PostgreSQL connection and schema migrations.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
)

const (
	upSuffix = ".up.sql"

	createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
	selectApplied  = `SELECT name FROM schema_migrations`
	insertMigrated = `INSERT INTO schema_migrations (name) VALUES ($1)`
)

// Migrator applies *.up.sql files in lexical order. Each file runs in its
// own transaction together with its schema_migrations row, so a rerun
// resumes after the last committed file.
type Migrator struct {
	db  *sql.DB
	log *slog.Logger
}

func NewMigrator(db *sql.DB, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}
	return &Migrator{db: db, log: log.With(slog.String("component", "migrator"))}
}

// ApplyDir applies the pending migrations stored in dir.
func (m *Migrator) ApplyDir(ctx context.Context, dir string) error {
	if err := m.ApplyFS(ctx, os.DirFS(dir)); err != nil {
		return fmt.Errorf("migrations in %q: %w", dir, err)
	}
	return nil
}

// ApplyFS applies the pending migrations at the root of fsys.
func (m *Migrator) ApplyFS(ctx context.Context, fsys fs.FS) error {
	names, err := ListMigrations(fsys, ".")
	if err != nil {
		return err
	}
	if len(names) == 0 {
		m.log.Info("no migrations found")
		return nil
	}

	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	pending := pendingMigrations(names, applied)
	for _, name := range pending {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := m.apply(ctx, name, string(body)); err != nil {
			return err
		}
	}

	m.log.Info("schema up to date", slog.Int("applied", len(pending)), slog.Int("known", len(names)))
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, selectApplied)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		done[name] = true
	}
	return done, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, name, body string) (err error) {
	log := m.log.With(slog.String("migration", name))

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", name, err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error("rollback failed", slog.Any("error", rbErr))
		}
	}()

	if stmt := strings.TrimSpace(body); stmt != "" {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute %s: %w", name, err)
		}
	} else {
		log.Warn("empty migration recorded without executing")
	}

	if _, err = tx.ExecContext(ctx, insertMigrated, name); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}

	log.Info("migration applied")
	return nil
}

// pendingMigrations keeps the names not yet in applied, preserving order.
func pendingMigrations(names []string, applied map[string]bool) []string {
	var out []string
	for _, name := range names {
		if !applied[name] {
			out = append(out, name)
		}
	}
	return out
}

func isUpMigration(name string) bool {
	return strings.HasSuffix(name, upSuffix)
}

// ListMigrations returns the *.up.sql files directly under root, sorted.
func ListMigrations(fsys fs.FS, root string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && isUpMigration(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
