// Package repository implements PostgreSQL-backed persistence for users.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/usermgmt/internal/domain"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	CountAll(ctx context.Context) (int64, error)
	CountByActive(ctx context.Context, active bool) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	if log == nil {
		log = slog.Default()
	}

	return &userRepository{
		db:  db,
		log: log,
	}
}

// FindByID retrieves a user by primary key. sql.ErrNoRows is returned unwrapped when absent.
func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
		SELECT id, username, email, name, phone, address, is_active, created_at, updated_at
		FROM t_users
		WHERE id = $1
	`

	var (
		user                 domain.User
		name, phone, address sql.NullString
	)

	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&name,
		&phone,
		&address,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}

		r.log.Error("failed to fetch user by id", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("select user by id: %w", err)
	}

	user.Name = name.String
	user.Phone = phone.String
	user.Address = address.String

	return &user, nil
}

// Create persists a new user and fills in the generated id and timestamps.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO t_users (username, email, name, phone, address, is_active)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING id, created_at, updated_at
	`

	r.log.Info("creating new user", slog.String("username", user.Username))

	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Name,
		user.Phone,
		user.Address,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		r.log.Error("failed to create user", slog.String("username", user.Username), slog.Any("error", err))
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// CountAll returns the number of users.
func (r *userRepository) CountAll(ctx context.Context) (int64, error) {
	return r.count(ctx, "count_all", `SELECT COUNT(*) FROM t_users`)
}

// CountByActive returns the number of active or inactive users.
func (r *userRepository) CountByActive(ctx context.Context, active bool) (int64, error) {
	return r.count(ctx, "count_by_active", `SELECT COUNT(*) FROM t_users WHERE is_active = $1`, active)
}

// CountCreatedSince returns the number of users created at or after since.
func (r *userRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	return r.count(ctx, "count_created_since", `SELECT COUNT(*) FROM t_users WHERE created_at >= $1`, since)
}

func (r *userRepository) count(ctx context.Context, op, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		r.log.Error("failed to count users", slog.String("operation", op), slog.Any("error", err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}
