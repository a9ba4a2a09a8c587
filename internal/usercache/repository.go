package usercache

import (
	"context"
	"log/slog"

	"github.com/Proton-105/usermgmt/internal/domain"
	"github.com/Proton-105/usermgmt/internal/repository"
)

// Repository is a read-through cache in front of a UserRepository. Counts
// always go to the database.
type Repository struct {
	repository.UserRepository
	cache *Cache
	log   *slog.Logger
}

var _ repository.UserRepository = (*Repository)(nil)

// NewRepository wraps next with cache.
func NewRepository(next repository.UserRepository, cache *Cache, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.Default()
	}

	return &Repository{UserRepository: next, cache: cache, log: log}
}

// FindByID serves the user from cache when present and populates it on a miss.
// Cache failures are logged and fall back to the database.
func (r *Repository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	cached, err := r.cache.Get(ctx, id)
	if err != nil {
		r.log.Warn("user cache read failed", slog.Int64("user_id", id), slog.Any("error", err))
	}
	if cached != nil {
		return cached, nil
	}

	user, err := r.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, user); err != nil {
		r.log.Warn("user cache write failed", slog.Int64("user_id", id), slog.Any("error", err))
	}

	return user, nil
}

// Create persists user and primes the cache with the stored row.
func (r *Repository) Create(ctx context.Context, user *domain.User) error {
	if err := r.UserRepository.Create(ctx, user); err != nil {
		return err
	}

	if err := r.cache.Set(ctx, user); err != nil {
		r.log.Warn("user cache write failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	return nil
}
