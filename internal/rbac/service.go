package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/b2bmarket/marketplace/internal/shared"
)

// ErrUnknownUser indicates the session references a missing or inactive user.
var ErrUnknownUser = shared.NewError(shared.ErrUnauthorized, "user not found or inactive")

// Service resolves roles through a short-lived Redis cache in front of the store.
type Service struct {
	store  RoleStore
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service. A nil cache disables caching.
func NewService(store RoleStore, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, ttl: ttl, logger: logger}
}

// RoleOf returns the role of userID. Concurrent lookups for the same user share one store query.
func (s *Service) RoleOf(ctx context.Context, userID int64) (int64, error) {
	key := cacheKey(userID)
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Result()
		switch {
		case err == nil:
			if role, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil {
				return role, nil
			}
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("rbac cache get", slog.Any("error", err))
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		role, err := s.store.FindRole(ctx, userID)
		if err != nil {
			return int64(0), err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, strconv.FormatInt(role, 10), s.ttl).Err(); err != nil {
				s.logger.Warn("rbac cache set", slog.Any("error", err))
			}
		}
		return role, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Invalidate drops the cached role of userID.
func (s *Service) Invalidate(ctx context.Context, userID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, cacheKey(userID)).Err()
}

func cacheKey(userID int64) string {
	return "rbac:role:" + strconv.FormatInt(userID, 10)
}

// PGRoleStore reads roles from the users table.
type PGRoleStore struct {
	pool *pgxpool.Pool
}

// NewRoleStore constructs a PostgreSQL role store.
func NewRoleStore(pool *pgxpool.Pool) *PGRoleStore {
	return &PGRoleStore{pool: pool}
}

// FindRole returns the role of an active user.
func (r *PGRoleStore) FindRole(ctx context.Context, userID int64) (int64, error) {
	var role int64
	err := r.pool.QueryRow(ctx, `SELECT role_id FROM users WHERE user_id = $1 AND is_active`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUnknownUser
		}
		return 0, fmt.Errorf("find role: %w", err)
	}
	return role, nil
}

var (
	_ RoleStore  = (*PGRoleStore)(nil)
	_ RoleSource = (*Service)(nil)
)
