package users

import (
	"context"
	"log/slog"

	"github.com/b2bmarket/marketplace/internal/shared"
)

// RoleCache drops cached role lookups after a change.
type RoleCache interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	roles  RoleCache
	policy shared.RolePolicy
	logger *slog.Logger
}

// NewService builds Service instance. roles may be nil.
func NewService(repo RepositoryPort, roles RoleCache, policy shared.RolePolicy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, roles: roles, policy: policy, logger: logger}
}

// ListUsers returns a page of users, optionally filtered by role.
func (s *Service) ListUsers(ctx context.Context, actor shared.Actor, roleID int64, page shared.PageRequest) (*ListResponse, error) {
	if !s.policy.IsSuperadmin(actor) {
		return nil, ErrForbiddenOps
	}
	users, total, err := s.repo.ListUsers(ctx, roleID, page)
	if err != nil {
		return nil, err
	}
	return &ListResponse{Users: users, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

// ListRoles returns the role catalogue.
func (s *Service) ListRoles(ctx context.Context, actor shared.Actor) ([]Role, error) {
	if !s.policy.IsSuperadmin(actor) {
		return nil, ErrForbiddenOps
	}
	return s.repo.ListRoles(ctx)
}

// Update changes a user's role or active flag and drops their cached role.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, req UpdateRequest) (*User, error) {
	if !s.policy.IsSuperadmin(actor) {
		return nil, ErrForbiddenOps
	}
	if req.RoleID == nil && req.IsActive == nil {
		return nil, ErrEmptyUpdate
	}
	if id == actor.UserID {
		if (req.RoleID != nil && *req.RoleID != actor.RoleID) || (req.IsActive != nil && !*req.IsActive) {
			return nil, ErrSelfLockout
		}
	}
	if req.RoleID != nil {
		ok, err := s.repo.RoleExists(ctx, *req.RoleID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrUnknownRole
		}
	}
	user, err := s.repo.Update(ctx, actor.UserID, id, req)
	if err != nil {
		return nil, err
	}
	if s.roles != nil {
		if err := s.roles.Invalidate(ctx, id); err != nil {
			s.logger.Warn("invalidate role cache", slog.Any("error", err), slog.Int64("user_id", id))
		}
	}
	s.logger.Info("user updated", slog.Int64("user_id", id), slog.Int64("actor_id", actor.UserID),
		slog.Int64("role_id", user.RoleID), slog.Bool("is_active", user.IsActive))
	return user, nil
}

// Deactivate soft-deletes a user. Their quotations and orders stay intact.
func (s *Service) Deactivate(ctx context.Context, actor shared.Actor, id int64) error {
	inactive := false
	_, err := s.Update(ctx, actor, id, UpdateRequest{IsActive: &inactive})
	return err
}
