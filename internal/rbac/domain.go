package rbac

import (
	"context"
	"time"
)

// Well-known role ids of the marketplace seed data.
const (
	RoleCustomer   int64 = 2
	RoleAdmin      int64 = 4
	RoleSuperadmin int64 = 5
)

// Role represents a marketplace role.
type Role struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// RoleStore resolves a user's role from durable storage.
type RoleStore interface {
	FindRole(ctx context.Context, userID int64) (int64, error)
}

// RoleSource resolves the current role of an authenticated user.
type RoleSource interface {
	RoleOf(ctx context.Context, userID int64) (int64, error)
}
