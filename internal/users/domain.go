package users

import (
	"time"

	"github.com/b2bmarket/marketplace/internal/shared"
)

// User represents a user account for management.
type User struct {
	ID        int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	RoleID    int64     `json:"role_id"`
	RoleName  string    `json:"role_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role is an entry of the role catalogue.
type Role struct {
	ID   int64  `json:"role_id"`
	Name string `json:"name"`
}

// UpdateRequest changes the role or the active flag. Nil fields are left untouched.
type UpdateRequest struct {
	RoleID   *int64 `json:"role_id" validate:"omitempty,gt=0"`
	IsActive *bool  `json:"is_active"`
}

// ListResponse is a page of users.
type ListResponse struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

var (
	ErrNotFound     = shared.NewError(shared.ErrNotFound, "user not found")
	ErrUnknownRole  = shared.NewError(shared.ErrValidation, "role does not exist")
	ErrEmptyUpdate  = shared.NewError(shared.ErrValidation, "nothing to update")
	ErrSelfLockout  = shared.NewError(shared.ErrConflict, "superadmin cannot demote or deactivate their own account")
	ErrForbiddenOps = shared.NewError(shared.ErrForbidden, "only the superadmin manages users")
)
