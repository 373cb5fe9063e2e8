package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64     `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RoleID       int64     `json:"role_id"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
