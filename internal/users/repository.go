package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/b2bmarket/marketplace/internal/platform/db"
	"github.com/b2bmarket/marketplace/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, roleID int64, page shared.PageRequest) ([]User, int, error)
	ListRoles(ctx context.Context) ([]Role, error)
	RoleExists(ctx context.Context, roleID int64) (bool, error)
	Update(ctx context.Context, actorID, id int64, req UpdateRequest) (*User, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.user_id, u.email, u.name, u.role_id, COALESCE(r.name, ''), u.is_active, u.created_at, u.updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.RoleID, &u.RoleName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// ListUsers returns a page of users. roleID 0 lists every role.
func (r *Repository) ListUsers(ctx context.Context, roleID int64, page shared.PageRequest) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE ($1 = 0 OR role_id = $1)`, roleID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN roles r ON r.role_id = u.role_id
		WHERE ($1 = 0 OR u.role_id = $1)
		ORDER BY u.user_id
		LIMIT $2 OFFSET $3
	`, roleID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// ListRoles returns all roles.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT role_id, name FROM roles ORDER BY role_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := make([]Role, 0)
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// RoleExists reports whether roleID is in the catalogue.
func (r *Repository) RoleExists(ctx context.Context, roleID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE role_id = $1)`, roleID).Scan(&ok)
	return ok, err
}

// Update applies req and writes an audit row in the same transaction.
func (r *Repository) Update(ctx context.Context, actorID, id int64, req UpdateRequest) (*User, error) {
	var updated User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE users SET
				role_id = COALESCE($2, role_id),
				is_active = COALESCE($3, is_active),
				updated_at = NOW()
			WHERE user_id = $1
		`, id, req.RoleID, req.IsActive)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		updated, err = scanUser(tx.QueryRow(ctx, `
			SELECT `+userColumns+`
			FROM users u
			LEFT JOIN roles r ON r.role_id = u.role_id
			WHERE u.user_id = $1
		`, id))
		if err != nil {
			return err
		}
		return shared.RecordAudit(ctx, tx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "user.update",
			Entity:   "user",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"role_id": updated.RoleID, "is_active": updated.IsActive},
		})
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}
