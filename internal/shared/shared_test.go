package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorMatchesKind(t *testing.T) {
	errMissing := NewError(ErrNotFound, "quotation not found")
	wrapped := fmt.Errorf("load quotation 9: %w", errMissing)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.True(t, errors.Is(wrapped, errMissing))
	assert.False(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, "load quotation 9: quotation not found", wrapped.Error())
}

func TestRolePolicy(t *testing.T) {
	policy := RolePolicy{SuperadminRoleID: 5, AdminRoleIDs: []int64{4}, ReviewRoleIDs: []int64{4, 5}}

	superadmin := Actor{UserID: 1, RoleID: 5}
	admin := Actor{UserID: 2, RoleID: 4}
	customer := Actor{UserID: 3, RoleID: 2}

	assert.True(t, policy.IsSuperadmin(superadmin))
	assert.False(t, policy.IsSuperadmin(admin))
	assert.True(t, policy.IsAdmin(superadmin))
	assert.True(t, policy.IsAdmin(admin))
	assert.False(t, policy.IsAdmin(customer))
	assert.True(t, policy.CanReview(admin))
	assert.False(t, policy.CanReview(customer))

	open := RolePolicy{SuperadminRoleID: 5}
	assert.True(t, open.CanReview(customer))
	assert.False(t, open.CanReview(Actor{}))
}

func TestPaginationClampsInput(t *testing.T) {
	p := NewPagination(0, 500, 250)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PerPage)
	assert.Equal(t, 3, p.TotalPages)

	req := PageRequest{Page: 3, PerPage: 20}
	assert.Equal(t, 40, req.Offset())
}
