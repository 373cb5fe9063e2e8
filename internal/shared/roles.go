package shared

// RolePolicy names the roles allowed to act as staff in the negotiation workflow.
type RolePolicy struct {
	SuperadminRoleID int64
	AdminRoleIDs     []int64
	// ReviewRoleIDs may review quotations. Empty means any authenticated user.
	ReviewRoleIDs []int64
}

// IsSuperadmin reports whether actor holds the superadmin role.
func (p RolePolicy) IsSuperadmin(actor Actor) bool {
	return p.SuperadminRoleID != 0 && actor.RoleID == p.SuperadminRoleID
}

// IsAdmin reports whether actor holds an admin role. The superadmin counts as admin.
func (p RolePolicy) IsAdmin(actor Actor) bool {
	return p.IsSuperadmin(actor) || containsRole(p.AdminRoleIDs, actor.RoleID)
}

// CanReview reports whether actor may perform the admin review transition.
func (p RolePolicy) CanReview(actor Actor) bool {
	if actor.UserID <= 0 {
		return false
	}
	if len(p.ReviewRoleIDs) == 0 {
		return true
	}
	return containsRole(p.ReviewRoleIDs, actor.RoleID)
}

func containsRole(roles []int64, role int64) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
