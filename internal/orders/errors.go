package orders

import "github.com/b2bmarket/marketplace/internal/shared"

// Domain errors for orders.
var (
	// ErrNotFound indicates the order is absent or not visible to the caller.
	ErrNotFound = shared.NewError(shared.ErrNotFound, "order not found")
	// ErrInvalidStatus indicates an unknown lifecycle status.
	ErrInvalidStatus = shared.NewError(shared.ErrValidation, "invalid status, must be one of: placed, shipped, delivered")
	// ErrForbidden indicates a non-superadmin attempted a superadmin operation.
	ErrForbidden = shared.NewError(shared.ErrForbidden, "only superadmin can manage orders")

	// Materialization errors.
	ErrMissingOwner     = shared.NewError(shared.ErrConflict, "quotation missing user_id")
	ErrNoFinalizedItems = shared.NewError(shared.ErrConflict, "no finalized quotation items found")
	ErrOrderExists      = shared.NewError(shared.ErrConflict, "order already exists for quotation")
	ErrTotalTooLarge    = shared.NewError(shared.ErrConflict, "order total exceeds 9999999999.99")
)
