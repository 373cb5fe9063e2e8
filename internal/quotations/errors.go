package quotations

import "github.com/b2bmarket/marketplace/internal/shared"

var (
	// ErrNotFound covers missing quotations and quotations owned by someone else.
	ErrNotFound = shared.NewError(shared.ErrNotFound, "quotation not found")
	// ErrNoQuotations is returned when a customer has no quotations yet.
	ErrNoQuotations = shared.NewError(shared.ErrNotFound, "no quotations found for this customer")
	// ErrInvalidTransition is returned when the quotation is not in the source state of the action.
	ErrInvalidTransition = shared.NewError(shared.ErrConflict, "quotation is not in a state that allows this action")
	// ErrPriceMissing is returned when finalizing an item that has no chosen price.
	ErrPriceMissing = shared.NewError(shared.ErrConflict, "quotation item has no price to finalize")
	// ErrCannotDeleteFinalized protects quotations that already produced an order.
	ErrCannotDeleteFinalized = shared.NewError(shared.ErrConflict, "finalized quotations cannot be deleted")
	// ErrTotalTooLarge is returned when a finalized line total cannot be stored.
	ErrTotalTooLarge = shared.NewError(shared.ErrConflict, "quotation total exceeds the storable range")
	// ErrConcurrentUpdate is returned when another transition won the race.
	ErrConcurrentUpdate = shared.NewError(shared.ErrConflict, "quotation was modified concurrently, retry")

	ErrForbiddenReview   = shared.NewError(shared.ErrForbidden, "only admins can review quotations")
	ErrForbiddenDecision = shared.NewError(shared.ErrForbidden, "only superadmin can make final decisions")
	ErrForbiddenList     = shared.NewError(shared.ErrForbidden, "only admins or superadmins can view all quotations")

	ErrInvalidAction      = shared.NewError(shared.ErrValidation, "invalid action, choose 'approve' or 'negotiate'")
	ErrInvalidFinalAction = shared.NewError(shared.ErrValidation, "invalid action, only 'approve' is allowed")
	ErrEmptyItems         = shared.NewError(shared.ErrValidation, "no products selected for quotation")
	ErrMissingPrices      = shared.NewError(shared.ErrValidation, "updated prices are required")
	ErrDuplicateProduct   = shared.NewError(shared.ErrValidation, "product listed more than once")
	ErrNoCart             = shared.NewError(shared.ErrValidation, "user cart not found")
	ErrItemNotInCart      = shared.NewError(shared.ErrValidation, "some products do not exist in the cart")
	ErrItemNotInQuotation = shared.NewError(shared.ErrValidation, "product is not part of this quotation")
	ErrIncompletePrices   = shared.NewError(shared.ErrValidation, "every quotation product must be priced")
	ErrLineTotalTooLarge  = shared.NewError(shared.ErrValidation, "line total exceeds 99999999.99")
	ErrInvalidQuantity    = shared.NewError(shared.ErrValidation, "quantity must be between 1 and 1000000")
	ErrInvalidPrice       = shared.NewError(shared.ErrValidation, "price must be positive, at most 99999999.99, with at most two decimals")
	ErrInvalidGST         = shared.NewError(shared.ErrValidation, "gst percentage must be between 0 and 100 with at most two decimals")

	ErrEmptyCart = shared.NewError(shared.ErrNotFound, "no selected products in the cart")
)
