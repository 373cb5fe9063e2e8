// Package cart keeps the per-user selection of products a quotation is built from.
package cart

import "github.com/b2bmarket/marketplace/internal/shared"

// Item is a product in a user's cart.
type Item struct {
	CartItemID  int64  `json:"cart_item_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	OEMName     string `json:"oem_name,omitempty"`
	PartNo      string `json:"part_no,omitempty"`
	HSNNo       string `json:"hsn_no,omitempty"`
}

// Domain errors for the cart.
var (
	ErrCartNotFound     = shared.NewError(shared.ErrNotFound, "cart not found")
	ErrEmpty            = shared.NewError(shared.ErrNotFound, "no products found in cart")
	ErrItemNotFound     = shared.NewError(shared.ErrNotFound, "cart item not found")
	ErrProductNotFound  = shared.NewError(shared.ErrNotFound, "product not found")
	ErrAlreadyInCart    = shared.NewError(shared.ErrValidation, "product is already added to cart")
	ErrInvalidProductID = shared.NewError(shared.ErrValidation, "product_id must be positive")
)

// AddRequest is the body of POST /cart.
type AddRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}
