// Package quotations runs the price negotiation between a customer, admins
// and the superadmin, from cart submission to the finalized quotation that
// becomes an order.
package quotations

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the negotiation state of a quotation.
type Status string

const (
	StatusPendingAdminReview          Status = "pending_admin_review"
	StatusAwaitingCustomerNegotiation Status = "awaiting_customer_negotiation"
	StatusFinalized                   Status = "finalized"
	// StatusDeclined is accepted by the store but no transition produces it.
	StatusDeclined Status = "declined"
)

// IsValid reports whether s is a defined status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingAdminReview, StatusAwaitingCustomerNegotiation, StatusFinalized, StatusDeclined:
		return true
	default:
		return false
	}
}

// Quotation is a customer's request for prices on a set of products.
type Quotation struct {
	ID           int64     `json:"quotation_id"`
	UserID       int64     `json:"user_id"`
	CustomerName string    `json:"customer_name,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Items        []Item    `json:"products"`
}

// Item is one product line of a quotation with every price proposed for it.
type Item struct {
	ID               int64               `json:"quotation_item_id"`
	QuotationID      int64               `json:"-"`
	ProductID        int64               `json:"product_id"`
	ProductName      string              `json:"product_name"`
	Quantity         int                 `json:"quantity"`
	SuperAdminPrice  decimal.NullDecimal `json:"super_admin_price"`
	NegotiationPrice decimal.NullDecimal `json:"negotiation_price"`
	FinalPrice       decimal.NullDecimal `json:"final_price"`
	GSTPercentage    decimal.NullDecimal `json:"gst_percentage"`
	GrandTotalPrice  decimal.NullDecimal `json:"grand_total_price"`
}

// ItemUpdate carries the columns a transition writes for one item.
// Fields left invalid keep their stored value.
type ItemUpdate struct {
	SuperAdminPrice  decimal.NullDecimal
	NegotiationPrice decimal.NullDecimal
	FinalPrice       decimal.NullDecimal
	GSTPercentage    decimal.NullDecimal
	GrandTotalPrice  decimal.NullDecimal
}

// FormLine prefills the quotation form from the cart.
type FormLine struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

func (q *Quotation) itemByProduct(productID int64) (Item, bool) {
	for _, it := range q.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return Item{}, false
}
