// Package orders materializes orders from finalized quotations and serves
// their lifecycle afterwards.
package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle of an order.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusPlaced, StatusShipped, StatusDelivered:
		return true
	default:
		return false
	}
}

// Order is created exactly once per finalized quotation. TotalAmount never changes.
type Order struct {
	ID          int64           `json:"order_id"`
	QuotationID int64           `json:"quotation_id"`
	UserID      int64           `json:"user_id"`
	Status      Status          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Item is a finalized quotation line as seen from the order.
type Item struct {
	QuotationItemID int64               `json:"quotation_item_id"`
	ProductID       int64               `json:"product_id"`
	ProductName     string              `json:"product_name"`
	Quantity        int                 `json:"quantity"`
	FinalPrice      decimal.NullDecimal `json:"final_price"`
	GSTPercentage   decimal.NullDecimal `json:"gst_percentage"`
	GrandTotalPrice decimal.NullDecimal `json:"grand_total_price"`
}

// Customer carries the owner's contact details.
type Customer struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Detail is an order with its customer and items.
type Detail struct {
	Order
	Customer Customer `json:"customer"`
	Items    []Item   `json:"items"`
}

// Invoice is issued at most once per order and copies the order total.
type Invoice struct {
	ID            int64           `json:"invoice_id"`
	OrderID       int64           `json:"order_id"`
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}
