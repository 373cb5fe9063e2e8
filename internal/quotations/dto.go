package quotations

import (
	"github.com/shopspring/decimal"

	"github.com/b2bmarket/marketplace/internal/orders"
	"github.com/b2bmarket/marketplace/internal/shared"
)

// Decision keywords accepted in request bodies.
const (
	DecisionApprove   = "approve"
	DecisionNegotiate = "negotiate"
)

// CreateItem selects a cart product and the quantity to quote.
type CreateItem struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	// Quantity defaults to 1 when omitted.
	Quantity int `json:"quantity" validate:"gte=0,max=1000000"`
}

// CreateRequest is the body of POST /quotation.
type CreateRequest struct {
	Items []CreateItem `json:"quotation_items" validate:"required,min=1,dive"`
}

// ReviewItem is the admin price and GST for one product.
type ReviewItem struct {
	ProductID     int64               `json:"product_id" validate:"required,gt=0"`
	NewPrice      decimal.Decimal     `json:"new_price"`
	GSTPercentage decimal.NullDecimal `json:"gst_percentage"`
}

// ReviewRequest is the body of PUT /quotation/review/{id}.
type ReviewRequest struct {
	Items []ReviewItem `json:"updated_items" validate:"required,min=1,dive"`
}

// PriceItem proposes a unit price for one product.
type PriceItem struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	NewPrice  decimal.Decimal `json:"new_price"`
}

// NegotiateRequest is the body of PUT /quotation/negotiate/{id}.
type NegotiateRequest struct {
	Action string      `json:"action" validate:"required"`
	Items  []PriceItem `json:"negotiation_items" validate:"omitempty,dive"`
}

// DecisionRequest is the body of POST /quotation/decision/{id}.
type DecisionRequest struct {
	Action string      `json:"action" validate:"required"`
	Items  []PriceItem `json:"updated_items" validate:"omitempty,dive"`
}

// FinalDecisionRequest is the body of PUT /quotation/finalDecision/{id}.
type FinalDecisionRequest struct {
	Action string `json:"action" validate:"required"`
}

// CreateResponse answers POST /quotation.
type CreateResponse struct {
	Message     string `json:"message"`
	QuotationID int64  `json:"quotation_id"`
	Items       []Item `json:"quotationItems"`
}

// TransitionResult reports the state a quotation moved to and the order it produced, if any.
type TransitionResult struct {
	QuotationID int64         `json:"quotation_id"`
	Status      Status        `json:"quotation_status"`
	Order       *orders.Order `json:"order,omitempty"`
}

// FormResponse answers GET /quotation/AddtoQuotation.
type FormResponse struct {
	Message string     `json:"message"`
	Form    []FormLine `json:"quotationForm"`
}

// AdminListResponse is a page of quotations for admins.
type AdminListResponse struct {
	Quotations []Quotation       `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}
