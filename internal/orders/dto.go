package orders

import "github.com/b2bmarket/marketplace/internal/shared"

// UpdateStatusRequest is the body of PATCH /orders/{id}/status.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=placed shipped delivered"`
}

// ListResponse is a page of orders.
type ListResponse struct {
	Orders     []Detail          `json:"orders"`
	Pagination shared.Pagination `json:"pagination"`
}

// InvoiceResponse is the body of POST /orders/{id}/invoice.
type InvoiceResponse struct {
	Message  string   `json:"message"`
	Invoice  *Invoice `json:"invoice"`
	Customer Customer `json:"customer"`
	Items    []Item   `json:"items"`
}
