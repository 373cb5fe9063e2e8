package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/b2bmarket/marketplace/internal/platform/db"
	"github.com/b2bmarket/marketplace/internal/pricing"
)

// TxStore is the part of an open transaction the materializer writes through.
type TxStore interface {
	// FinalizedGrandTotals returns the non-null grand totals of a quotation's items.
	FinalizedGrandTotals(ctx context.Context, quotationID int64) ([]decimal.Decimal, error)
	InsertOrder(ctx context.Context, order Order) (Order, error)
}

// Source identifies the quotation that has just been finalized.
type Source struct {
	QuotationID int64
	UserID      int64
}

// Materialize creates the single order of a finalized quotation. It must run
// in the transaction that flipped the quotation status and wrote the grand
// totals, so either all of it commits or none of it does.
func Materialize(ctx context.Context, tx TxStore, src Source) (*Order, error) {
	if src.UserID <= 0 {
		return nil, ErrMissingOwner
	}

	totals, err := tx.FinalizedGrandTotals(ctx, src.QuotationID)
	if err != nil {
		return nil, fmt.Errorf("load finalized items: %w", err)
	}
	if len(totals) == 0 {
		return nil, ErrNoFinalizedItems
	}

	total := pricing.Sum(totals...)
	if err := pricing.ValidateOrderTotal(total); err != nil {
		return nil, fmt.Errorf("%w: quotation %d", ErrTotalTooLarge, src.QuotationID)
	}

	order, err := tx.InsertOrder(ctx, Order{
		QuotationID: src.QuotationID,
		UserID:      src.UserID,
		Status:      StatusPlaced,
		TotalAmount: total,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrOrderExists
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return &order, nil
}
