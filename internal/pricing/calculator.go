// Package pricing computes tax-inclusive line totals for quotation items.
//
// Results are persisted at finalization and read back verbatim, so the
// calculation must be deterministic for the same inputs.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept for money.
const Scale = 2

// MaxQuantity bounds a line quantity.
const MaxQuantity = 1_000_000

// Storage limits: prices and line totals are NUMERIC(10,2), order totals NUMERIC(12,2).
var (
	MaxAmount      = decimal.RequireFromString("99999999.99")
	MaxOrderAmount = decimal.RequireFromString("9999999999.99")
)

var (
	// ErrInvalidQuantity is returned for quantities outside 1..MaxQuantity.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 1000000")
	// ErrInvalidPrice is returned for non-positive prices, prices above MaxAmount
	// and prices with more than two decimals.
	ErrInvalidPrice = errors.New("price must be positive, at most 99999999.99, with at most two decimals")
	// ErrInvalidGST is returned for GST outside 0-100 or with more than two decimals.
	ErrInvalidGST = errors.New("gst percentage must be between 0 and 100 with at most two decimals")
	// ErrAmountOutOfRange is returned when a computed total exceeds what can be stored.
	ErrAmountOutOfRange = errors.New("amount exceeds the storable range")
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Breakdown is the result of pricing one line.
type Breakdown struct {
	Base       decimal.Decimal `json:"base"`
	GSTAmount  decimal.Decimal `json:"gst_amount"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// Calculate returns base = price x quantity, the GST amount on base and
// grand total = round(base + gst, 2). A null GST is treated as zero.
func Calculate(unitPrice decimal.Decimal, quantity int, gst decimal.NullDecimal) (Breakdown, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return Breakdown{}, err
	}
	if err := ValidatePrice(unitPrice); err != nil {
		return Breakdown{}, err
	}
	if err := ValidateGST(gst); err != nil {
		return Breakdown{}, err
	}

	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	gstAmount := zero
	if gst.Valid && !gst.Decimal.IsZero() {
		gstAmount = base.Mul(gst.Decimal).Div(hundred)
	}
	b := Breakdown{
		Base:       base.Round(Scale),
		GSTAmount:  gstAmount.Round(Scale),
		GrandTotal: base.Add(gstAmount).Round(Scale),
	}
	if b.GrandTotal.GreaterThan(MaxAmount) {
		return Breakdown{}, fmt.Errorf("%w: line total %s", ErrAmountOutOfRange, b.GrandTotal.StringFixed(Scale))
	}
	return b, nil
}

// GrandTotal is Calculate reduced to its grand total.
func GrandTotal(unitPrice decimal.Decimal, quantity int, gst decimal.NullDecimal) (decimal.Decimal, error) {
	b, err := Calculate(unitPrice, quantity, gst)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return b.GrandTotal, nil
}

// Sum adds amounts and rounds the result to money scale.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total.Round(Scale)
}

// ValidateQuantity rejects quantities outside 1..MaxQuantity.
func ValidateQuantity(quantity int) error {
	if quantity < 1 || quantity > MaxQuantity {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	return nil
}

// ValidatePrice rejects prices that cannot be stored exactly.
func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() || price.GreaterThan(MaxAmount) || !hasMoneyScale(price) {
		return fmt.Errorf("%w: got %s", ErrInvalidPrice, price.String())
	}
	return nil
}

// ValidateOrderTotal rejects order totals above MaxOrderAmount.
func ValidateOrderTotal(total decimal.Decimal) error {
	if total.GreaterThan(MaxOrderAmount) {
		return fmt.Errorf("%w: order total %s", ErrAmountOutOfRange, total.StringFixed(Scale))
	}
	return nil
}

func hasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale))
}

// ValidateGST rejects GST outside 0-100. Null is accepted.
func ValidateGST(gst decimal.NullDecimal) error {
	if !gst.Valid {
		return nil
	}
	if gst.Decimal.IsNegative() || gst.Decimal.GreaterThan(hundred) || !hasMoneyScale(gst.Decimal) {
		return fmt.Errorf("%w: got %s", ErrInvalidGST, gst.Decimal.String())
	}
	return nil
}
