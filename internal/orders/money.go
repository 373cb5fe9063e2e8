package orders

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is the ISO currency all marketplace amounts are quoted in.
var Currency = currency.INR

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with grouping, e.g. "INR 1,234.50".
func FormatAmount(amount decimal.Decimal) string {
	value, _ := amount.Round(2).Float64()
	return amountPrinter.Sprintf("%s %.2f", Currency.String(), value)
}
