package orders

import (
	"fmt"
	"time"
)

// InvoicePrefix starts every invoice number.
const InvoicePrefix = "INV"

// FormatInvoiceNumber renders INV<YYYYMMDD>-<seq> in UTC. The sequence is
// padded to three digits and grows past 999 without truncation.
func FormatInvoiceNumber(at time.Time, seq int64) string {
	return fmt.Sprintf("%s%s-%03d", InvoicePrefix, at.UTC().Format("20060102"), seq)
}
