package orders

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	ordersSheet = "Orders"
	itemsSheet  = "Items"
)

var (
	orderHeader = []any{"Order ID", "Quotation ID", "Customer", "Email", "Status", "Total Amount", "Currency", "Created At"}
	itemHeader  = []any{"Order ID", "Product ID", "Product", "Quantity", "Final Price", "GST %", "Grand Total"}
)

// WriteWorkbook renders orders into two sheets: one row per order and one row per item.
func WriteWorkbook(w io.Writer, details []Detail) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return fmt.Errorf("create items sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := writeHeader(f, ordersSheet, orderHeader, bold); err != nil {
		return err
	}
	if err := writeHeader(f, itemsSheet, itemHeader, bold); err != nil {
		return err
	}

	itemRow := 2
	for i, d := range details {
		row := []any{
			d.ID, d.QuotationID, d.Customer.Name, d.Customer.Email, string(d.Status),
			amount(d.TotalAmount), Currency.String(), d.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := setRow(f, ordersSheet, i+2, row); err != nil {
			return err
		}
		for _, it := range d.Items {
			row := []any{
				d.ID, it.ProductID, it.ProductName, it.Quantity,
				nullAmount(it.FinalPrice), nullAmount(it.GSTPercentage), nullAmount(it.GrandTotalPrice),
			}
			if err := setRow(f, itemsSheet, itemRow, row); err != nil {
				return err
			}
			itemRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []any, style int) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func amount(d decimal.Decimal) float64 {
	v, _ := d.Round(2).Float64()
	return v
}

func nullAmount(d decimal.NullDecimal) any {
	if !d.Valid {
		return ""
	}
	return amount(d.Decimal)
}
