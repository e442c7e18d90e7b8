package handler

import (
	"bytes"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"mgm-billing/internal/database/models"
	"mgm-billing/internal/services/billing"
)

const (
	billsSheet = "Bills"
	itemsSheet = "Items"
)

var (
	billsHeader = []interface{}{
		"Invoice", "Date", "Customer", "Phone", "Mode", "Gold Rate", "Silver Rate", "GST %",
		"Subtotal", "GST", "Old Ornaments", "Discount", "Grand Total", "Credited", "Remaining",
	}
	itemsHeader = []interface{}{
		"Invoice", "Category", "Subcategory", "Weight (g)", "Rate", "Metal Amount", "Seikuli Rate", "Seikuli", "Total", "GST",
	}

	weightFormat = "0.000"
)

// numFmtMoney is excelize's built-in "#,##0.00".
const numFmtMoney = 4

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// styleColumns gives the amount and weight columns a number format so the sheet can total them.
func styleColumns(f *excelize.File) error {
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}
	weight, err := f.NewStyle(&excelize.Style{CustomNumFmt: &weightFormat})
	if err != nil {
		return fmt.Errorf("weight style: %w", err)
	}

	for _, c := range []struct {
		sheet, cols string
		style       int
	}{
		{billsSheet, "F:O", money},
		{itemsSheet, "D:D", weight},
		{itemsSheet, "E:I", money},
	} {
		if err := f.SetColStyle(c.sheet, c.cols, c.style); err != nil {
			return fmt.Errorf("style %s!%s: %w", c.sheet, c.cols, err)
		}
	}
	return nil
}

// ExportBills writes the bills of a date range and their items to an XLSX workbook.
func (s *HistoryHandler) ExportBills(ctx context.Context, q RangeQuery) (*bytes.Buffer, string, error) {
	start, end, err := s.DayRange(q)
	if err != nil {
		return nil, "", err
	}

	var bills []models.Bill
	tx := s.db.WithContext(ctx).
		Preload("Items").
		Where("bill_date >= ? AND bill_date < ?", start, end)
	if err := invoiceFilter(tx, q.InvoiceNumber).
		Order("bill_date DESC, id DESC").
		Find(&bills).Error; err != nil {
		return nil, "", &billing.PersistenceError{Op: "export bills", Err: err}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", billsSheet); err != nil {
		return nil, "", fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, "", fmt.Errorf("add items sheet: %w", err)
	}
	if err := styleColumns(f); err != nil {
		return nil, "", err
	}
	if err := f.SetSheetRow(billsSheet, "A1", &billsHeader); err != nil {
		return nil, "", err
	}
	if err := f.SetSheetRow(itemsSheet, "A1", &itemsHeader); err != nil {
		return nil, "", err
	}

	itemRow := 2
	for i, bill := range bills {
		phone := ""
		if bill.CustomerPhone != nil {
			phone = *bill.CustomerPhone
		}
		row := []interface{}{
			bill.InvoiceNumber,
			bill.BillDate.In(s.loc).Format("02/01/2006"),
			bill.CustomerName,
			phone,
			bill.ExchangeMode,
			num(bill.GoldRate),
			num(bill.SilverRate),
			num(bill.GSTPercentage),
			num(bill.Subtotal),
			num(bill.GSTAmount),
			num(bill.OldOrnamentTotal),
			num(bill.DiscountAmount),
			num(bill.GrandTotal),
			num(bill.CreditedAmount),
			num(bill.RemainingAmount),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", err
		}
		if err := f.SetSheetRow(billsSheet, cell, &row); err != nil {
			return nil, "", err
		}

		for _, item := range bill.Items {
			gst := "No"
			if item.GSTApplicable {
				gst = "Yes"
			}
			row := []interface{}{
				bill.InvoiceNumber,
				item.CategoryName,
				item.SubcategoryName,
				num(item.Weight),
				num(item.MetalRate),
				num(item.GoldAmount),
				num(item.SeikuliRate),
				num(item.SeikuliAmount),
				num(item.Total),
				gst,
			}
			cell, err := excelize.CoordinatesToCellName(1, itemRow)
			if err != nil {
				return nil, "", err
			}
			if err := f.SetSheetRow(itemsSheet, cell, &row); err != nil {
				return nil, "", err
			}
			itemRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}

	filename := fmt.Sprintf("bills_%s_%s.xlsx",
		start.In(s.loc).Format(dateLayout),
		end.In(s.loc).AddDate(0, 0, -1).Format(dateLayout))
	return buf, filename, nil
}
