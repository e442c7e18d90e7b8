package billing

import (
	"github.com/shopspring/decimal"
)

type ExchangeMode string

const (
	ModeRegular      ExchangeMode = "regular"
	ModeBuyOrnaments ExchangeMode = "buy-ornaments"
	ModeGetCash      ExchangeMode = "get-cash"
)

var hundred = decimal.NewFromInt(100)

func ParseExchangeMode(raw string) (ExchangeMode, error) {
	switch mode := ExchangeMode(raw); mode {
	case ModeRegular, ModeBuyOrnaments, ModeGetCash:
		return mode, nil
	case "":
		return ModeRegular, nil
	default:
		return "", invalid("exchange_mode", "unknown mode %q", raw)
	}
}

// BillTotals carries every bill-level figure. In get-cash mode CashAmount replaces GrandTotal.
type BillTotals struct {
	Mode                  ExchangeMode    `json:"exchange_mode"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	GSTApplicableSubtotal decimal.Decimal `json:"gst_applicable_subtotal"`
	GSTPercentage         decimal.Decimal `json:"gst_percentage"`
	GSTAmount             decimal.Decimal `json:"gst_amount"`
	OldOrnamentTotal      decimal.Decimal `json:"old_ornament_total"`
	Discount              decimal.Decimal `json:"discount"`
	GrandTotal            decimal.Decimal `json:"grand_total"`
	CashAmount            decimal.Decimal `json:"cash_amount"`
	Credited              decimal.Decimal `json:"credited"`
	RemainingAmount       decimal.Decimal `json:"remaining_amount"`
}

// Payable is the amount the remaining balance is measured against.
func (t BillTotals) Payable() decimal.Decimal {
	if t.Mode == ModeGetCash {
		return t.CashAmount
	}
	return t.GrandTotal
}

func Aggregate(newItems []NewPurchaseLineItem, oldItems []OldOrnamentLineItem, gstPercentage decimal.Decimal, mode ExchangeMode, discount, credited decimal.Decimal) (BillTotals, error) {
	totals := BillTotals{
		Mode:          mode,
		GSTPercentage: gstPercentage,
		Credited:      credited,
	}

	oldTotal := decimal.Zero
	for _, item := range oldItems {
		oldTotal = oldTotal.Add(item.Value)
	}

	switch mode {
	case ModeGetCash:
		totals.OldOrnamentTotal = oldTotal
		totals.CashAmount = oldTotal
		totals.GSTPercentage = decimal.Zero
	case ModeRegular, ModeBuyOrnaments:
		for _, item := range newItems {
			totals.Subtotal = totals.Subtotal.Add(item.LineTotal)
			if item.GSTApplicable {
				totals.GSTApplicableSubtotal = totals.GSTApplicableSubtotal.Add(item.LineTotal)
			}
		}
		totals.GSTAmount = totals.GSTApplicableSubtotal.Mul(gstPercentage).Div(hundred)
		totals.Discount = discount
		if mode == ModeBuyOrnaments {
			totals.OldOrnamentTotal = oldTotal
		}
		totals.GrandTotal = totals.Subtotal.
			Add(totals.GSTAmount).
			Sub(totals.OldOrnamentTotal).
			Sub(totals.Discount)
	default:
		return BillTotals{}, invalid("exchange_mode", "unknown mode %q", string(mode))
	}

	totals.RemainingAmount = totals.Payable().Sub(credited)
	return totals, nil
}
