// Package invoice lays out stored bills and cash payouts as printable documents.
// Money is fixed to 2 decimals and weights to 3.
package invoice

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mgm-billing/config"
	"mgm-billing/internal/database/models"
)

const (
	TitleSale    = "SALE INVOICE"
	TitlePayout  = "EXCHANGE VOUCHER"
	TitleTradeIn = "OLD ORNAMENT RECEIPT"
	dateLayout   = "02/01/2006"
	exchangeMark = " (Exchange)"
	terms        = "This invoice is applicable only for Gold, Diamond and Precious ornaments. " +
		"In addition to the indication of separate description of each article, net weight of precious metal, " +
		"purity in carat and fineness, gross weight in bill or invoice or sale of hallmarked precious metal articles."
)

var two = decimal.NewFromInt(2)

type Shop struct {
	Name    string             `json:"name"`
	Address string             `json:"address"`
	Phones  []string           `json:"phones"`
	GSTIN   string             `json:"gstin,omitempty"`
	Bank    config.BankDetails `json:"bank"`
}

type Customer struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	GSTPAN  string `json:"gst_pan,omitempty"`
}

type Row struct {
	SNo         int    `json:"s_no"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Weight      string `json:"weight"`
	Rate        string `json:"rate"`
	Amount      string `json:"amount"`
	GST         string `json:"gst"`
	Total       string `json:"total"`
	Exchange    bool   `json:"exchange"`
}

type Totals struct {
	Subtotal     string `json:"subtotal"`
	GST          string `json:"gst"`
	CGST         string `json:"cgst"`
	SGST         string `json:"sgst"`
	OldOrnaments string `json:"old_ornaments"`
	Discount     string `json:"discount,omitempty"`
	NetPayable   string `json:"net_payable"`
	Credited     string `json:"credited"`
	Remaining    string `json:"remaining"`
}

type Document struct {
	Title         string   `json:"title"`
	Shop          Shop     `json:"shop"`
	InvoiceNumber string   `json:"invoice_number"`
	Date          string   `json:"date"`
	Customer      Customer `json:"customer"`
	ExchangeMode  string   `json:"exchange_mode"`
	RateHeader    string   `json:"rate_header"`
	ShowGST       bool     `json:"show_gst"`
	GSTPercentage string   `json:"gst_percentage"`
	Rows          []Row    `json:"rows"`
	Totals        Totals   `json:"totals"`
	Terms         string   `json:"terms"`
}

func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func Weight(d decimal.Decimal) string {
	return d.StringFixed(3)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func shopBlock(profile config.ShopProfile, showGST bool) Shop {
	shop := Shop{
		Name:    profile.Name,
		Address: profile.Address,
		Phones:  profile.Phones,
		Bank:    profile.Bank,
	}
	if showGST {
		shop.GSTIN = profile.GSTIN
	}
	return shop
}

// rateHeader names the price column after the metals on the bill.
func rateHeader(items []models.BillItem) string {
	var gold, silver bool
	for _, item := range items {
		name := strings.ToLower(item.CategoryName)
		gold = gold || strings.Contains(name, "gold")
		silver = silver || strings.Contains(name, "silver")
	}
	switch {
	case gold && !silver:
		return "Gold Price"
	case silver && !gold:
		return "Silver Price"
	default:
		return "Metal Price"
	}
}

func exchangeRows(records []models.ExchangeRecord, start int) []Row {
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		value := "-" + Money(rec.ExchangeValue)
		rows = append(rows, Row{
			SNo:         start + i,
			Category:    rec.CategoryName + exchangeMark,
			Subcategory: rec.SubcategoryName,
			Weight:      Weight(rec.FinalWeight),
			Rate:        Money(rec.MetalRate),
			Amount:      value,
			GST:         "-",
			Total:       value,
			Exchange:    true,
		})
	}
	return rows
}

// Build lays out a stored bill. Items and Exchanges must be loaded on the bill.
func Build(profile config.ShopProfile, bill models.Bill, loc *time.Location) Document {
	if loc == nil {
		loc = time.UTC
	}
	showGST := bill.GSTAmount.IsPositive()
	half := bill.GSTAmount.Div(two)

	rows := make([]Row, 0, len(bill.Items)+len(bill.Exchanges))
	for i, item := range bill.Items {
		gst := "-"
		total := item.Total
		if item.GSTApplicable {
			itemGST := item.Total.Mul(bill.GSTPercentage).Div(decimal.NewFromInt(100))
			gst = Money(itemGST)
			total = total.Add(itemGST)
		}
		rows = append(rows, Row{
			SNo:         i + 1,
			Category:    item.CategoryName,
			Subcategory: item.SubcategoryName,
			Weight:      Weight(item.Weight),
			Rate:        Money(item.MetalRate),
			Amount:      Money(item.Total),
			GST:         gst,
			Total:       Money(total),
		})
	}
	rows = append(rows, exchangeRows(bill.Exchanges, len(rows)+1)...)

	totals := Totals{
		Subtotal:     Money(bill.Subtotal),
		GST:          Money(bill.GSTAmount),
		CGST:         Money(half),
		SGST:         Money(half),
		OldOrnaments: Money(bill.OldOrnamentTotal),
		NetPayable:   Money(bill.GrandTotal),
		Credited:     Money(bill.CreditedAmount),
		Remaining:    Money(bill.RemainingAmount),
	}
	if bill.DiscountAmount.IsPositive() {
		totals.Discount = "-" + Money(bill.DiscountAmount)
	}

	return Document{
		Title:         TitleSale,
		Shop:          shopBlock(profile, showGST),
		InvoiceNumber: bill.InvoiceNumber,
		Date:          bill.BillDate.In(loc).Format(dateLayout),
		Customer: Customer{
			Name:    bill.CustomerName,
			Address: deref(bill.CustomerAddress),
			Phone:   deref(bill.CustomerPhone),
			GSTPAN:  deref(bill.CustomerGSTPAN),
		},
		ExchangeMode:  bill.ExchangeMode,
		RateHeader:    rateHeader(bill.Items),
		ShowGST:       showGST,
		GSTPercentage: Money(bill.GSTPercentage),
		Rows:          rows,
		Totals:        totals,
		Terms:         terms,
	}
}

// BuildPayout lays out the ornaments taken in under one invoice number.
// Cash exchanges print as a voucher paying out the total; trade-ins against a bill print as a receipt
// whose value was already deducted on the bill.
func BuildPayout(profile config.ShopProfile, records []models.ExchangeRecord, loc *time.Location) Document {
	if loc == nil {
		loc = time.UTC
	}
	doc := Document{
		Title:        TitlePayout,
		Shop:         shopBlock(profile, false),
		ExchangeMode: "get-cash",
		RateHeader:   "Rate per gram",
		Rows:         exchangeRows(records, 1),
		Terms:        terms,
	}
	tradeIn := len(records) > 0 && records[0].ExchangeType == models.ExchangeTypeOrnaments
	if tradeIn {
		doc.Title = TitleTradeIn
		doc.ExchangeMode = "buy-ornaments"
	}

	total := decimal.Zero
	for _, rec := range records {
		total = total.Add(rec.ExchangeValue)
	}
	if len(records) > 0 {
		first := records[0]
		doc.InvoiceNumber = first.InvoiceNumber
		doc.Date = first.CreatedAt.In(loc).Format(dateLayout)
		doc.Customer = Customer{Name: first.CustomerName}
	}

	zero := Money(decimal.Zero)
	doc.GSTPercentage = zero
	doc.Totals = Totals{
		Subtotal:     zero,
		GST:          zero,
		CGST:         zero,
		SGST:         zero,
		OldOrnaments: Money(total),
		NetPayable:   Money(total),
		Credited:     zero,
		Remaining:    Money(total),
	}
	if tradeIn {
		doc.Totals.NetPayable = zero
		doc.Totals.Remaining = zero
	}
	return doc
}
