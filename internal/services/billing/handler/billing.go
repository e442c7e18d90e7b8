package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"mgm-billing/internal/database/models"
	"mgm-billing/internal/services/billing"
)

// Catalog supplies the taxonomy used to resolve line items.
type Catalog interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListSubcategories(ctx context.Context) ([]models.Subcategory, error)
}

type NewItemInput struct {
	SubcategoryID int64  `json:"subcategory_id" binding:"required"`
	Weight        string `json:"weight" binding:"required"`
	GSTApplicable *bool  `json:"gst_applicable"`
}

type OldItemInput struct {
	SubcategoryID int64  `json:"subcategory_id" binding:"required"`
	InitialWeight string `json:"initial_weight"`
	FinalWeight   string `json:"final_weight"`
	RatePerGram   string `json:"rate_per_gram"`
}

type QuoteInput struct {
	ExchangeMode string         `json:"exchange_mode"`
	NewItems     []NewItemInput `json:"new_items" binding:"dive"`
	OldItems     []OldItemInput `json:"old_items" binding:"dive"`
	Discount     string         `json:"discount"`
	Credited     string         `json:"credited"`
}

type SaleInput struct {
	QuoteInput
	Customer billing.Customer `json:"customer"`
	BillDate *time.Time       `json:"bill_date"`
}

type Quote struct {
	Rates    billing.RateSnapshot          `json:"rates"`
	NewItems []billing.NewPurchaseLineItem `json:"new_items"`
	OldItems []billing.OldOrnamentLineItem `json:"old_items"`
	Totals   billing.BillTotals            `json:"totals"`
}

type SaleResult struct {
	Quote
	InvoiceNumber string  `json:"invoice_number"`
	BillID        *int64  `json:"bill_id,omitempty"`
	ExchangeIDs   []int64 `json:"exchange_ids,omitempty"`
}

type BillingHandler struct {
	rates    billing.RateProvider
	catalog  Catalog
	recorder *billing.InvoiceRecorder
}

func NewBillingHandler(rates billing.RateProvider, catalog Catalog, recorder *billing.InvoiceRecorder) *BillingHandler {
	return &BillingHandler{
		rates:    rates,
		catalog:  catalog,
		recorder: recorder,
	}
}

type taxonomy struct {
	categories    map[int64]*models.Category
	subcategories map[int64]*models.Subcategory
}

func (s *BillingHandler) loadTaxonomy(ctx context.Context) (*taxonomy, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	subcategories, err := s.catalog.ListSubcategories(ctx)
	if err != nil {
		return nil, err
	}

	t := &taxonomy{
		categories:    make(map[int64]*models.Category, len(categories)),
		subcategories: make(map[int64]*models.Subcategory, len(subcategories)),
	}
	for i := range categories {
		t.categories[categories[i].ID] = &categories[i]
	}
	for i := range subcategories {
		t.subcategories[subcategories[i].ID] = &subcategories[i]
	}
	return t, nil
}

func (t *taxonomy) resolve(subcategoryID int64) (*models.Category, *models.Subcategory, error) {
	sub, ok := t.subcategories[subcategoryID]
	if !ok {
		return nil, nil, &billing.LookupError{Entity: "subcategory", ID: subcategoryID}
	}
	cat, ok := t.categories[sub.CategoryID]
	if !ok {
		return nil, nil, &billing.LookupError{Entity: "category", ID: sub.CategoryID}
	}
	return cat, sub, nil
}

func optionalAmount(field, raw string) (decimal.Decimal, error) {
	value, err := billing.ParseAmount(field, raw)
	if err != nil || value == nil {
		return decimal.Zero, err
	}
	return *value, nil
}

// Quote prices every line and totals the bill without storing anything.
func (s *BillingHandler) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	mode, err := billing.ParseExchangeMode(input.ExchangeMode)
	if err != nil {
		return nil, err
	}
	discount, err := optionalAmount("discount", input.Discount)
	if err != nil {
		return nil, err
	}
	credited, err := optionalAmount("credited", input.Credited)
	if err != nil {
		return nil, err
	}

	rates, err := s.rates.RateSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	tax, err := s.loadTaxonomy(ctx)
	if err != nil {
		return nil, err
	}

	newItems := make([]billing.NewPurchaseLineItem, 0, len(input.NewItems))
	for i, in := range input.NewItems {
		prefix := fmt.Sprintf("new_items[%d].", i)
		cat, sub, err := tax.resolve(in.SubcategoryID)
		if err != nil {
			return nil, err
		}
		weight, err := billing.ParseWeight(prefix+"weight", in.Weight)
		if err != nil {
			return nil, err
		}
		gstApplicable := true
		if in.GSTApplicable != nil {
			gstApplicable = *in.GSTApplicable
		}
		item, err := billing.PriceNewItem(cat, sub, weight, rates.GoldRate, rates.SilverRate, gstApplicable)
		if err != nil {
			return nil, err
		}
		newItems = append(newItems, item)
	}

	oldItems := make([]billing.OldOrnamentLineItem, 0, len(input.OldItems))
	for i, in := range input.OldItems {
		prefix := fmt.Sprintf("old_items[%d].", i)
		cat, sub, err := tax.resolve(in.SubcategoryID)
		if err != nil {
			return nil, err
		}
		initial, err := billing.ParseAmount(prefix+"initial_weight", in.InitialWeight)
		if err != nil {
			return nil, err
		}
		final, err := billing.ParseAmount(prefix+"final_weight", in.FinalWeight)
		if err != nil {
			return nil, err
		}
		rate, err := billing.ParseAmount(prefix+"rate_per_gram", in.RatePerGram)
		if err != nil {
			return nil, err
		}
		item, err := billing.PriceOldOrnament(cat, sub, initial, final, rate)
		if err != nil {
			return nil, err
		}
		oldItems = append(oldItems, item)
	}

	totals, err := billing.Aggregate(newItems, oldItems, rates.GSTRate, mode, discount, credited)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Rates:    rates,
		NewItems: newItems,
		OldItems: oldItems,
		Totals:   totals,
	}, nil
}

// CreateSale quotes the input and records it: a bill for regular and buy-ornaments, a cash exchange for get-cash.
func (s *BillingHandler) CreateSale(ctx context.Context, input SaleInput) (*SaleResult, error) {
	mode, err := billing.ParseExchangeMode(input.ExchangeMode)
	if err != nil {
		return nil, err
	}
	if mode == billing.ModeGetCash && len(input.NewItems) > 0 {
		return nil, &billing.ValidationError{Field: "new_items", Message: "are not allowed when paying out cash"}
	}

	quote, err := s.Quote(ctx, input.QuoteInput)
	if err != nil {
		return nil, err
	}

	if mode == billing.ModeGetCash {
		receipt, err := s.recorder.RecordCashExchange(ctx, billing.CashExchange{
			Customer: input.Customer,
			OldItems: quote.OldItems,
		})
		if err != nil {
			return nil, err
		}
		return &SaleResult{
			Quote:         *quote,
			InvoiceNumber: receipt.InvoiceNumber,
			ExchangeIDs:   receipt.ExchangeIDs,
		}, nil
	}

	sale := billing.Sale{
		Customer:   input.Customer,
		GoldRate:   quote.Rates.GoldRate,
		SilverRate: quote.Rates.SilverRate,
		Totals:     quote.Totals,
		NewItems:   quote.NewItems,
		OldItems:   quote.OldItems,
	}
	if input.BillDate != nil {
		sale.BillDate = *input.BillDate
	}

	receipt, err := s.recorder.RecordSale(ctx, sale)
	if err != nil {
		return nil, err
	}
	billID := receipt.BillID
	return &SaleResult{
		Quote:         *quote,
		InvoiceNumber: receipt.InvoiceNumber,
		BillID:        &billID,
	}, nil
}
