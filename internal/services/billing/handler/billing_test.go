package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mgm-billing/internal/database/dbtest"
	"mgm-billing/internal/database/models"
	"mgm-billing/internal/services/billing"
)

type staticRates billing.RateSnapshot

func (r staticRates) RateSnapshot(context.Context) (billing.RateSnapshot, error) {
	return billing.RateSnapshot(r), nil
}

type staticCatalog struct {
	categories    []models.Category
	subcategories []models.Subcategory
}

func (c staticCatalog) ListCategories(context.Context) ([]models.Category, error) {
	return c.categories, nil
}

func (c staticCatalog) ListSubcategories(context.Context) ([]models.Subcategory, error) {
	return c.subcategories, nil
}

const (
	ringID   = 11
	ankletID = 21
)

func newTestBilling(t *testing.T) (*BillingHandler, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)

	seikuli := decimal.NewFromInt(250)
	catalog := staticCatalog{
		categories: []models.Category{{ID: 1, Name: "Gold"}, {ID: 2, Name: "Silver"}},
		subcategories: []models.Subcategory{
			{ID: ringID, Name: "Ring", CategoryID: 1, SeikuliRate: &seikuli},
			{ID: ankletID, Name: "Anklet", CategoryID: 2},
		},
	}
	rates := staticRates{
		GoldRate:   decimal.NewFromInt(6000),
		SilverRate: decimal.NewFromInt(80),
		GSTRate:    decimal.NewFromInt(3),
	}
	recorder := billing.NewInvoiceRecorder(db, billing.NewInvoiceSequencer(db, "MGM_"), nil, billing.DefaultMaxAttempts)
	return NewBillingHandler(rates, catalog, recorder), db
}

func no() *bool {
	v := false
	return &v
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestQuoteRegular(t *testing.T) {
	h, _ := newTestBilling(t)

	quote, err := h.Quote(context.Background(), QuoteInput{
		NewItems: []NewItemInput{
			{SubcategoryID: ringID, Weight: "2"},
			{SubcategoryID: ankletID, Weight: "10", GSTApplicable: no()},
		},
		Discount: "100",
		Credited: "5000",
	})
	require.NoError(t, err)

	require.Len(t, quote.NewItems, 2)
	assertDecimal(t, "12500", quote.NewItems[0].LineTotal)
	assertDecimal(t, "800", quote.NewItems[1].LineTotal)
	assert.False(t, quote.NewItems[1].GSTApplicable)

	assert.Equal(t, billing.ModeRegular, quote.Totals.Mode)
	assertDecimal(t, "13300", quote.Totals.Subtotal)
	assertDecimal(t, "375", quote.Totals.GSTAmount)
	assertDecimal(t, "13575", quote.Totals.GrandTotal)
	assertDecimal(t, "8575", quote.Totals.RemainingAmount)
}

func TestQuoteErrors(t *testing.T) {
	h, _ := newTestBilling(t)
	ctx := context.Background()

	_, err := h.Quote(ctx, QuoteInput{NewItems: []NewItemInput{{SubcategoryID: 99, Weight: "1"}}})
	var lookup *billing.LookupError
	require.True(t, errors.As(err, &lookup))
	assert.Equal(t, "subcategory", lookup.Entity)

	_, err = h.Quote(ctx, QuoteInput{NewItems: []NewItemInput{{SubcategoryID: ringID, Weight: "abc"}}})
	var validation *billing.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "new_items[0].weight", validation.Field)

	_, err = h.Quote(ctx, QuoteInput{OldItems: []OldItemInput{{SubcategoryID: ringID, InitialWeight: "5", RatePerGram: "5800"}}})
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "final_weight", validation.Field)

	_, err = h.Quote(ctx, QuoteInput{ExchangeMode: "barter"})
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "exchange_mode", validation.Field)

	_, err = h.Quote(ctx, QuoteInput{Discount: "ten"})
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "discount", validation.Field)
}

func TestCreateSaleBuyOrnaments(t *testing.T) {
	h, db := newTestBilling(t)

	result, err := h.CreateSale(context.Background(), SaleInput{
		QuoteInput: QuoteInput{
			ExchangeMode: string(billing.ModeBuyOrnaments),
			NewItems:     []NewItemInput{{SubcategoryID: ringID, Weight: "2"}},
			OldItems:     []OldItemInput{{SubcategoryID: ringID, InitialWeight: "1.2", FinalWeight: "1", RatePerGram: "5800"}},
		},
		Customer: billing.Customer{Name: "Lakshmi"},
	})
	require.NoError(t, err)

	assert.Equal(t, "MGM_1", result.InvoiceNumber)
	require.NotNil(t, result.BillID)
	assertDecimal(t, "7075", result.Totals.GrandTotal)

	var bill models.Bill
	require.NoError(t, db.Preload("Items").Preload("Exchanges").First(&bill, *result.BillID).Error)
	assert.Equal(t, "Lakshmi", bill.CustomerName)
	assert.Equal(t, string(billing.ModeBuyOrnaments), bill.ExchangeMode)
	assert.Len(t, bill.Items, 1)
	require.Len(t, bill.Exchanges, 1)
	assert.Equal(t, models.ExchangeTypeOrnaments, bill.Exchanges[0].ExchangeType)
	assertDecimal(t, "7075", bill.GrandTotal)
}

func TestCreateSaleGetCash(t *testing.T) {
	h, db := newTestBilling(t)
	ctx := context.Background()

	result, err := h.CreateSale(ctx, SaleInput{
		QuoteInput: QuoteInput{
			ExchangeMode: string(billing.ModeGetCash),
			OldItems:     []OldItemInput{{SubcategoryID: ankletID, InitialWeight: "50", FinalWeight: "48", RatePerGram: "75"}},
		},
		Customer: billing.Customer{Name: "Ravi"},
	})
	require.NoError(t, err)

	assert.Nil(t, result.BillID)
	assert.Equal(t, "MGM_1", result.InvoiceNumber)
	require.Len(t, result.ExchangeIDs, 1)
	assertDecimal(t, "3600", result.Totals.CashAmount)

	var record models.ExchangeRecord
	require.NoError(t, db.First(&record, result.ExchangeIDs[0]).Error)
	assert.Equal(t, models.ExchangeTypeCash, record.ExchangeType)
	assert.Nil(t, record.BillID)

	var bills int64
	require.NoError(t, db.Model(&models.Bill{}).Count(&bills).Error)
	assert.Zero(t, bills)

	_, err = h.CreateSale(ctx, SaleInput{
		QuoteInput: QuoteInput{
			ExchangeMode: string(billing.ModeGetCash),
			NewItems:     []NewItemInput{{SubcategoryID: ringID, Weight: "1"}},
		},
		Customer: billing.Customer{Name: "Ravi"},
	})
	var validation *billing.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "new_items", validation.Field)
}

func TestCreateSaleRegularRejectsOldItems(t *testing.T) {
	h, _ := newTestBilling(t)

	_, err := h.CreateSale(context.Background(), SaleInput{
		QuoteInput: QuoteInput{
			NewItems: []NewItemInput{{SubcategoryID: ringID, Weight: "1"}},
			OldItems: []OldItemInput{{SubcategoryID: ringID, InitialWeight: "1", FinalWeight: "1", RatePerGram: "5800"}},
		},
		Customer: billing.Customer{Name: "Lakshmi"},
	})
	var validation *billing.ValidationError
	assert.True(t, errors.As(err, &validation))
}
