package invoice

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mgm-billing/config"
	"mgm-billing/internal/database/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var profile = config.ShopProfile{
	Name:    "MGM JEWELLERS",
	Address: "326/1 Rajapalayam Main Road",
	Phones:  []string{"9842112416"},
	GSTIN:   "33ABLFM1188M1ZU",
	Bank:    config.BankDetails{AccountNumber: "40836933733", IFSC: "SBIN0071235"},
}

func sampleBill() models.Bill {
	phone := "98400 00000"
	billID := int64(1)
	return models.Bill{
		ID:               billID,
		InvoiceNumber:    "MGM_42",
		CustomerName:     "Ravi",
		CustomerPhone:    &phone,
		BillDate:         time.Date(2024, 3, 5, 20, 0, 0, 0, time.UTC),
		ExchangeMode:     "buy-ornaments",
		GoldRate:         d("6000"),
		GSTPercentage:    d("3"),
		Subtotal:         d("65000"),
		GSTAmount:        d("1950"),
		OldOrnamentTotal: d("104400"),
		DiscountAmount:   d("1000"),
		GrandTotal:       d("-38450"),
		RemainingAmount:  d("-38450"),
		Items: []models.BillItem{{
			CategoryName:    "Gold",
			SubcategoryName: "Chain",
			Weight:          d("10"),
			MetalRate:       d("6000"),
			GoldAmount:      d("60000"),
			SeikuliAmount:   d("5000"),
			Total:           d("65000"),
			GSTApplicable:   true,
		}},
		Exchanges: []models.ExchangeRecord{{
			CategoryName:    "Gold",
			SubcategoryName: "Bangle",
			InitialWeight:   d("20"),
			FinalWeight:     d("18"),
			MetalRate:       d("5800"),
			ExchangeValue:   d("104400"),
			ExchangeType:    models.ExchangeTypeOrnaments,
			BillID:          &billID,
		}},
	}
}

func TestBuildSaleInvoice(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	doc := Build(profile, sampleBill(), ist)

	assert.Equal(t, TitleSale, doc.Title)
	assert.Equal(t, "MGM_42", doc.InvoiceNumber)
	assert.Equal(t, "06/03/2024", doc.Date)
	assert.True(t, doc.ShowGST)
	assert.Equal(t, "33ABLFM1188M1ZU", doc.Shop.GSTIN)
	assert.Equal(t, "Gold Price", doc.RateHeader)
	assert.Equal(t, "98400 00000", doc.Customer.Phone)

	require.Len(t, doc.Rows, 2)
	item := doc.Rows[0]
	assert.Equal(t, 1, item.SNo)
	assert.Equal(t, "10.000", item.Weight)
	assert.Equal(t, "6000.00", item.Rate)
	assert.Equal(t, "65000.00", item.Amount)
	assert.Equal(t, "1950.00", item.GST)
	assert.Equal(t, "66950.00", item.Total)

	exchange := doc.Rows[1]
	assert.Equal(t, 2, exchange.SNo)
	assert.True(t, exchange.Exchange)
	assert.Equal(t, "Gold (Exchange)", exchange.Category)
	assert.Equal(t, "18.000", exchange.Weight)
	assert.Equal(t, "-104400.00", exchange.Total)

	assert.Equal(t, "1950.00", doc.Totals.GST)
	assert.Equal(t, "975.00", doc.Totals.CGST)
	assert.Equal(t, "975.00", doc.Totals.SGST)
	assert.Equal(t, "-1000.00", doc.Totals.Discount)
	assert.Equal(t, "-38450.00", doc.Totals.NetPayable)
}

func TestBuildHidesGSTINWithoutTax(t *testing.T) {
	bill := sampleBill()
	bill.GSTAmount = decimal.Zero
	bill.DiscountAmount = decimal.Zero
	bill.Items[0].GSTApplicable = false
	bill.Items[0].CategoryName = "Silver"

	doc := Build(profile, bill, nil)
	assert.False(t, doc.ShowGST)
	assert.Empty(t, doc.Shop.GSTIN)
	assert.Empty(t, doc.Totals.Discount)
	assert.Equal(t, "-", doc.Rows[0].GST)
	assert.Equal(t, "Silver Price", doc.RateHeader)
	assert.Equal(t, "05/03/2024", doc.Date)
}

func TestRateHeaderMixedMetals(t *testing.T) {
	items := []models.BillItem{{CategoryName: "Gold"}, {CategoryName: "Silver"}}
	assert.Equal(t, "Metal Price", rateHeader(items))
	assert.Equal(t, "Metal Price", rateHeader([]models.BillItem{{CategoryName: "Others"}}))
}

func TestBuildPayout(t *testing.T) {
	records := []models.ExchangeRecord{
		{InvoiceNumber: "MGM_7", CustomerName: "Meena", CategoryName: "Gold", SubcategoryName: "Bangle",
			FinalWeight: d("18"), MetalRate: d("5800"), ExchangeValue: d("104400"),
			CreatedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)},
		{InvoiceNumber: "MGM_7", CustomerName: "Meena", CategoryName: "Silver", SubcategoryName: "Anklet",
			FinalWeight: d("50.5"), MetalRate: d("80"), ExchangeValue: d("4040"),
			CreatedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)},
	}

	doc := BuildPayout(profile, records, time.UTC)
	assert.Equal(t, TitlePayout, doc.Title)
	assert.Equal(t, "get-cash", doc.ExchangeMode)
	assert.Equal(t, "108440.00", doc.Totals.NetPayable)
	assert.Equal(t, "MGM_7", doc.InvoiceNumber)
	assert.Equal(t, "Meena", doc.Customer.Name)
	assert.Equal(t, "05/03/2024", doc.Date)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "50.500", doc.Rows[1].Weight)
	assert.Equal(t, "108440.00", doc.Totals.OldOrnaments)
	assert.Equal(t, "0.00", doc.Totals.GST)
	assert.Empty(t, doc.Shop.GSTIN)
}

func TestBuildPayoutForBillTradeIn(t *testing.T) {
	billID := int64(3)
	records := []models.ExchangeRecord{
		{InvoiceNumber: "MGM_3", CustomerName: "Lakshmi", CategoryName: "Gold", SubcategoryName: "Ring",
			FinalWeight: d("1"), MetalRate: d("5800"), ExchangeValue: d("5800"),
			ExchangeType: models.ExchangeTypeOrnaments, BillID: &billID,
			CreatedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)},
	}

	doc := BuildPayout(profile, records, time.UTC)
	assert.Equal(t, TitleTradeIn, doc.Title)
	assert.Equal(t, "buy-ornaments", doc.ExchangeMode)
	assert.Equal(t, "5800.00", doc.Totals.OldOrnaments)
	assert.Equal(t, "0.00", doc.Totals.NetPayable)
	assert.Equal(t, "0.00", doc.Totals.Remaining)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1234.57", Money(d("1234.565")))
	assert.Equal(t, "0.10", Money(d("0.1")))
	assert.Equal(t, "2.346", Weight(d("2.3456")))
}
