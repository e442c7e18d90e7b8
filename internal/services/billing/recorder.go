package billing

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"mgm-billing/internal/database/models"
	"mgm-billing/internal/events"
)

const DefaultMaxAttempts = 3

type Customer struct {
	Name    string  `json:"name"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	GSTPAN  *string `json:"gst_pan,omitempty"`
}

// Sale is a priced and aggregated regular or buy-ornaments bill ready to be stored.
type Sale struct {
	Customer   Customer
	BillDate   time.Time
	GoldRate   decimal.Decimal
	SilverRate decimal.Decimal
	Totals     BillTotals
	NewItems   []NewPurchaseLineItem
	OldItems   []OldOrnamentLineItem
}

type CashExchange struct {
	Customer Customer
	OldItems []OldOrnamentLineItem
}

type SaleReceipt struct {
	BillID        int64  `json:"bill_id"`
	InvoiceNumber string `json:"invoice_number"`
}

type ExchangeReceipt struct {
	InvoiceNumber string  `json:"invoice_number"`
	ExchangeIDs   []int64 `json:"exchange_ids"`
}

type InvoiceRecorder struct {
	db          *gorm.DB
	sequencer   *InvoiceSequencer
	publisher   events.Publisher
	maxAttempts int
	now         func() time.Time
}

func NewInvoiceRecorder(db *gorm.DB, sequencer *InvoiceSequencer, publisher events.Publisher, maxAttempts int) *InvoiceRecorder {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &InvoiceRecorder{
		db:          db,
		sequencer:   sequencer,
		publisher:   publisher,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func validateCustomer(c Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("customer_name", "is required")
	}
	return nil
}

func validateSale(sale Sale) error {
	if err := validateCustomer(sale.Customer); err != nil {
		return err
	}
	switch sale.Totals.Mode {
	case ModeRegular:
		if len(sale.OldItems) > 0 {
			return invalid("old_items", "are not allowed in regular mode")
		}
	case ModeBuyOrnaments:
	case ModeGetCash:
		return invalid("exchange_mode", "get-cash exchanges do not create a bill")
	default:
		return invalid("exchange_mode", "unknown mode %q", string(sale.Totals.Mode))
	}
	if len(sale.NewItems) == 0 {
		return invalid("new_items", "at least one item is required")
	}
	return nil
}

// RecordSale stores the bill, its items and any traded-in ornaments under a freshly allocated invoice number.
func (r *InvoiceRecorder) RecordSale(ctx context.Context, sale Sale) (*SaleReceipt, error) {
	if err := validateSale(sale); err != nil {
		return nil, err
	}

	billDate := sale.BillDate
	if billDate.IsZero() {
		billDate = r.now()
	}
	billDate = billDate.UTC()

	var receipt SaleReceipt
	var exchangeIDs []int64
	err := r.withRetry(ctx, "record sale", func(tx *gorm.DB) error {
		invoiceNumber, err := r.sequencer.Next(tx)
		if err != nil {
			return err
		}

		totals := sale.Totals
		bill := models.Bill{
			InvoiceNumber:    invoiceNumber,
			CustomerName:     strings.TrimSpace(sale.Customer.Name),
			CustomerPhone:    sale.Customer.Phone,
			CustomerAddress:  sale.Customer.Address,
			CustomerGSTPAN:   sale.Customer.GSTPAN,
			BillDate:         billDate,
			ExchangeMode:     string(totals.Mode),
			GoldRate:         sale.GoldRate,
			SilverRate:       sale.SilverRate,
			GSTPercentage:    totals.GSTPercentage,
			Subtotal:         totals.Subtotal,
			GSTAmount:        totals.GSTAmount,
			OldOrnamentTotal: totals.OldOrnamentTotal,
			DiscountAmount:   totals.Discount,
			GrandTotal:       totals.GrandTotal,
			CreditedAmount:   totals.Credited,
			RemainingAmount:  totals.RemainingAmount,
		}
		if err := tx.Create(&bill).Error; err != nil {
			return err
		}

		items := make([]models.BillItem, 0, len(sale.NewItems))
		for _, item := range sale.NewItems {
			items = append(items, models.BillItem{
				BillID:          bill.ID,
				CategoryName:    item.CategoryName,
				SubcategoryName: item.SubcategoryName,
				Weight:          item.Weight,
				MetalRate:       item.MetalRate,
				GoldAmount:      item.BaseAmount,
				SeikuliRate:     item.SeikuliRate,
				SeikuliAmount:   item.SeikuliAmount,
				Total:           item.LineTotal,
				GSTApplicable:   item.GSTApplicable,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		ids, err := insertExchanges(tx, invoiceNumber, bill.CustomerName, models.ExchangeTypeOrnaments, &bill.ID, sale.OldItems)
		if err != nil {
			return err
		}

		receipt = SaleReceipt{BillID: bill.ID, InvoiceNumber: invoiceNumber}
		exchangeIDs = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := events.New(events.BillCreated, "bills", receipt.BillID, receipt)
	event.InvoiceNumber = receipt.InvoiceNumber
	r.publish(ctx, event)
	if len(exchangeIDs) > 0 {
		r.publishExchange(ctx, receipt.InvoiceNumber, exchangeIDs)
	}

	return &receipt, nil
}

// RecordCashExchange stores a trade-in paid out in cash. No bill is created but the payout still gets an invoice number.
func (r *InvoiceRecorder) RecordCashExchange(ctx context.Context, exchange CashExchange) (*ExchangeReceipt, error) {
	if err := validateCustomer(exchange.Customer); err != nil {
		return nil, err
	}
	if len(exchange.OldItems) == 0 {
		return nil, invalid("old_items", "at least one ornament is required")
	}

	var receipt ExchangeReceipt
	err := r.withRetry(ctx, "record cash exchange", func(tx *gorm.DB) error {
		invoiceNumber, err := r.sequencer.Next(tx)
		if err != nil {
			return err
		}

		ids, err := insertExchanges(tx, invoiceNumber, strings.TrimSpace(exchange.Customer.Name), models.ExchangeTypeCash, nil, exchange.OldItems)
		if err != nil {
			return err
		}

		receipt = ExchangeReceipt{InvoiceNumber: invoiceNumber, ExchangeIDs: ids}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.publishExchange(ctx, receipt.InvoiceNumber, receipt.ExchangeIDs)
	return &receipt, nil
}

func insertExchanges(tx *gorm.DB, invoiceNumber, customerName, exchangeType string, billID *int64, oldItems []OldOrnamentLineItem) ([]int64, error) {
	if len(oldItems) == 0 {
		return nil, nil
	}

	records := make([]models.ExchangeRecord, 0, len(oldItems))
	for _, item := range oldItems {
		records = append(records, models.ExchangeRecord{
			InvoiceNumber:   invoiceNumber,
			CustomerName:    customerName,
			CategoryName:    item.CategoryName,
			SubcategoryName: item.SubcategoryName,
			InitialWeight:   item.InitialWeight,
			FinalWeight:     item.FinalWeight,
			MetalRate:       item.RatePerGram,
			ExchangeValue:   item.Value,
			ExchangeType:    exchangeType,
			BillID:          billID,
		})
	}
	if err := tx.Create(&records).Error; err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

// withRetry runs fn in a fresh transaction, repeating it while the database reports a serialization conflict.
func (r *InvoiceRecorder) withRetry(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	for attempt := 1; ; attempt++ {
		err := r.inTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt >= r.maxAttempts {
			return asPersistence(op, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return asPersistence(op, ctxErr)
		}
		log.Printf("%s: conflict on attempt %d/%d, retrying: %v", op, attempt, r.maxAttempts, err)
	}
}

func (r *InvoiceRecorder) inTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return classify(tx.Error)
	}
	defer func() {
		if rec := recover(); rec != nil {
			tx.Rollback()
			panic(rec)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return classify(err)
	}

	if err := tx.Commit().Error; err != nil {
		return classify(err)
	}
	return nil
}

func (r *InvoiceRecorder) publishExchange(ctx context.Context, invoiceNumber string, ids []int64) {
	var first int64
	if len(ids) > 0 {
		first = ids[0]
	}
	event := events.New(events.ExchangeCreated, "old_exchanges", first, map[string]any{
		"invoice_number": invoiceNumber,
		"exchange_ids":   ids,
	})
	event.InvoiceNumber = invoiceNumber
	r.publish(ctx, event)
}

func (r *InvoiceRecorder) publish(ctx context.Context, event events.Event) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish %s event for %s: %v", event.Type, event.InvoiceNumber, err)
	}
}
