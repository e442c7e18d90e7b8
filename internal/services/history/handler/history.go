package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"mgm-billing/internal/database/models"
	"mgm-billing/internal/services/billing"
)

const dateLayout = "2006-01-02"

// RangeQuery selects whole days in the shop timezone. Blank dates mean today.
type RangeQuery struct {
	StartDate     string `form:"start_date" json:"start_date"`
	EndDate       string `form:"end_date" json:"end_date"`
	InvoiceNumber string `form:"invoice_number" json:"invoice_number"`
	ExchangeType  string `form:"exchange_type" json:"exchange_type"`
}

type DashboardSummary struct {
	GoldRate       decimal.Decimal `json:"gold_rate"`
	SilverRate     decimal.Decimal `json:"silver_rate"`
	GSTRate        decimal.Decimal `json:"gst_rate"`
	CategoryCount  int64           `json:"category_count"`
	TodayBills     int64           `json:"today_bills"`
	TodayExchanges int64           `json:"today_exchanges"`
	TodaySales     decimal.Decimal `json:"today_sales"`
}

type HistoryHandler struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

func NewHistoryHandler(db *gorm.DB, loc *time.Location) *HistoryHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryHandler{db: db, loc: loc, now: time.Now}
}

func (s *HistoryHandler) startOfDay(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// DayRange resolves a query to [start, end) in UTC.
func (s *HistoryHandler) DayRange(q RangeQuery) (time.Time, time.Time, error) {
	today := s.startOfDay(s.now())

	start := today
	if q.StartDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, q.StartDate, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, &billing.ValidationError{Field: "start_date", Message: "expected YYYY-MM-DD"}
		}
		start = parsed
	}

	end := start
	if q.EndDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, q.EndDate, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, &billing.ValidationError{Field: "end_date", Message: "expected YYYY-MM-DD"}
		}
		end = parsed
	} else if q.StartDate == "" {
		end = today
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, &billing.ValidationError{Field: "end_date", Message: "is before start_date"}
	}

	return start.UTC(), end.AddDate(0, 0, 1).UTC(), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// invoiceFilter matches invoice numbers containing the text, ignoring case.
func invoiceFilter(tx *gorm.DB, invoice string) *gorm.DB {
	invoice = strings.TrimSpace(invoice)
	if invoice == "" {
		return tx
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(invoice)) + "%"
	return tx.Where(`LOWER(invoice_number) LIKE ? ESCAPE '\'`, pattern)
}

func (s *HistoryHandler) ListBills(ctx context.Context, q RangeQuery) ([]models.Bill, error) {
	start, end, err := s.DayRange(q)
	if err != nil {
		return nil, err
	}

	var bills []models.Bill
	tx := s.db.WithContext(ctx).
		Where("bill_date >= ? AND bill_date < ?", start, end)
	if err := invoiceFilter(tx, q.InvoiceNumber).
		Order("bill_date DESC, id DESC").
		Find(&bills).Error; err != nil {
		return nil, &billing.PersistenceError{Op: "list bills", Err: err}
	}
	return bills, nil
}

func (s *HistoryHandler) ListExchanges(ctx context.Context, q RangeQuery) ([]models.ExchangeRecord, error) {
	start, end, err := s.DayRange(q)
	if err != nil {
		return nil, err
	}
	switch q.ExchangeType {
	case "", models.ExchangeTypeCash, models.ExchangeTypeOrnaments:
	default:
		return nil, &billing.ValidationError{Field: "exchange_type", Message: "must be cash or ornaments"}
	}

	var records []models.ExchangeRecord
	tx := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start, end)
	if q.ExchangeType != "" {
		tx = tx.Where("exchange_type = ?", q.ExchangeType)
	}
	if err := invoiceFilter(tx, q.InvoiceNumber).
		Order("created_at DESC, id DESC").
		Find(&records).Error; err != nil {
		return nil, &billing.PersistenceError{Op: "list exchanges", Err: err}
	}
	return records, nil
}

// GetBill loads a bill with its items and the ornaments traded in against it.
func (s *HistoryHandler) GetBill(ctx context.Context, id int64) (*models.Bill, error) {
	var bill models.Bill
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Exchanges", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&bill, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &billing.LookupError{Entity: "bill", ID: id}
		}
		return nil, &billing.PersistenceError{Op: "load bill", Err: err}
	}
	return &bill, nil
}

func (s *HistoryHandler) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	var settings models.Settings
	if err := s.db.WithContext(ctx).Order("id ASC").First(&settings).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &billing.PersistenceError{Op: "load settings", Err: err}
	}

	start := s.startOfDay(s.now()).UTC()
	end := start.AddDate(0, 0, 1)

	summary := &DashboardSummary{
		GoldRate:   settings.GoldRate,
		SilverRate: settings.SilverRate,
		GSTRate:    settings.GSTRate,
		TodaySales: decimal.Zero,
	}

	if err := s.db.WithContext(ctx).Model(&models.Category{}).Count(&summary.CategoryCount).Error; err != nil {
		return nil, &billing.PersistenceError{Op: "count categories", Err: err}
	}
	if err := s.db.WithContext(ctx).Model(&models.ExchangeRecord{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&summary.TodayExchanges).Error; err != nil {
		return nil, &billing.PersistenceError{Op: "count exchanges", Err: err}
	}

	var totals []decimal.Decimal
	if err := s.db.WithContext(ctx).Model(&models.Bill{}).
		Where("bill_date >= ? AND bill_date < ?", start, end).
		Pluck("grand_total", &totals).Error; err != nil {
		return nil, &billing.PersistenceError{Op: "sum bills", Err: err}
	}
	summary.TodayBills = int64(len(totals))
	for _, total := range totals {
		summary.TodaySales = summary.TodaySales.Add(total)
	}

	return summary, nil
}

// ExchangesByInvoice returns every old-ornament record filed under one invoice number.
func (s *HistoryHandler) ExchangesByInvoice(ctx context.Context, invoice string) ([]models.ExchangeRecord, error) {
	invoice = strings.TrimSpace(invoice)
	if invoice == "" {
		return nil, &billing.ValidationError{Field: "invoice_number", Message: "is required"}
	}

	var records []models.ExchangeRecord
	if err := s.db.WithContext(ctx).
		Where("invoice_number = ?", invoice).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, &billing.PersistenceError{Op: "load exchanges", Err: err}
	}
	if len(records) == 0 {
		return nil, &billing.LookupError{Entity: "exchange", ID: invoice}
	}
	return records, nil
}
