package billing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mgm-billing/internal/database/models"
)

const DefaultInvoicePrefix = "MGM_"

// InvoiceSequencer hands out invoice numbers from the settings row counter.
type InvoiceSequencer struct {
	db     *gorm.DB
	prefix string
}

func NewInvoiceSequencer(db *gorm.DB, prefix string) *InvoiceSequencer {
	if prefix == "" {
		prefix = DefaultInvoicePrefix
	}
	return &InvoiceSequencer{db: db, prefix: prefix}
}

func (s *InvoiceSequencer) Format(n int64) string {
	return fmt.Sprintf("%s%d", s.prefix, n)
}

// Next increments the counter inside tx and returns the formatted number.
// The row stays locked until tx ends, so concurrent sales queue behind it.
func (s *InvoiceSequencer) Next(tx *gorm.DB) (string, error) {
	var settings models.Settings
	if err := tx.Select("id").Order("id ASC").First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", &PersistenceError{Op: "allocate invoice number", Err: errors.New("settings row missing")}
		}
		return "", classify(err)
	}

	result := tx.Model(&models.Settings{}).
		Where("id = ?", settings.ID).
		UpdateColumn("last_invoice_number", gorm.Expr("COALESCE(last_invoice_number, 0) + 1"))
	if result.Error != nil {
		return "", classify(result.Error)
	}
	if result.RowsAffected != 1 {
		return "", &PersistenceError{Op: "allocate invoice number", Err: fmt.Errorf("updated %d settings rows", result.RowsAffected)}
	}

	var next int64
	if err := tx.Model(&models.Settings{}).
		Where("id = ?", settings.ID).
		Select("last_invoice_number").
		Scan(&next).Error; err != nil {
		return "", classify(err)
	}

	return s.Format(next), nil
}

// NextInvoiceNumber allocates a number in its own transaction.
func (s *InvoiceSequencer) NextInvoiceNumber(ctx context.Context) (string, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return "", &PersistenceError{Op: "begin transaction", Err: tx.Error}
	}

	number, err := s.Next(tx)
	if err != nil {
		tx.Rollback()
		return "", asPersistence("allocate invoice number", err)
	}

	if err := tx.Commit().Error; err != nil {
		return "", asPersistence("commit invoice number", classify(err))
	}
	return number, nil
}
