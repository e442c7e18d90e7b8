package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Subcategories []Subcategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"-"`
}

type Subcategory struct {
	ID          int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string           `gorm:"size:100;not null" json:"name"`
	CategoryID  int64            `gorm:"index;not null" json:"category_id"`
	SeikuliRate *decimal.Decimal `gorm:"type:numeric(14,4)" json:"seikuli_rate"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Settings is a single-row table holding the day's metal rates and the invoice counter.
type Settings struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	GoldRate          decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0" json:"gold_rate"`
	SilverRate        decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0" json:"silver_rate"`
	GSTRate           decimal.Decimal `gorm:"column:gst_rate;type:numeric(6,3);not null;default:0" json:"gst_rate"`
	LastInvoiceNumber *int64          `json:"last_invoice_number"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Settings) TableName() string {
	return "settings"
}
