package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ExchangeTypeOrnaments = "ornaments"
	ExchangeTypeCash      = "cash"
)

type Bill struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceNumber   string    `gorm:"size:64;uniqueIndex;not null" json:"invoice_number"`
	CustomerName    string    `gorm:"size:255;not null" json:"customer_name"`
	CustomerPhone   *string   `gorm:"size:32" json:"customer_phone,omitempty"`
	CustomerAddress *string   `gorm:"type:text" json:"customer_address,omitempty"`
	CustomerGSTPAN  *string   `gorm:"column:customer_gst_pan;size:32" json:"customer_gst_pan,omitempty"`
	BillDate        time.Time `gorm:"index;not null" json:"bill_date"`
	ExchangeMode    string    `gorm:"size:32;not null" json:"exchange_mode"`

	GoldRate         decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"gold_rate"`
	SilverRate       decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"silver_rate"`
	GSTPercentage    decimal.Decimal `gorm:"column:gst_percentage;type:numeric(6,3);not null" json:"gst_percentage"`
	Subtotal         decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"subtotal"`
	GSTAmount        decimal.Decimal `gorm:"column:gst_amount;type:numeric(16,4);not null" json:"gst_amount"`
	OldOrnamentTotal decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"old_ornament_total"`
	DiscountAmount   decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"discount_amount"`
	GrandTotal       decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"grand_total"`
	CreditedAmount   decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"credited_amount"`
	RemainingAmount  decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"remaining_amount"`

	CreatedAt time.Time `json:"created_at"`

	Items     []BillItem       `gorm:"foreignKey:BillID" json:"items,omitempty"`
	Exchanges []ExchangeRecord `gorm:"foreignKey:BillID" json:"exchanges,omitempty"`
}

// BillItem keeps category and subcategory names as they were at sale time.
type BillItem struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	BillID          int64           `gorm:"index;not null" json:"bill_id"`
	CategoryName    string          `gorm:"size:100;not null" json:"category_name"`
	SubcategoryName string          `gorm:"size:100;not null" json:"subcategory_name"`
	Weight          decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"weight"`
	MetalRate       decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"metal_rate"`
	GoldAmount      decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"gold_amount"`
	SeikuliRate     decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"seikuli_rate"`
	SeikuliAmount   decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"seikuli_amount"`
	Total           decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"total"`
	GSTApplicable   bool            `gorm:"column:gst_applicable;not null" json:"gst_applicable"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ExchangeRecord struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceNumber   string          `gorm:"size:64;index;not null" json:"invoice_number"`
	CustomerName    string          `gorm:"size:255;not null" json:"customer_name"`
	CategoryName    string          `gorm:"size:100;not null" json:"category_name"`
	SubcategoryName string          `gorm:"size:100;not null" json:"subcategory_name"`
	InitialWeight   decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"initial_weight"`
	FinalWeight     decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"final_weight"`
	MetalRate       decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"metal_rate"`
	ExchangeValue   decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"exchange_value"`
	ExchangeType    string          `gorm:"size:16;index;not null" json:"exchange_type"`
	BillID          *int64          `gorm:"index" json:"bill_id"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
}

func (ExchangeRecord) TableName() string {
	return "old_exchanges"
}
