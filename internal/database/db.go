package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mgm-billing/internal/database/models"
)

// Rates used for a fresh settings row.
var (
	DefaultSilverRate = decimal.NewFromInt(7000)
	DefaultGSTRate    = decimal.NewFromInt(3)
)

func NewConnection(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		log.Fatal("DSN is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Subcategory{},
		&models.Settings{},
		&models.Bill{},
		&models.BillItem{},
		&models.ExchangeRecord{},
		&models.User{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// EnsureSettings creates the settings row when the table is empty.
func EnsureSettings(ctx context.Context, db *gorm.DB) (*models.Settings, error) {
	var settings models.Settings
	err := db.WithContext(ctx).Order("id ASC").First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	var zero int64
	settings = models.Settings{
		GoldRate:          decimal.Zero,
		SilverRate:        DefaultSilverRate,
		GSTRate:           DefaultGSTRate,
		LastInvoiceNumber: &zero,
	}
	if err := db.WithContext(ctx).Create(&settings).Error; err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}
	log.Printf("Seeded settings row %d", settings.ID)
	return &settings, nil
}
