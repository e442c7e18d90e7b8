package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"mgm-billing/internal/database/models"
	"mgm-billing/internal/events"
	"mgm-billing/internal/services/billing"
)

const (
	RATES_CACHE_KEY         = "billing:rates"
	CATEGORIES_CACHE_KEY    = "billing:categories"
	SUBCATEGORIES_CACHE_KEY = "billing:subcategories"
	CACHE_TTL_SHORT         = 5 * time.Minute
	CACHE_TTL_MEDIUM        = 30 * time.Minute
	CACHE_TTL_LONG          = 2 * time.Hour
)

type SettingsUpdate struct {
	GoldRate          *decimal.Decimal `json:"gold_rate"`
	SilverRate        *decimal.Decimal `json:"silver_rate"`
	GSTRate           *decimal.Decimal `json:"gst_rate"`
	LastInvoiceNumber *int64           `json:"last_invoice_number"`
}

type CategoryInput struct {
	Name string `json:"name" binding:"required"`
}

type SubcategoryInput struct {
	Name        string           `json:"name" binding:"required"`
	CategoryID  int64            `json:"category_id" binding:"required"`
	SeikuliRate *decimal.Decimal `json:"seikuli_rate"`
}

// SettingsHandler owns the rates row and the product taxonomy.
type SettingsHandler struct {
	db        *gorm.DB
	redis     *redis.Client
	publisher events.Publisher
}

func NewSettingsHandler(db *gorm.DB, redisClient *redis.Client, publisher events.Publisher) *SettingsHandler {
	return &SettingsHandler{
		db:        db,
		redis:     redisClient,
		publisher: publisher,
	}
}

func (s *SettingsHandler) InvalidateCatalogCaches(ctx context.Context) {
	_ = s.redis.Del(ctx, CATEGORIES_CACHE_KEY, SUBCATEGORIES_CACHE_KEY)
}

func (s *SettingsHandler) readCache(ctx context.Context, key string, dest any) bool {
	val, err := s.redis.Get(ctx, key).Result()
	if err == nil {
		if err := json.Unmarshal([]byte(val), dest); err == nil {
			return true
		}
	} else if err != redis.Nil {
		log.Printf("Redis error on GET %s: %v. Falling back to DB.", key, err)
	}
	return false
}

func (s *SettingsHandler) writeCache(ctx context.Context, key string, value any, ttl time.Duration) {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		log.Printf("Failed to set cache for key %s: %v", key, err)
	}
}

func (s *SettingsHandler) publish(ctx context.Context, eventType, table string, id int64, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.New(eventType, table, id, payload)); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

// -- Rates --

func (s *SettingsHandler) GetSettings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	if err := s.db.WithContext(ctx).Order("id ASC").First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &billing.LookupError{Entity: "settings", ID: "row"}
		}
		return nil, &billing.PersistenceError{Op: "load settings", Err: err}
	}
	return &settings, nil
}

// RateSnapshot returns the current rates, served from cache while they are unchanged.
func (s *SettingsHandler) RateSnapshot(ctx context.Context) (billing.RateSnapshot, error) {
	var snapshot billing.RateSnapshot
	if s.readCache(ctx, RATES_CACHE_KEY, &snapshot) {
		return snapshot, nil
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return billing.RateSnapshot{}, err
	}
	snapshot = billing.RateSnapshot{
		GoldRate:   settings.GoldRate,
		SilverRate: settings.SilverRate,
		GSTRate:    settings.GSTRate,
	}
	s.writeCache(ctx, RATES_CACHE_KEY, snapshot, CACHE_TTL_SHORT)
	return snapshot, nil
}

func (s *SettingsHandler) UpdateSettings(ctx context.Context, update SettingsUpdate) (*models.Settings, error) {
	updates := map[string]interface{}{}
	rates := []struct {
		field  string
		column string
		value  *decimal.Decimal
	}{
		{"gold_rate", "gold_rate", update.GoldRate},
		{"silver_rate", "silver_rate", update.SilverRate},
		{"gst_rate", "gst_rate", update.GSTRate},
	}
	for _, r := range rates {
		if r.value == nil {
			continue
		}
		if r.value.IsNegative() {
			return nil, &billing.ValidationError{Field: r.field, Message: "must not be negative"}
		}
		updates[r.column] = *r.value
	}
	if update.LastInvoiceNumber != nil {
		if *update.LastInvoiceNumber < 0 {
			return nil, &billing.ValidationError{Field: "last_invoice_number", Message: "must not be negative"}
		}
		updates["last_invoice_number"] = *update.LastInvoiceNumber
	}
	if len(updates) == 0 {
		return nil, &billing.ValidationError{Message: "no settings to update"}
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	// The invoice counter never moves backwards.
	tx := s.db.WithContext(ctx).Model(settings)
	if update.LastInvoiceNumber != nil {
		tx = tx.Where("COALESCE(last_invoice_number, 0) <= ?", *update.LastInvoiceNumber)
	}
	result := tx.Updates(updates)
	if result.Error != nil {
		return nil, &billing.PersistenceError{Op: "update settings", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		if update.LastInvoiceNumber != nil {
			return nil, &billing.ValidationError{Field: "last_invoice_number", Message: "must not be lower than the last issued invoice number"}
		}
		return nil, &billing.LookupError{Entity: "settings", ID: settings.ID}
	}
	_ = s.redis.Del(ctx, RATES_CACHE_KEY)

	settings, err = s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.SettingsUpdated, "settings", settings.ID, settings)
	return settings, nil
}

// -- Categories --

func (s *SettingsHandler) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if s.readCache(ctx, CATEGORIES_CACHE_KEY, &categories) {
		return categories, nil
	}

	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, &billing.PersistenceError{Op: "list categories", Err: err}
	}
	s.writeCache(ctx, CATEGORIES_CACHE_KEY, categories, CACHE_TTL_LONG)
	return categories, nil
}

func (s *SettingsHandler) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &billing.LookupError{Entity: "category", ID: id}
		}
		return nil, &billing.PersistenceError{Op: "load category", Err: err}
	}
	return &category, nil
}

func (s *SettingsHandler) ensureCategoryNameFree(ctx context.Context, name string, exceptID int64) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), exceptID).
		Count(&count).Error; err != nil {
		return &billing.PersistenceError{Op: "check category name", Err: err}
	}
	if count > 0 {
		return categoryExists(name)
	}
	return nil
}

func categoryExists(name string) error {
	return &billing.ConflictError{Message: fmt.Sprintf("category %q already exists", name)}
}

func (s *SettingsHandler) CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &billing.ValidationError{Field: "name", Message: "is required"}
	}
	if err := s.ensureCategoryNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	category := models.Category{Name: name}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if billing.IsUniqueViolation(err) {
			return nil, categoryExists(name)
		}
		return nil, &billing.PersistenceError{Op: "create category", Err: err}
	}

	s.InvalidateCatalogCaches(ctx)
	s.publish(ctx, events.CategoryCreated, "categories", category.ID, category)
	return &category, nil
}

func (s *SettingsHandler) UpdateCategory(ctx context.Context, id int64, input CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &billing.ValidationError{Field: "name", Message: "is required"}
	}
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCategoryNameFree(ctx, name, id); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(category).Update("name", name).Error; err != nil {
		if billing.IsUniqueViolation(err) {
			return nil, categoryExists(name)
		}
		return nil, &billing.PersistenceError{Op: "update category", Err: err}
	}
	category.Name = name

	s.InvalidateCatalogCaches(ctx)
	s.publish(ctx, events.CategoryUpdated, "categories", category.ID, category)
	return category, nil
}

// DeleteCategory refuses while subcategories still point at the category. Stored bills keep their copied names.
func (s *SettingsHandler) DeleteCategory(ctx context.Context, id int64) error {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return err
	}

	var subcount int64
	if err := s.db.WithContext(ctx).Model(&models.Subcategory{}).Where("category_id = ?", id).Count(&subcount).Error; err != nil {
		return &billing.PersistenceError{Op: "count subcategories", Err: err}
	}
	if subcount > 0 {
		return &billing.ConflictError{Message: fmt.Sprintf("category %q still has %d subcategories", category.Name, subcount)}
	}

	if err := s.db.WithContext(ctx).Delete(&models.Category{}, id).Error; err != nil {
		return &billing.PersistenceError{Op: "delete category", Err: err}
	}

	s.InvalidateCatalogCaches(ctx)
	s.publish(ctx, events.CategoryDeleted, "categories", id, nil)
	return nil
}

// -- Subcategories --

func (s *SettingsHandler) ListSubcategories(ctx context.Context) ([]models.Subcategory, error) {
	var subcategories []models.Subcategory
	if s.readCache(ctx, SUBCATEGORIES_CACHE_KEY, &subcategories) {
		return subcategories, nil
	}

	if err := s.db.WithContext(ctx).Order("name ASC").Find(&subcategories).Error; err != nil {
		return nil, &billing.PersistenceError{Op: "list subcategories", Err: err}
	}
	s.writeCache(ctx, SUBCATEGORIES_CACHE_KEY, subcategories, CACHE_TTL_LONG)
	return subcategories, nil
}

func (s *SettingsHandler) SubcategoriesOf(ctx context.Context, categoryID int64) ([]models.Subcategory, error) {
	all, err := s.ListSubcategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Subcategory, 0, len(all))
	for _, sub := range all {
		if sub.CategoryID == categoryID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *SettingsHandler) validateSubcategory(ctx context.Context, input SubcategoryInput) (string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", &billing.ValidationError{Field: "name", Message: "is required"}
	}
	if input.SeikuliRate != nil && input.SeikuliRate.IsNegative() {
		return "", &billing.ValidationError{Field: "seikuli_rate", Message: "must not be negative"}
	}
	if _, err := s.GetCategory(ctx, input.CategoryID); err != nil {
		return "", err
	}
	return name, nil
}

func (s *SettingsHandler) CreateSubcategory(ctx context.Context, input SubcategoryInput) (*models.Subcategory, error) {
	name, err := s.validateSubcategory(ctx, input)
	if err != nil {
		return nil, err
	}

	sub := models.Subcategory{
		Name:        name,
		CategoryID:  input.CategoryID,
		SeikuliRate: input.SeikuliRate,
	}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, &billing.PersistenceError{Op: "create subcategory", Err: err}
	}

	s.InvalidateCatalogCaches(ctx)
	s.publish(ctx, events.SubcategoryCreated, "subcategories", sub.ID, sub)
	return &sub, nil
}

// UpdateSubcategory replaces every field; a missing seikuli rate clears the surcharge.
func (s *SettingsHandler) UpdateSubcategory(ctx context.Context, id int64, input SubcategoryInput) (*models.Subcategory, error) {
	var sub models.Subcategory
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &billing.LookupError{Entity: "subcategory", ID: id}
		}
		return nil, &billing.PersistenceError{Op: "load subcategory", Err: err}
	}
	name, err := s.validateSubcategory(ctx, input)
	if err != nil {
		return nil, err
	}

	sub.Name = name
	sub.CategoryID = input.CategoryID
	sub.SeikuliRate = input.SeikuliRate
	if err := s.db.WithContext(ctx).Save(&sub).Error; err != nil {
		return nil, &billing.PersistenceError{Op: "update subcategory", Err: err}
	}

	s.InvalidateCatalogCaches(ctx)
	s.publish(ctx, events.SubcategoryUpdated, "subcategories", sub.ID, sub)
	return &sub, nil
}

func (s *SettingsHandler) DeleteSubcategory(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&models.Subcategory{}, id)
	if result.Error != nil {
		return &billing.PersistenceError{Op: "delete subcategory", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return &billing.LookupError{Entity: "subcategory", ID: id}
	}

	s.InvalidateCatalogCaches(ctx)
	s.publish(ctx, events.SubcategoryDeleted, "subcategories", id, nil)
	return nil
}
