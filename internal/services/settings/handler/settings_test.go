package handler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mgm-billing/internal/database/dbtest"
	"mgm-billing/internal/database/models"
	"mgm-billing/internal/events"
	"mgm-billing/internal/services/billing"
)

type capturePublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *capturePublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, event.Type)
	return nil
}

func newTestHandler(t *testing.T) (*SettingsHandler, *gorm.DB, *miniredis.Miniredis, *capturePublisher) {
	t.Helper()
	db := dbtest.Open(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	pub := &capturePublisher{}
	return NewSettingsHandler(db, client, pub), db, mr, pub
}

func dec(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestSeededSettings(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	settings, err := h.GetSettings(context.Background())
	require.NoError(t, err)
	assert.True(t, settings.SilverRate.Equal(decimal.NewFromInt(7000)))
	assert.True(t, settings.GSTRate.Equal(decimal.NewFromInt(3)))
	require.NotNil(t, settings.LastInvoiceNumber)
	assert.Zero(t, *settings.LastInvoiceNumber)
}

func TestUpdateSettingsIsPartial(t *testing.T) {
	h, _, _, pub := newTestHandler(t)
	ctx := context.Background()

	settings, err := h.UpdateSettings(ctx, SettingsUpdate{GoldRate: dec("6150.50")})
	require.NoError(t, err)
	assert.True(t, settings.GoldRate.Equal(*dec("6150.5")))
	assert.True(t, settings.SilverRate.Equal(decimal.NewFromInt(7000)))

	counter := int64(120)
	settings, err = h.UpdateSettings(ctx, SettingsUpdate{LastInvoiceNumber: &counter})
	require.NoError(t, err)
	assert.Equal(t, int64(120), *settings.LastInvoiceNumber)
	assert.True(t, settings.GoldRate.Equal(*dec("6150.5")))

	assert.Equal(t, []string{events.SettingsUpdated, events.SettingsUpdated}, pub.types)
}

func TestUpdateSettingsValidation(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	ctx := context.Background()

	_, err := h.UpdateSettings(ctx, SettingsUpdate{})
	var verr *billing.ValidationError
	require.True(t, errors.As(err, &verr))

	_, err = h.UpdateSettings(ctx, SettingsUpdate{GSTRate: dec("-1")})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "gst_rate", verr.Field)
}

func TestUpdateSettingsRejectsCounterRewind(t *testing.T) {
	h, db, _, _ := newTestHandler(t)
	ctx := context.Background()
	recorder := billing.NewInvoiceRecorder(db, billing.NewInvoiceSequencer(db, "MGM_"), nil, billing.DefaultMaxAttempts)

	cash := func(name string) string {
		t.Helper()
		receipt, err := recorder.RecordCashExchange(ctx, billing.CashExchange{
			Customer: billing.Customer{Name: name},
			OldItems: []billing.OldOrnamentLineItem{{
				CategoryName: "Silver", SubcategoryName: "Anklet",
				InitialWeight: *dec("10"), FinalWeight: *dec("9"), RatePerGram: *dec("75"), Value: *dec("675"),
			}},
		})
		require.NoError(t, err)
		return receipt.InvoiceNumber
	}

	assert.Equal(t, "MGM_1", cash("Asha"))
	assert.Equal(t, "MGM_2", cash("Bala"))

	zero := int64(0)
	_, err := h.UpdateSettings(ctx, SettingsUpdate{GoldRate: dec("6200"), LastInvoiceNumber: &zero})
	var verr *billing.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "last_invoice_number", verr.Field)

	settings, err := h.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), *settings.LastInvoiceNumber)
	assert.True(t, settings.GoldRate.IsZero(), "rejected update must not touch the rates")

	same := int64(2)
	_, err = h.UpdateSettings(ctx, SettingsUpdate{LastInvoiceNumber: &same})
	require.NoError(t, err)

	assert.Equal(t, "MGM_3", cash("Chitra"))
}

func TestRateSnapshotCacheInvalidatedOnUpdate(t *testing.T) {
	h, _, mr, _ := newTestHandler(t)
	ctx := context.Background()

	snap, err := h.RateSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.SilverRate.Equal(decimal.NewFromInt(7000)))
	assert.True(t, mr.Exists(RATES_CACHE_KEY))

	_, err = h.UpdateSettings(ctx, SettingsUpdate{SilverRate: dec("95")})
	require.NoError(t, err)
	assert.False(t, mr.Exists(RATES_CACHE_KEY))

	snap, err = h.RateSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.SilverRate.Equal(decimal.NewFromInt(95)))
}

func TestCategoryLifecycle(t *testing.T) {
	h, _, mr, pub := newTestHandler(t)
	ctx := context.Background()

	silver, err := h.CreateCategory(ctx, CategoryInput{Name: " Silver "})
	require.NoError(t, err)
	assert.Equal(t, "Silver", silver.Name)
	_, err = h.CreateCategory(ctx, CategoryInput{Name: "Gold"})
	require.NoError(t, err)

	list, err := h.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Gold", list[0].Name)
	assert.True(t, mr.Exists(CATEGORIES_CACHE_KEY))

	_, err = h.CreateCategory(ctx, CategoryInput{Name: "gold"})
	var conflict *billing.ConflictError
	require.True(t, errors.As(err, &conflict))

	updated, err := h.UpdateCategory(ctx, silver.ID, CategoryInput{Name: "Silver Articles"})
	require.NoError(t, err)
	assert.Equal(t, "Silver Articles", updated.Name)
	assert.False(t, mr.Exists(CATEGORIES_CACHE_KEY))

	require.NoError(t, h.DeleteCategory(ctx, silver.ID))
	list, err = h.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	err = h.DeleteCategory(ctx, silver.ID)
	var lookup *billing.LookupError
	require.True(t, errors.As(err, &lookup))

	assert.Equal(t, []string{
		events.CategoryCreated, events.CategoryCreated, events.CategoryUpdated, events.CategoryDeleted,
	}, pub.types)
}

// A duplicate that lands between the name check and the insert surfaces from Postgres as 23505.
func TestCategoryDuplicateKeyIsConflict(t *testing.T) {
	h, db, _, _ := newTestHandler(t)
	ctx := context.Background()

	duplicate := func(tx *gorm.DB) {
		if tx.Statement.Table == "categories" {
			tx.AddError(&pgconn.PgError{Code: billing.PgErrUniqueViolation})
		}
	}
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:duplicate", duplicate))
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:duplicate", duplicate))

	_, err := h.CreateCategory(ctx, CategoryInput{Name: "Gold"})
	var conflict *billing.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)

	require.NoError(t, db.Callback().Create().Remove("test:duplicate"))
	category, err := h.CreateCategory(ctx, CategoryInput{Name: "Silver"})
	require.NoError(t, err)

	_, err = h.UpdateCategory(ctx, category.ID, CategoryInput{Name: "Platinum"})
	require.True(t, errors.As(err, &conflict), "got %v", err)
}

func TestDeleteCategoryRestrictedBySubcategories(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	ctx := context.Background()

	gold, err := h.CreateCategory(ctx, CategoryInput{Name: "Gold"})
	require.NoError(t, err)
	sub, err := h.CreateSubcategory(ctx, SubcategoryInput{Name: "Chain", CategoryID: gold.ID, SeikuliRate: dec("500")})
	require.NoError(t, err)

	err = h.DeleteCategory(ctx, gold.ID)
	var conflict *billing.ConflictError
	require.True(t, errors.As(err, &conflict))

	require.NoError(t, h.DeleteSubcategory(ctx, sub.ID))
	require.NoError(t, h.DeleteCategory(ctx, gold.ID))
}

func TestSubcategoryLifecycle(t *testing.T) {
	h, db, mr, _ := newTestHandler(t)
	ctx := context.Background()

	gold, err := h.CreateCategory(ctx, CategoryInput{Name: "Gold"})
	require.NoError(t, err)
	silver, err := h.CreateCategory(ctx, CategoryInput{Name: "Silver"})
	require.NoError(t, err)

	ring, err := h.CreateSubcategory(ctx, SubcategoryInput{Name: "Ring", CategoryID: gold.ID, SeikuliRate: dec("350")})
	require.NoError(t, err)
	_, err = h.CreateSubcategory(ctx, SubcategoryInput{Name: "Anklet", CategoryID: silver.ID})
	require.NoError(t, err)

	all, err := h.ListSubcategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Anklet", all[0].Name)
	assert.Nil(t, all[0].SeikuliRate)
	require.NotNil(t, all[1].SeikuliRate)
	assert.True(t, all[1].SeikuliRate.Equal(decimal.NewFromInt(350)))
	assert.True(t, mr.Exists(SUBCATEGORIES_CACHE_KEY))

	cached, err := h.ListSubcategories(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached[1].SeikuliRate)
	assert.True(t, cached[1].SeikuliRate.Equal(decimal.NewFromInt(350)))

	goldSubs, err := h.SubcategoriesOf(ctx, gold.ID)
	require.NoError(t, err)
	require.Len(t, goldSubs, 1)
	assert.Equal(t, "Ring", goldSubs[0].Name)

	cleared, err := h.UpdateSubcategory(ctx, ring.ID, SubcategoryInput{Name: "Ring", CategoryID: gold.ID})
	require.NoError(t, err)
	assert.Nil(t, cleared.SeikuliRate)

	var stored models.Subcategory
	require.NoError(t, db.First(&stored, ring.ID).Error)
	assert.Nil(t, stored.SeikuliRate)
}

func TestSubcategoryValidation(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	ctx := context.Background()

	_, err := h.CreateSubcategory(ctx, SubcategoryInput{Name: "Chain", CategoryID: 999})
	var lookup *billing.LookupError
	require.True(t, errors.As(err, &lookup))

	gold, err := h.CreateCategory(ctx, CategoryInput{Name: "Gold"})
	require.NoError(t, err)

	_, err = h.CreateSubcategory(ctx, SubcategoryInput{Name: "Chain", CategoryID: gold.ID, SeikuliRate: dec("-5")})
	var verr *billing.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "seikuli_rate", verr.Field)

	_, err = h.UpdateSubcategory(ctx, 42, SubcategoryInput{Name: "Chain", CategoryID: gold.ID})
	require.True(t, errors.As(err, &lookup))

	err = h.DeleteSubcategory(ctx, 42)
	require.True(t, errors.As(err, &lookup))
}
