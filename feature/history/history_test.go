package history_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	catalogmodels "catalog-manager/feature/catalog/models"
	"catalog-manager/feature/catalog/reconcile"
	"catalog-manager/feature/history"
	"catalog-manager/feature/history/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHistoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	entities := append(catalogmodels.All(), models.All()...)
	require.NoError(t, db.AutoMigrate(entities...))
	return db
}

func saveRequest(version int, salePrice float64) *reconcile.SaveRequest {
	variants := fmt.Sprintf(`[{"sku":"TT-AZ","sale_price":%g,"cor":"Azul"}]`, salePrice)
	return &reconcile.SaveRequest{
		Name:     "Tinta",
		Version:  version,
		Actor:    "carla",
		Variants: json.RawMessage(variants),
	}
}

func TestRecorderPersistsRunHistory(t *testing.T) {
	db := setupHistoryDB(t)
	rec := history.NewRecorder()
	runner := reconcile.NewRunner(db, zap.NewNop(), rec, rec, nil)

	first, err := runner.SaveProduct(context.Background(), saveRequest(0, 10))
	require.NoError(t, err)

	var changes []models.ChangeEntry
	require.NoError(t, db.Where("txn_id = ?", first.TxnID).Find(&changes).Error)
	require.NotEmpty(t, changes)
	entities := map[string]bool{}
	for _, ch := range changes {
		assert.Equal(t, first.ProductID, ch.ProductID)
		entities[ch.Entity] = true
	}
	assert.True(t, entities["variant"])
	assert.True(t, entities["product"])

	// a price edit writes one price transition
	second, err := runner.SaveProduct(context.Background(), saveRequest(first.Version, 12.5))
	require.NoError(t, err)

	var prices []models.PriceChangeEntry
	require.NoError(t, db.Find(&prices).Error)
	require.Len(t, prices, 1)
	assert.Equal(t, "sale", prices[0].Field)
	assert.Equal(t, "TT-AZ", prices[0].SKU)
	assert.Equal(t, 10.0, *prices[0].OldPrice)
	assert.Equal(t, 12.5, *prices[0].NewPrice)
	assert.Equal(t, "carla", prices[0].Actor)

	// the second run has its own txn id
	var count int64
	require.NoError(t, db.Model(&models.ChangeEntry{}).
		Where("txn_id = ?", second.TxnID).Count(&count).Error)
	assert.NotZero(t, count)
	assert.NotEqual(t, first.TxnID, second.TxnID)
}

func TestRecorderWritesNothingOnRollback(t *testing.T) {
	db := setupHistoryDB(t)
	rec := history.NewRecorder()
	runner := reconcile.NewRunner(db, zap.NewNop(), rec, rec, nil)

	req := &reconcile.SaveRequest{
		Name: "Tinta",
		Variants: json.RawMessage(`[
			{"sku":"A","cor":"Azul"},
			{"sku":"B","cor":"Azul"}
		]`),
	}
	_, err := runner.SaveProduct(context.Background(), req)
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.ChangeEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestServiceQueries(t *testing.T) {
	db := setupHistoryDB(t)
	rec := history.NewRecorder()
	runner := reconcile.NewRunner(db, zap.NewNop(), rec, rec, nil)

	first, err := runner.SaveProduct(context.Background(), saveRequest(0, 10))
	require.NoError(t, err)
	_, err = runner.SaveProduct(context.Background(), saveRequest(first.Version, 15))
	require.NoError(t, err)

	svc := history.NewService(db, zap.NewNop())

	var variant catalogmodels.Variant
	require.NoError(t, db.Where("sku = ?", "TT-AZ").First(&variant).Error)

	prices, err := svc.VariantPrices(context.Background(), variant.ID)
	require.NoError(t, err)
	require.Len(t, prices, 1)

	changes, err := svc.ChangeSet(context.Background(), first.TxnID)
	require.NoError(t, err)
	assert.NotEmpty(t, changes)

	recent, err := svc.ProductChanges(context.Background(), first.ProductID, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, recent)
}

func TestHandlerRoutes(t *testing.T) {
	db := setupHistoryDB(t)
	rec := history.NewRecorder()
	runner := reconcile.NewRunner(db, zap.NewNop(), rec, rec, nil)

	first, err := runner.SaveProduct(context.Background(), saveRequest(0, 10))
	require.NoError(t, err)

	app := fiber.New()
	feature := history.NewFeature(db, zap.NewNop())
	require.NoError(t, feature.Load(app))

	resp, err := app.Test(httptest.NewRequest("GET",
		fmt.Sprintf("/history/changesets/%s", first.TxnID), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var entries []models.ChangeEntry
	require.NoError(t, json.Unmarshal(body, &entries))
	assert.NotEmpty(t, entries)

	resp, err = app.Test(httptest.NewRequest("GET", "/history/variants/abc/prices", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
