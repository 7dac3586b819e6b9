package reconcile

import (
	"testing"

	"catalog-manager/feature/catalog/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeStatsAggregatesActiveVariants(t *testing.T) {
	product := &models.Product{Price: 99, Stock: 99}
	variants := []models.Variant{
		{SalePrice: 10, StockQty: 0, Active: true},
		{SalePrice: 20, StockQty: 5, Active: true},
		{SalePrice: 30, StockQty: 10, Active: true},
		{SalePrice: 500, StockQty: 500, Active: false}, // retired rows never count
	}

	s := ComputeStats(product, variants)

	assert.Equal(t, 3, s.VariantCount)
	assert.Equal(t, 10.0, s.PriceMin)
	assert.Equal(t, 30.0, s.PriceMax)
	assert.Equal(t, 20.0, s.PriceAvg)
	assert.Equal(t, 0, s.StockMin)
	assert.Equal(t, 10, s.StockMax)
	assert.Equal(t, 15, s.StockSum)
	assert.Equal(t, 5.0, s.StockAvg)
}

func TestComputeStatsMirrorsProductWithoutVariants(t *testing.T) {
	product := &models.Product{Price: 12.5, Stock: 7}

	s := ComputeStats(product, nil)

	assert.Equal(t, 0, s.VariantCount)
	assert.Equal(t, 12.5, s.PriceMin)
	assert.Equal(t, 12.5, s.PriceMax)
	assert.Equal(t, 12.5, s.PriceAvg)
	assert.Equal(t, 7, s.StockSum)
}

func TestComputeStatsMirrorsTheSingleVariant(t *testing.T) {
	product := &models.Product{Price: 99, Stock: 99}
	variants := []models.Variant{{SalePrice: 4, StockQty: 2, Active: true}}

	s := ComputeStats(product, variants)

	assert.Equal(t, 1, s.VariantCount)
	assert.Equal(t, 4.0, s.PriceAvg)
	assert.Equal(t, 2, s.StockSum)
}
