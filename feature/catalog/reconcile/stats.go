package reconcile

import (
	"catalog-manager/feature/catalog/models"
)

// Stats is the product-level aggregate over active variants. With at most
// one active variant the product's own scalar fields are authoritative and
// the aggregate mirrors them.
type Stats struct {
	VariantCount int     `json:"variant_count"`
	PriceMin     float64 `json:"price_min"`
	PriceMax     float64 `json:"price_max"`
	PriceAvg     float64 `json:"price_avg"`
	StockMin     int     `json:"stock_min"`
	StockMax     int     `json:"stock_max"`
	StockAvg     float64 `json:"stock_avg"`
	StockSum     int     `json:"stock_sum"`
}

// ComputeStats aggregates sale price and stock across the product's active
// variants.
func ComputeStats(product *models.Product, variants []models.Variant) Stats {
	active := make([]models.Variant, 0, len(variants))
	for _, v := range variants {
		if v.Active {
			active = append(active, v)
		}
	}

	if len(active) <= 1 {
		stock := product.Stock
		price := product.Price
		if len(active) == 1 {
			stock = active[0].StockQty
			price = active[0].SalePrice
		}
		return Stats{
			VariantCount: len(active),
			PriceMin:     price,
			PriceMax:     price,
			PriceAvg:     price,
			StockMin:     stock,
			StockMax:     stock,
			StockAvg:     float64(stock),
			StockSum:     stock,
		}
	}

	s := Stats{
		VariantCount: len(active),
		PriceMin:     active[0].SalePrice,
		PriceMax:     active[0].SalePrice,
		StockMin:     active[0].StockQty,
		StockMax:     active[0].StockQty,
	}

	var priceSum float64
	for _, v := range active {
		if v.SalePrice < s.PriceMin {
			s.PriceMin = v.SalePrice
		}
		if v.SalePrice > s.PriceMax {
			s.PriceMax = v.SalePrice
		}
		if v.StockQty < s.StockMin {
			s.StockMin = v.StockQty
		}
		if v.StockQty > s.StockMax {
			s.StockMax = v.StockQty
		}
		priceSum += v.SalePrice
		s.StockSum += v.StockQty
	}

	s.PriceAvg = priceSum / float64(len(active))
	s.StockAvg = float64(s.StockSum) / float64(len(active))

	return s
}
