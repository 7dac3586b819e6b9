package history

import (
	"context"
	"fmt"

	"catalog-manager/feature/history/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service reads the persisted history.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new history service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// VariantPrices returns a variant's price transitions, newest first.
func (s *Service) VariantPrices(ctx context.Context, variantID uint) ([]models.PriceChangeEntry, error) {
	var entries []models.PriceChangeEntry
	err := s.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Order("changed_at desc, id desc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	return entries, nil
}

// ChangeSet returns every mutation of one reconciliation run, in the order
// it was recorded.
func (s *Service) ChangeSet(ctx context.Context, txnID string) ([]models.ChangeEntry, error) {
	var entries []models.ChangeEntry
	err := s.db.WithContext(ctx).
		Where("txn_id = ?", txnID).
		Order("id asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load change set: %w", err)
	}
	return entries, nil
}

// ProductChanges returns a product's recent change entries, newest run
// first, capped at limit.
func (s *Service) ProductChanges(ctx context.Context, productID uint, limit int) ([]models.ChangeEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []models.ChangeEntry
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load product changes: %w", err)
	}
	return entries, nil
}
