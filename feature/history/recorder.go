package history

import (
	"fmt"

	"catalog-manager/feature/catalog/reconcile"
	"catalog-manager/feature/history/models"

	"gorm.io/gorm"
)

// Recorder persists price transitions and change records inside the
// reconciliation transaction, so a rolled-back save leaves no history rows.
// It implements reconcile.PriceHistory and reconcile.ChangeSet.
type Recorder struct{}

// NewRecorder creates a history recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordPriceChange writes one price transition row.
func (Recorder) RecordPriceChange(tx *gorm.DB, change reconcile.PriceChange) error {
	entry := models.PriceChangeEntry{
		VariantID: change.VariantID,
		SKU:       change.SKU,
		Field:     change.Field,
		OldPrice:  change.Old,
		NewPrice:  change.New,
		Actor:     change.Actor,
		ChangedAt: change.ChangedAt,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record price change for %s: %w", change.SKU, err)
	}
	return nil
}

// RecordChange writes one mutation row.
func (Recorder) RecordChange(tx *gorm.DB, change reconcile.Change) error {
	entry := models.ChangeEntry{
		TxnID:     change.TxnID,
		ProductID: change.ProductID,
		Entity:    change.Entity,
		EntityID:  change.EntityID,
		Action:    string(change.Action),
		Detail:    change.Detail,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record change for product %d: %w", change.ProductID, err)
	}
	return nil
}
