package models

import (
	"time"
)

// PriceChangeEntry is one persisted price transition of a variant.
type PriceChangeEntry struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	VariantID uint     `gorm:"not null;index" json:"variant_id"`
	SKU       string   `gorm:"size:100;index" json:"sku"`
	Field     string   `gorm:"size:20;not null" json:"field"` // purchase or sale
	OldPrice  *float64 `gorm:"type:decimal(10,2)" json:"old_price"`
	NewPrice  *float64 `gorm:"type:decimal(10,2)" json:"new_price"`
	Actor     string   `gorm:"size:100" json:"actor,omitempty"`

	ChangedAt time.Time `json:"changed_at"`
}

// ChangeEntry is one persisted mutation of a reconciliation run. Entries
// sharing a TxnID belong to the same committed save.
type ChangeEntry struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	TxnID     string `gorm:"size:36;not null;index" json:"txn_id"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	Entity    string `gorm:"size:30;not null" json:"entity"`
	EntityID  uint   `gorm:"not null" json:"entity_id"`
	Action    string `gorm:"size:20;not null" json:"action"`
	Detail    string `gorm:"size:255" json:"detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// All returns every history entity for migration.
func All() []any {
	return []any{
		&PriceChangeEntry{},
		&ChangeEntry{},
	}
}
