package reconcile

import (
	"time"

	"gorm.io/gorm"
)

// EntityAction is the kind of mutation a reconciliation produced.
type EntityAction string

const (
	ActionCreate EntityAction = "create"
	ActionUpdate EntityAction = "update"
	ActionRetire EntityAction = "retire"
)

// Change is one mutation record handed to the ChangeSet collaborator. TxnID
// groups every change of one product's reconciliation run so the audit log
// can roll the run back later.
type Change struct {
	TxnID     string       `json:"txn_id"`
	ProductID uint         `json:"product_id"`
	Entity    string       `json:"entity"`
	EntityID  uint         `json:"entity_id"`
	Action    EntityAction `json:"action"`
	Detail    string       `json:"detail,omitempty"`
}

// PriceChange is one price transition handed to the PriceHistory collaborator.
type PriceChange struct {
	VariantID uint      `json:"variant_id"`
	SKU       string    `json:"sku"`
	Field     string    `json:"field"` // purchase or sale
	Old       *float64  `json:"old"`
	New       *float64  `json:"new"`
	Actor     string    `json:"actor"`
	ChangedAt time.Time `json:"changed_at"`
}

// PriceHistory receives price transitions produced by variant reconciliation.
// Implementations write inside the caller's transaction so a rolled-back save
// leaves no history rows.
type PriceHistory interface {
	RecordPriceChange(tx *gorm.DB, change PriceChange) error
}

// ChangeSet receives every create/update/retire a reconciliation run produces.
type ChangeSet interface {
	RecordChange(tx *gorm.DB, change Change) error
}

// NopPriceHistory discards price transitions.
type NopPriceHistory struct{}

func (NopPriceHistory) RecordPriceChange(*gorm.DB, PriceChange) error { return nil }

// NopChangeSet discards change records.
type NopChangeSet struct{}

func (NopChangeSet) RecordChange(*gorm.DB, Change) error { return nil }

// FacetReport summarizes what one facet's reconciliation did.
type FacetReport struct {
	State   FacetState `json:"state"`
	Creates int        `json:"creates"`
	Updates int        `json:"updates"`
	Retires int        `json:"retires"`
}

// Result is the per-product outcome of a save.
type Result struct {
	ProductID uint                    `json:"product_id,omitempty"`
	Slug      string                  `json:"slug"`
	TxnID     string                  `json:"txn_id,omitempty"`
	OK        bool                    `json:"ok"`
	Error     string                  `json:"error,omitempty"`
	Version   int                     `json:"version,omitempty"`
	Facets    map[string]*FacetReport `json:"facets,omitempty"`
	Stats     *Stats                  `json:"stats,omitempty"`
}

// BulkReport is the outcome of a bulk save: one result per row plus
// aggregate counts. Failure of one row never affects the others.
type BulkReport struct {
	Results []Result    `json:"results"`
	Summary BulkSummary `json:"summary"`
}

// BulkSummary provides aggregate counts for a bulk save.
type BulkSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
