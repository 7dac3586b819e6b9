package models

import (
	"time"
)

// Attribute type scopes.
const (
	ScopeGlobal  = "global"
	ScopeProduct = "product"
)

// Product is the editable root entity. The four facet columns hold the JSON
// documents the operator last saved; the normalized tables below are a cache
// rebuilt from them by reconciliation. The scalar price/stock/images fields
// are authoritative only while the product has no variants.
type Product struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:255;not null"`
	Slug        string `gorm:"size:255;uniqueIndex;not null"`
	Description string `gorm:"type:text"`

	Price  float64    `gorm:"type:decimal(10,2)"`
	Stock  int        `gorm:"not null;default:0"`
	Images StringList `gorm:"type:text"`

	AttributesJSON RawJSON `gorm:"type:mediumtext"`
	VariantsJSON   RawJSON `gorm:"type:mediumtext"`
	GroupsJSON     RawJSON `gorm:"type:mediumtext"`
	CategoriesJSON RawJSON `gorm:"type:mediumtext"`

	AttributesHash string `gorm:"size:64"`
	VariantsHash   string `gorm:"size:64"`
	GroupsHash     string `gorm:"size:64"`
	CategoriesHash string `gorm:"size:64"`

	// Version guards concurrent saves. Every committed reconciliation
	// increments it; a save carrying an older value is rejected.
	Version int  `gorm:"not null;default:0"`
	Active  bool `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Variants []Variant      `gorm:"foreignKey:ProductID"`
	Groups   []VariantGroup `gorm:"foreignKey:ProductID"`
}

// AttributeType is a named axis of variation (Color, Length, ...).
// Identity is (slug, scope, product-if-scoped), never the display name.
type AttributeType struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:100;not null"`
	Slug         string `gorm:"size:100;not null;index:idx_attr_type_ident,unique"`
	Scope        string `gorm:"size:20;not null;default:product;index:idx_attr_type_ident,unique"`
	ProductID    *uint  `gorm:"index:idx_attr_type_ident,unique"`
	DisplayOrder int    `gorm:"not null;default:0"`

	Options []AttributeOption `gorm:"foreignKey:AttributeTypeID"`
}

// AttributeOption is one admissible value of an AttributeType. A nil
// ProductID marks a global option shared across products; otherwise the
// option belongs to a single product's catalog.
type AttributeOption struct {
	ID              uint   `gorm:"primaryKey"`
	AttributeTypeID uint   `gorm:"not null;index:idx_attr_option_ident,unique"`
	ProductID       *uint  `gorm:"index:idx_attr_option_ident,unique"`
	Value           string `gorm:"size:100;not null;index:idx_attr_option_ident,unique"`
	DisplayName     string `gorm:"size:100"`
	FilterGroup     string `gorm:"size:100;index"`
	DisplayOrder    int    `gorm:"not null;default:0"`

	AttributeType AttributeType `gorm:"foreignKey:AttributeTypeID"`
}

// DisplayValue returns the operator-facing label for the option.
func (o AttributeOption) DisplayValue() string {
	if o.DisplayName != "" {
		return o.DisplayName
	}
	return o.Value
}

// Variant is a purchasable SKU defined by one option per attribute type.
// IdentityKey is the sorted set of option ids; it is how reconciliation
// matches incoming specs to existing rows, so renames and SKU edits never
// change a variant's identity. Retired variants keep their row with
// Active=false and are excluded from identity matching.
type Variant struct {
	ID            uint   `gorm:"primaryKey"`
	ProductID     uint   `gorm:"not null;index"`
	SKU           string `gorm:"size:100;index;not null"`
	Name          string `gorm:"size:255"`
	IdentityKey   string `gorm:"size:255;index"`
	PurchasePrice *float64 `gorm:"type:decimal(10,2)"`
	SalePrice     float64  `gorm:"type:decimal(10,2);not null"`
	StockQty      int      `gorm:"not null;default:0"`
	Images        StringList `gorm:"type:text"`
	Active        bool       `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Attributes []VariantAttribute `gorm:"foreignKey:VariantID"`
}

// VariantAttribute links a variant to exactly one option per attribute type.
type VariantAttribute struct {
	ID                uint `gorm:"primaryKey"`
	VariantID         uint `gorm:"not null;index:idx_variant_attr,unique"`
	AttributeTypeID   uint `gorm:"not null;index:idx_variant_attr,unique"`
	AttributeOptionID uint `gorm:"not null;index"`

	AttributeOption AttributeOption `gorm:"foreignKey:AttributeOptionID"`
}

// VariantGroup is a curated, named subset of a product's variants.
// Slug is unique per product; collisions in one save are suffixed
// deterministically by the reconciler.
type VariantGroup struct {
	ID           uint   `gorm:"primaryKey"`
	ProductID    uint   `gorm:"not null;index:idx_group_slug,unique"`
	Name         string `gorm:"size:255;not null"`
	Slug         string `gorm:"size:255;not null;index:idx_group_slug,unique"`
	Description  string `gorm:"type:text"`
	Images       StringList `gorm:"type:text"`
	Active       bool       `gorm:"not null;default:true"`
	DisplayOrder int        `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Members []VariantGroupMember `gorm:"foreignKey:GroupID"`
}

// VariantGroupMember orders variants within a group.
type VariantGroupMember struct {
	ID        uint `gorm:"primaryKey"`
	GroupID   uint `gorm:"not null;index:idx_group_member,unique"`
	VariantID uint `gorm:"not null;index:idx_group_member,unique"`
	Position  int  `gorm:"not null;default:0"`

	Variant Variant `gorm:"foreignKey:VariantID"`
}

// Category is a node in the shared global category forest. Identity is the
// (slug, parent_id) pair: two categories named "Tinta" under different
// parents are distinct nodes. Path is the materialized ancestor chain
// recomputed on write, e.g. "Pintura > Tinta > Tinta para Tecido".
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:200;not null"`
	Slug      string `gorm:"size:200;not null;index:idx_category_ident,unique"`
	ParentID  *uint  `gorm:"index:idx_category_ident,unique"`
	Path      string `gorm:"size:1000"`
	Depth     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductCategory is the product-to-category membership. Explicit marks a
// leaf named in the categories document; inherited ancestor memberships carry
// false so the reconciler can prune exactly the rows a new document no longer
// implies.
type ProductCategory struct {
	ID         uint `gorm:"primaryKey"`
	ProductID  uint `gorm:"not null;index:idx_product_category,unique"`
	CategoryID uint `gorm:"not null;index:idx_product_category,unique"`
	Explicit   bool `gorm:"not null;default:false"`
}

// All returns every catalog entity for migration.
func All() []any {
	return []any{
		&Product{},
		&AttributeType{},
		&AttributeOption{},
		&Variant{},
		&VariantAttribute{},
		&VariantGroup{},
		&VariantGroupMember{},
		&Category{},
		&ProductCategory{},
	}
}
