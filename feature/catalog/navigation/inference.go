package navigation

import (
	"fmt"
	"sort"

	"catalog-manager/feature/catalog/models"

	"gorm.io/gorm"
)

// OptionRef identifies one attribute value by type slug and value.
type OptionRef struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// VariantNode is one active variant as the navigation layer sees it.
type VariantNode struct {
	ID        uint
	SKU       string
	Name      string
	SalePrice float64
	StockQty  int
	Images    []string

	// Selection maps attribute type slug to the chosen value.
	Selection map[string]string
}

// Relation is the per-product co-occurrence index inferred from the active
// variant set. Two option values are related when at least one variant
// carries both; navigation uses the index to offer only reachable values.
type Relation struct {
	ProductID uint
	Variants  []VariantNode

	pairs  map[OptionRef]map[OptionRef]struct{}
	values map[string][]string
}

// BuildRelation loads the product's active variants and derives the
// pairwise option relation from them.
func BuildRelation(db *gorm.DB, productID uint) (*Relation, error) {
	var variants []models.Variant
	err := db.Where("product_id = ? AND active = ?", productID, true).
		Preload("Attributes.AttributeOption.AttributeType").
		Order("id asc").
		Find(&variants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}

	rel := &Relation{
		ProductID: productID,
		pairs:     make(map[OptionRef]map[OptionRef]struct{}),
		values:    make(map[string][]string),
	}
	seenValue := make(map[OptionRef]struct{})

	for _, v := range variants {
		node := VariantNode{
			ID:        v.ID,
			SKU:       v.SKU,
			Name:      v.Name,
			SalePrice: v.SalePrice,
			StockQty:  v.StockQty,
			Images:    v.Images,
			Selection: make(map[string]string, len(v.Attributes)),
		}

		refs := make([]OptionRef, 0, len(v.Attributes))
		for _, va := range v.Attributes {
			ref := OptionRef{
				Type:  va.AttributeOption.AttributeType.Slug,
				Value: va.AttributeOption.Value,
			}
			node.Selection[ref.Type] = ref.Value
			refs = append(refs, ref)

			if _, ok := seenValue[ref]; !ok {
				seenValue[ref] = struct{}{}
				rel.values[ref.Type] = append(rel.values[ref.Type], ref.Value)
			}
		}

		for i, a := range refs {
			for j, b := range refs {
				if i == j {
					continue
				}
				set, ok := rel.pairs[a]
				if !ok {
					set = make(map[OptionRef]struct{})
					rel.pairs[a] = set
				}
				set[b] = struct{}{}
			}
		}

		rel.Variants = append(rel.Variants, node)
	}

	for _, vals := range rel.values {
		sort.Strings(vals)
	}

	return rel, nil
}

// Types returns the attribute type slugs present in the relation, sorted.
func (r *Relation) Types() []string {
	types := make([]string, 0, len(r.values))
	for t := range r.values {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Values returns every observed value of a type, sorted.
func (r *Relation) Values(typeSlug string) []string {
	return r.values[typeSlug]
}

// Compatible returns the values of typeSlug reachable from the pinned
// selection: a value stays in when every pinned option of another type
// co-occurs with it on some variant. Pins on typeSlug itself are ignored so
// the operator can always switch within the dimension they are on.
func (r *Relation) Compatible(pinned map[string]string, typeSlug string) []string {
	refs := make([]OptionRef, 0, len(pinned))
	for t, v := range pinned {
		if t == typeSlug {
			continue
		}
		refs = append(refs, OptionRef{Type: t, Value: v})
	}

	var out []string
	for _, value := range r.values[typeSlug] {
		candidate := OptionRef{Type: typeSlug, Value: value}
		ok := true
		for _, pin := range refs {
			if _, related := r.pairs[pin][candidate]; !related {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, value)
		}
	}
	return out
}

// Related reports whether two option values co-occur on any variant.
func (r *Relation) Related(a, b OptionRef) bool {
	_, ok := r.pairs[a][b]
	return ok
}
