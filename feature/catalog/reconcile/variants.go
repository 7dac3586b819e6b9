package reconcile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"catalog-manager/feature/catalog/models"

	"gorm.io/gorm"
)

// Recorders bundles the collaborators a reconciliation run reports to.
type Recorders struct {
	Prices  PriceHistory
	Changes ChangeSet
	TxnID   string
	Actor   string
}

func (r Recorders) change(tx *gorm.DB, productID uint, entity string, entityID uint, action EntityAction, detail string) error {
	return r.Changes.RecordChange(tx, Change{
		TxnID:     r.TxnID,
		ProductID: productID,
		Entity:    entity,
		EntityID:  entityID,
		Action:    action,
		Detail:    detail,
	})
}

// IdentityKey builds the variant identity from its resolved option ids.
// Only attribute values participate; names and SKUs never do, so matching
// stays stable across renames.
func IdentityKey(optionIDs []uint) string {
	ids := append([]uint(nil), optionIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, "-")
}

// ReconcileVariants upserts the product's variant set from the facet specs.
// Specs are matched to existing active variants by identity key; matched rows
// are updated in place, unmatched specs become new variants (reviving a
// retired row with the same identity when one exists), and active variants
// absent from the document are retired. Price transitions go to the PriceHistory
// collaborator, every mutation to the ChangeSet.
func ReconcileVariants(tx *gorm.DB, product *models.Product, specs []VariantSpec, cat *Catalog, rec Recorders, rep *FacetReport) error {
	var existing []models.Variant
	if err := tx.Where("product_id = ?", product.ID).
		Preload("Attributes").
		Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load variants: %w", err)
	}

	activeByIdentity := make(map[string]*models.Variant)
	retiredByIdentity := make(map[string]*models.Variant)
	for i := range existing {
		v := &existing[i]
		if v.Active {
			activeByIdentity[v.IdentityKey] = v
		} else {
			retiredByIdentity[v.IdentityKey] = v
		}
	}

	seenIdentity := make(map[string]string, len(specs))
	seenSKU := make(map[string]struct{}, len(specs))
	matched := make(map[string]struct{}, len(specs))

	for _, spec := range specs {
		if _, dup := seenSKU[spec.SKU]; dup {
			return &ValidationError{Facet: FacetVariants, Field: spec.SKU, Reason: "duplicate sku in save"}
		}
		seenSKU[spec.SKU] = struct{}{}

		options, err := resolveSpecOptions(spec, cat)
		if err != nil {
			return err
		}

		optionIDs := make([]uint, len(options))
		for i, o := range options {
			optionIDs[i] = o.option.ID
		}
		identity := IdentityKey(optionIDs)

		if prev, dup := seenIdentity[identity]; dup {
			return &ReconciliationConflict{IdentityKey: identity, SKUs: []string{prev, spec.SKU}}
		}
		seenIdentity[identity] = spec.SKU
		matched[identity] = struct{}{}

		if v, ok := activeByIdentity[identity]; ok {
			changed, err := applyVariantSpec(tx, product, v, spec, options, rec, false)
			if err != nil {
				return err
			}
			if changed {
				rep.Updates++
				if err := rec.change(tx, product.ID, "variant", v.ID, ActionUpdate, v.SKU); err != nil {
					return err
				}
			}
			continue
		}

		if v, ok := retiredByIdentity[identity]; ok {
			// Same identity came back after being retired: revive the row so
			// its history stays attached.
			v.Active = true
			if err := tx.Save(v).Error; err != nil {
				return fmt.Errorf("failed to revive variant %s: %w", v.SKU, err)
			}
			if _, err := applyVariantSpec(tx, product, v, spec, options, rec, false); err != nil {
				return err
			}
			rep.Updates++
			if err := rec.change(tx, product.ID, "variant", v.ID, ActionUpdate, "revived "+v.SKU); err != nil {
				return err
			}
			continue
		}

		v := &models.Variant{
			ProductID:   product.ID,
			IdentityKey: identity,
			Active:      true,
		}
		if _, err := applyVariantSpec(tx, product, v, spec, options, rec, true); err != nil {
			return err
		}
		for _, o := range options {
			va := models.VariantAttribute{
				VariantID:         v.ID,
				AttributeTypeID:   o.attrType.ID,
				AttributeOptionID: o.option.ID,
			}
			if err := tx.Create(&va).Error; err != nil {
				return fmt.Errorf("failed to link variant attribute: %w", err)
			}
		}
		rep.Creates++
		if err := rec.change(tx, product.ID, "variant", v.ID, ActionCreate, v.SKU); err != nil {
			return err
		}
	}

	// Retire active variants whose identity no longer appears.
	for identity, v := range activeByIdentity {
		if _, ok := matched[identity]; ok {
			continue
		}
		v.Active = false
		if err := tx.Save(v).Error; err != nil {
			return fmt.Errorf("failed to retire variant %s: %w", v.SKU, err)
		}
		rep.Retires++
		if err := rec.change(tx, product.ID, "variant", v.ID, ActionRetire, v.SKU); err != nil {
			return err
		}
	}

	return nil
}

// resolvedOption pairs an option with its attribute type, ordered for
// display name generation.
type resolvedOption struct {
	attrType *models.AttributeType
	option   *models.AttributeOption
}

func resolveSpecOptions(spec VariantSpec, cat *Catalog) ([]resolvedOption, error) {
	options := make([]resolvedOption, 0, len(spec.AttrNames))
	for i, name := range spec.AttrNames {
		attrType, _, err := cat.EnsureType(name, i)
		if err != nil {
			return nil, err
		}
		option, _, err := cat.EnsureOption(attrType, spec.Attributes[name], i)
		if err != nil {
			return nil, err
		}
		options = append(options, resolvedOption{attrType: attrType, option: option})
	}

	sort.Slice(options, func(i, j int) bool {
		a, b := options[i].attrType, options[j].attrType
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.Name < b.Name
	})

	return options, nil
}

// applyVariantSpec writes the spec's fields onto the variant and reports
// price transitions on existing rows. Returns whether anything changed.
func applyVariantSpec(tx *gorm.DB, product *models.Product, v *models.Variant, spec VariantSpec, options []resolvedOption, rec Recorders, isNew bool) (bool, error) {
	name := spec.Name
	if name == "" {
		name = generateVariantName(product, options)
	}

	changed := isNew ||
		v.SKU != spec.SKU ||
		v.Name != name ||
		!floatPtrEqual(v.PurchasePrice, spec.PurchasePrice) ||
		v.SalePrice != spec.SalePrice ||
		v.StockQty != spec.StockQty ||
		strings.Join(v.Images, "|") != strings.Join(spec.Images, "|")

	if !isNew {
		now := time.Now()
		if !floatPtrEqual(v.PurchasePrice, spec.PurchasePrice) {
			err := rec.Prices.RecordPriceChange(tx, PriceChange{
				VariantID: v.ID, SKU: spec.SKU, Field: "purchase",
				Old: v.PurchasePrice, New: spec.PurchasePrice,
				Actor: rec.Actor, ChangedAt: now,
			})
			if err != nil {
				return false, err
			}
		}
		if v.SalePrice != spec.SalePrice {
			old := v.SalePrice
			newPrice := spec.SalePrice
			err := rec.Prices.RecordPriceChange(tx, PriceChange{
				VariantID: v.ID, SKU: spec.SKU, Field: "sale",
				Old: &old, New: &newPrice,
				Actor: rec.Actor, ChangedAt: now,
			})
			if err != nil {
				return false, err
			}
		}
	}

	if !changed {
		return false, nil
	}

	v.SKU = spec.SKU
	v.Name = name
	v.PurchasePrice = spec.PurchasePrice
	v.SalePrice = spec.SalePrice
	v.StockQty = spec.StockQty
	v.Images = models.StringList(spec.Images)

	if err := tx.Save(v).Error; err != nil {
		return false, fmt.Errorf("failed to save variant %s: %w", spec.SKU, err)
	}

	return true, nil
}

// generateVariantName builds "Product - Value / Value" from the resolved
// options in attribute display order.
func generateVariantName(product *models.Product, options []resolvedOption) string {
	if len(options) == 0 {
		return product.Name
	}
	values := make([]string, len(options))
	for i, o := range options {
		values[i] = o.option.DisplayValue()
	}
	return product.Name + " - " + strings.Join(values, " / ")
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
