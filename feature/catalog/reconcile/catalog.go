package reconcile

import (
	"fmt"
	"strings"

	"catalog-manager/core/utils"
	"catalog-manager/feature/catalog/models"

	"gorm.io/gorm"
)

// Catalog resolves and creates attribute types and options for one product's
// reconciliation run. Types are matched by case-insensitive slug across the
// global scope and the product scope; options are created product-scoped
// unless a global option with a matching filter group already covers the
// value. Everything is loaded once so downstream reconcilers resolve values
// without further queries.
type Catalog struct {
	tx      *gorm.DB
	product *models.Product

	// typesBySlug indexes both global and product-scoped types.
	typesBySlug map[string]*models.AttributeType
	// options indexes by type id, then by lowercased value.
	options map[uint]map[string]*models.AttributeOption
}

// NewCatalog loads the attribute catalog visible to the product: its own
// scoped types/options plus the global ones.
func NewCatalog(tx *gorm.DB, product *models.Product) (*Catalog, error) {
	c := &Catalog{
		tx:          tx,
		product:     product,
		typesBySlug: make(map[string]*models.AttributeType),
		options:     make(map[uint]map[string]*models.AttributeOption),
	}

	var types []models.AttributeType
	if err := tx.Where("scope = ? OR product_id = ?", models.ScopeGlobal, product.ID).
		Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to load attribute types: %w", err)
	}
	for i := range types {
		t := &types[i]
		// Product-scoped types shadow global ones with the same slug.
		if existing, ok := c.typesBySlug[t.Slug]; !ok || existing.Scope == models.ScopeGlobal {
			c.typesBySlug[t.Slug] = t
		}
	}

	var options []models.AttributeOption
	if err := tx.Where("product_id = ? OR product_id IS NULL", product.ID).
		Find(&options).Error; err != nil {
		return nil, fmt.Errorf("failed to load attribute options: %w", err)
	}
	for i := range options {
		c.index(&options[i])
	}

	return c, nil
}

func (c *Catalog) index(o *models.AttributeOption) {
	byValue, ok := c.options[o.AttributeTypeID]
	if !ok {
		byValue = make(map[string]*models.AttributeOption)
		c.options[o.AttributeTypeID] = byValue
	}
	key := strings.ToLower(o.Value)
	existing, present := byValue[key]
	// A product-scoped option wins over a global one for the same value.
	if !present || (existing.ProductID == nil && o.ProductID != nil) {
		byValue[key] = o
	}
}

// Apply ensures every type and option of the attributes facet exists,
// preserving the facet's order as display order.
func (c *Catalog) Apply(specs []AttributeSpec, rep *FacetReport) error {
	for i, spec := range specs {
		attrType, created, err := c.EnsureType(spec.Attribute, i)
		if err != nil {
			return err
		}
		if created {
			rep.Creates++
		}
		for j, value := range spec.Values {
			if value == "" {
				return &ValidationError{
					Facet:  FacetAttributes,
					Field:  spec.Attribute,
					Reason: "empty value",
				}
			}
			_, created, err := c.EnsureOption(attrType, value, j)
			if err != nil {
				return err
			}
			if created {
				rep.Creates++
			}
		}
	}
	return nil
}

// EnsureType finds or creates an attribute type by case-insensitive slug.
// New types are scoped to the product.
func (c *Catalog) EnsureType(name string, order int) (*models.AttributeType, bool, error) {
	if name == "" {
		return nil, false, &ValidationError{Facet: FacetAttributes, Reason: "missing attribute name"}
	}

	slug := utils.Slugify(name)
	if t, ok := c.typesBySlug[slug]; ok {
		return t, false, nil
	}

	productID := c.product.ID
	t := &models.AttributeType{
		Name:         name,
		Slug:         slug,
		Scope:        models.ScopeProduct,
		ProductID:    &productID,
		DisplayOrder: order,
	}
	if err := c.tx.Create(t).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create attribute type %s: %w", name, err)
	}
	c.typesBySlug[slug] = t

	return t, true, nil
}

// EnsureOption finds or creates an option for the value. A global option
// whose value or filter group matches is reused; otherwise the option is
// created scoped to the product. An option already present for the product
// is never duplicated.
func (c *Catalog) EnsureOption(attrType *models.AttributeType, value string, order int) (*models.AttributeOption, bool, error) {
	if byValue, ok := c.options[attrType.ID]; ok {
		if o, ok := byValue[strings.ToLower(value)]; ok {
			return o, false, nil
		}
		// A global option grouping this value under its filter group also
		// satisfies the lookup.
		for _, o := range byValue {
			if o.ProductID == nil && o.FilterGroup != "" &&
				strings.EqualFold(o.FilterGroup, value) {
				return o, false, nil
			}
		}
	}

	productID := c.product.ID
	o := &models.AttributeOption{
		AttributeTypeID: attrType.ID,
		ProductID:       &productID,
		Value:           value,
		DisplayOrder:    order,
	}
	if err := c.tx.Create(o).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create option %s=%s: %w", attrType.Name, value, err)
	}
	c.index(o)

	return o, true, nil
}

// Resolve returns the option map produced for the given specs:
// attribute name -> value -> option. Used by tests and facet export.
func (c *Catalog) Resolve(specs []AttributeSpec) (map[string]map[string]*models.AttributeOption, error) {
	out := make(map[string]map[string]*models.AttributeOption, len(specs))
	for _, spec := range specs {
		slug := utils.Slugify(spec.Attribute)
		attrType, ok := c.typesBySlug[slug]
		if !ok {
			return nil, &ReferentialIntegrityError{Kind: "attribute type", Ref: spec.Attribute}
		}
		byValue := make(map[string]*models.AttributeOption, len(spec.Values))
		for _, value := range spec.Values {
			o, okOpt := c.options[attrType.ID][strings.ToLower(value)]
			if !okOpt {
				return nil, &ReferentialIntegrityError{Kind: "attribute option", Ref: spec.Attribute + "=" + value}
			}
			byValue[value] = o
		}
		out[spec.Attribute] = byValue
	}
	return out, nil
}

// Type returns the loaded attribute type for a slug, if present.
func (c *Catalog) Type(slug string) (*models.AttributeType, bool) {
	t, ok := c.typesBySlug[slug]
	return t, ok
}
