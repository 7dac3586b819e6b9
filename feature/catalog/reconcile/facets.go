package reconcile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"catalog-manager/core/utils"

	"github.com/go-playground/validator/v10"
)

// Facet names, matching the JSON columns on the product row.
const (
	FacetAttributes = "attributes"
	FacetVariants   = "variants"
	FacetGroups     = "groups"
	FacetCategories = "categories"
)

var validate = validator.New()

// SaveRequest is one product save as it arrives from the grid. A facet field
// left nil was omitted from the request; a facet field holding a JSON null or
// empty array is an explicit clear. The two must never be conflated.
type SaveRequest struct {
	Name        string   `json:"name" validate:"required"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Price       float64  `json:"price" validate:"gte=0"`
	Stock       int      `json:"stock"`
	Images      []string `json:"images"`

	// Version is the last-seen product version for optimistic concurrency.
	Version int    `json:"version"`
	Actor   string `json:"actor"`

	Attributes json.RawMessage `json:"attributes_json,omitempty"`
	Variants   json.RawMessage `json:"variants_json,omitempty"`
	Groups     json.RawMessage `json:"groups_json,omitempty"`
	Categories json.RawMessage `json:"categories_json,omitempty"`
}

// AttributeSpec is one entry of the attributes facet.
type AttributeSpec struct {
	Attribute string   `json:"attribute" validate:"required"`
	Values    []string `json:"values" validate:"required"`
}

// VariantSpec is one entry of the variants facet. Attribute values arrive as
// arbitrary extra keys next to the fixed fields, so decoding collects them
// separately.
type VariantSpec struct {
	Name          string
	SKU           string
	PurchasePrice *float64
	SalePrice     float64
	StockQty      int
	Images        []string

	// Attributes maps attribute name to value. AttrNames holds the names
	// in deterministic (sorted) order for stable option creation.
	Attributes map[string]string
	AttrNames  []string
}

// variantFixedKeys are the spec fields that are not attribute values.
var variantFixedKeys = map[string]struct{}{
	"name": {}, "sku": {}, "purchase_price": {}, "sale_price": {},
	"stock_qty": {}, "images": {},
}

// UnmarshalJSON decodes the fixed fields and folds every remaining key into
// the attribute map, coercing scalar values to strings (Número: 5 -> "5").
func (v *VariantSpec) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	v.Attributes = make(map[string]string)

	for key, val := range raw {
		if _, fixed := variantFixedKeys[key]; !fixed {
			if val == nil {
				continue
			}
			switch val.(type) {
			case map[string]any, []any:
				return fmt.Errorf("attribute %q: expected a scalar value", key)
			}
			v.Attributes[key] = utils.ToString(val)
			continue
		}

		var buf []byte
		buf, err := json.Marshal(val)
		if err != nil {
			return err
		}
		switch key {
		case "name":
			err = json.Unmarshal(buf, &v.Name)
		case "sku":
			err = json.Unmarshal(buf, &v.SKU)
		case "purchase_price":
			err = json.Unmarshal(buf, &v.PurchasePrice)
		case "sale_price":
			err = json.Unmarshal(buf, &v.SalePrice)
		case "stock_qty":
			err = json.Unmarshal(buf, &v.StockQty)
		case "images":
			err = json.Unmarshal(buf, &v.Images)
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}

	v.AttrNames = make([]string, 0, len(v.Attributes))
	for name := range v.Attributes {
		v.AttrNames = append(v.AttrNames, name)
	}
	sort.Strings(v.AttrNames)

	return nil
}

// GroupSpec is one entry of the groups facet.
type GroupSpec struct {
	Name        string       `json:"name" validate:"required"`
	Slug        string       `json:"slug"`
	Description string       `json:"description"`
	Images      []string     `json:"images"`
	Members     GroupMembers `json:"members"`
}

// GroupMembers is either an explicit list of canonical variant keys or a
// filter criterion applied to the product's current variant set.
type GroupMembers struct {
	Keys   []string
	Filter *MemberFilter
}

// MemberFilter selects variants whose attribute selection matches every
// entry of Match and none of the excluded values.
type MemberFilter struct {
	Match   map[string]string   `json:"match"`
	Exclude map[string][]string `json:"exclude"`
}

// UnmarshalJSON accepts a JSON array (explicit keys) or object (filter).
func (m *GroupMembers) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &m.Keys)
	}
	m.Filter = &MemberFilter{}
	return json.Unmarshal(trimmed, m.Filter)
}

// CategorySpec is one entry of the categories facet. Path is the full
// ordered chain from root to leaf; an empty path places the node at the root.
type CategorySpec struct {
	Name string   `json:"name" validate:"required"`
	Slug string   `json:"slug"`
	Path []string `json:"path"`
}

// Chain returns the full root-to-leaf name chain for the spec.
func (c CategorySpec) Chain() []string {
	if len(c.Path) == 0 {
		return []string{c.Name}
	}
	return c.Path
}

// CanonicalVariantKey builds the stable external key for an attribute
// selection: "slug=value|slug=value" with slugs sorted. Groups reference
// their members by this key so SKU and name edits cannot break membership.
func CanonicalVariantKey(selection map[string]string) string {
	parts := make([]string, 0, len(selection))
	for slug, value := range selection {
		parts = append(parts, slug+"="+value)
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// ContentHash returns the stable digest of a facet document. The value is
// canonicalized by decode/re-encode so key order and whitespace differences
// in the operator's JSON do not count as changes.
func ContentHash(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("malformed JSON: %w", err)
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// IsCleared reports whether the facet was explicitly emptied (JSON null or
// an empty array), as opposed to omitted from the request.
func IsCleared(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("[]"))
}

// clearedDoc is what a cleared facet stores as its raw column and hash base.
var clearedDoc = json.RawMessage("[]")

// ParsedFacets holds the decoded facet documents of one save.
type ParsedFacets struct {
	Attributes []AttributeSpec
	Variants   []VariantSpec
	Groups     []GroupSpec
	Categories []CategorySpec
}

// ParseFacets decodes and shape-validates every facet sent with the request.
// It runs before any transaction opens; all failures are ValidationErrors.
func ParseFacets(req *SaveRequest) (*ParsedFacets, error) {
	if err := validate.Struct(req); err != nil {
		return nil, &ValidationError{Facet: "request", Reason: err.Error()}
	}

	parsed := &ParsedFacets{}

	if req.Attributes != nil && !IsCleared(req.Attributes) {
		if err := json.Unmarshal(req.Attributes, &parsed.Attributes); err != nil {
			return nil, &ValidationError{Facet: FacetAttributes, Reason: err.Error()}
		}
		for i, spec := range parsed.Attributes {
			if err := validate.Struct(spec); err != nil {
				return nil, &ValidationError{
					Facet:  FacetAttributes,
					Field:  fmt.Sprintf("entry %d", i),
					Reason: err.Error(),
				}
			}
		}
	}

	if req.Variants != nil && !IsCleared(req.Variants) {
		if err := json.Unmarshal(req.Variants, &parsed.Variants); err != nil {
			return nil, &ValidationError{Facet: FacetVariants, Reason: err.Error()}
		}
		for i, spec := range parsed.Variants {
			if spec.SKU == "" {
				return nil, &ValidationError{
					Facet:  FacetVariants,
					Field:  fmt.Sprintf("entry %d", i),
					Reason: "missing sku",
				}
			}
			if len(spec.Attributes) == 0 {
				return nil, &ValidationError{
					Facet:  FacetVariants,
					Field:  fmt.Sprintf("entry %d (%s)", i, spec.SKU),
					Reason: "variant has no attribute values",
				}
			}
		}
	}

	if req.Groups != nil && !IsCleared(req.Groups) {
		if err := json.Unmarshal(req.Groups, &parsed.Groups); err != nil {
			return nil, &ValidationError{Facet: FacetGroups, Reason: err.Error()}
		}
		for i, spec := range parsed.Groups {
			if err := validate.Struct(spec); err != nil {
				return nil, &ValidationError{
					Facet:  FacetGroups,
					Field:  fmt.Sprintf("entry %d", i),
					Reason: err.Error(),
				}
			}
			if len(spec.Members.Keys) == 0 && spec.Members.Filter == nil {
				return nil, &ValidationError{
					Facet:  FacetGroups,
					Field:  fmt.Sprintf("entry %d (%s)", i, spec.Name),
					Reason: "group has no members",
				}
			}
		}
	}

	if req.Categories != nil && !IsCleared(req.Categories) {
		if err := json.Unmarshal(req.Categories, &parsed.Categories); err != nil {
			return nil, &ValidationError{Facet: FacetCategories, Reason: err.Error()}
		}
		for i, spec := range parsed.Categories {
			if spec.Name == "" && len(spec.Path) == 0 {
				return nil, &ValidationError{
					Facet:  FacetCategories,
					Field:  fmt.Sprintf("entry %d", i),
					Reason: "missing name and path",
				}
			}
		}
	}

	return parsed, nil
}
