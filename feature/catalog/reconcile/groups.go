package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"catalog-manager/core/utils"
	"catalog-manager/feature/catalog/models"

	"gorm.io/gorm"
)

// variantView is an active variant with its attribute selection resolved to
// slugs and values, plus the canonical external key built from them.
type variantView struct {
	variant   *models.Variant
	selection map[string]string
	key       string
}

// loadVariantViews resolves the product's active variants into views.
func loadVariantViews(tx *gorm.DB, productID uint) ([]variantView, error) {
	var variants []models.Variant
	err := tx.Where("product_id = ? AND active = ?", productID, true).
		Preload("Attributes.AttributeOption.AttributeType").
		Order("id asc").
		Find(&variants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}

	views := make([]variantView, len(variants))
	for i := range variants {
		v := &variants[i]
		selection := make(map[string]string, len(v.Attributes))
		for _, va := range v.Attributes {
			selection[va.AttributeOption.AttributeType.Slug] = va.AttributeOption.Value
		}
		views[i] = variantView{
			variant:   v,
			selection: selection,
			key:       CanonicalVariantKey(selection),
		}
	}

	return views, nil
}

// normalizeMemberKey re-canonicalizes an operator-supplied member key so key
// part order never matters.
func normalizeMemberKey(key string) string {
	selection := make(map[string]string)
	for _, part := range strings.Split(key, "|") {
		if eq := strings.IndexByte(part, '='); eq > 0 {
			selection[strings.TrimSpace(part[:eq])] = strings.TrimSpace(part[eq+1:])
		}
	}
	return CanonicalVariantKey(selection)
}

// ReconcileGroups upserts the product's variant groups from the facet specs.
// Membership is resolved against the current active variant set, either from
// explicit canonical keys or by filter; slug collisions within the save get
// deterministic numeric suffixes; groups absent from the document are retired.
func ReconcileGroups(tx *gorm.DB, product *models.Product, specs []GroupSpec, rec Recorders, rep *FacetReport) error {
	views, err := loadVariantViews(tx, product.ID)
	if err != nil {
		return err
	}
	byKey := make(map[string]*variantView, len(views))
	for i := range views {
		byKey[views[i].key] = &views[i]
	}

	var existing []models.VariantGroup
	if err := tx.Where("product_id = ?", product.ID).
		Preload("Members").
		Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load groups: %w", err)
	}
	activeBySlug := make(map[string]*models.VariantGroup)
	retiredBySlug := make(map[string]*models.VariantGroup)
	for i := range existing {
		g := &existing[i]
		if g.Active {
			activeBySlug[g.Slug] = g
		} else {
			retiredBySlug[g.Slug] = g
		}
	}

	slugUse := make(map[string]int, len(specs))
	matched := make(map[string]struct{}, len(specs))

	for i, spec := range specs {
		slug := spec.Slug
		if slug == "" {
			slug = utils.Slugify(spec.Name)
		}
		slugUse[slug]++
		if n := slugUse[slug]; n > 1 {
			slug = fmt.Sprintf("%s-%d", slug, n)
		}
		matched[slug] = struct{}{}

		members, err := resolveMembers(spec, views, byKey)
		if err != nil {
			return err
		}

		images := spec.Images
		if len(images) == 0 {
			// Fall back to the first image among members, lowest variant id
			// first. Members are already in ascending id order.
			for _, m := range members {
				if len(m.Images) > 0 {
					images = []string{m.Images[0]}
					break
				}
			}
		}

		if g, ok := activeBySlug[slug]; ok {
			changed, err := applyGroupSpec(tx, g, spec, slug, i, images, members, false)
			if err != nil {
				return err
			}
			if changed {
				rep.Updates++
				if err := rec.change(tx, product.ID, "group", g.ID, ActionUpdate, slug); err != nil {
					return err
				}
			}
			continue
		}

		if g, ok := retiredBySlug[slug]; ok {
			g.Active = true
			if _, err := applyGroupSpec(tx, g, spec, slug, i, images, members, true); err != nil {
				return err
			}
			rep.Updates++
			if err := rec.change(tx, product.ID, "group", g.ID, ActionUpdate, "revived "+slug); err != nil {
				return err
			}
			continue
		}

		g := &models.VariantGroup{ProductID: product.ID, Active: true}
		if _, err := applyGroupSpec(tx, g, spec, slug, i, images, members, true); err != nil {
			return err
		}
		rep.Creates++
		if err := rec.change(tx, product.ID, "group", g.ID, ActionCreate, slug); err != nil {
			return err
		}
	}

	for slug, g := range activeBySlug {
		if _, ok := matched[slug]; ok {
			continue
		}
		g.Active = false
		if err := tx.Save(g).Error; err != nil {
			return fmt.Errorf("failed to retire group %s: %w", slug, err)
		}
		rep.Retires++
		if err := rec.change(tx, product.ID, "group", g.ID, ActionRetire, slug); err != nil {
			return err
		}
	}

	return nil
}

// resolveMembers returns the member variants in ascending id order.
func resolveMembers(spec GroupSpec, views []variantView, byKey map[string]*variantView) ([]*models.Variant, error) {
	var members []*models.Variant

	if len(spec.Members.Keys) > 0 {
		seen := make(map[uint]struct{}, len(spec.Members.Keys))
		for _, key := range spec.Members.Keys {
			view, ok := byKey[normalizeMemberKey(key)]
			if !ok {
				return nil, &ReferentialIntegrityError{Kind: "group member", Ref: key}
			}
			if _, dup := seen[view.variant.ID]; dup {
				continue
			}
			seen[view.variant.ID] = struct{}{}
			members = append(members, view.variant)
		}
	} else if spec.Members.Filter != nil {
		for i := range views {
			if matchesFilter(views[i].selection, spec.Members.Filter) {
				members = append(members, views[i].variant)
			}
		}
	}

	if len(members) == 0 {
		return nil, &ReferentialIntegrityError{Kind: "group members", Ref: spec.Name}
	}

	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func matchesFilter(selection map[string]string, filter *MemberFilter) bool {
	for slug, value := range filter.Match {
		if selection[slug] != value {
			return false
		}
	}
	for slug, excluded := range filter.Exclude {
		for _, value := range excluded {
			if selection[slug] == value {
				return false
			}
		}
	}
	return true
}

// applyGroupSpec writes the spec onto the group and replaces its membership
// when it differs. Returns whether anything was written.
func applyGroupSpec(tx *gorm.DB, g *models.VariantGroup, spec GroupSpec, slug string, order int, images []string, members []*models.Variant, force bool) (bool, error) {
	fieldsChanged := force ||
		g.Name != spec.Name ||
		g.Slug != slug ||
		g.Description != spec.Description ||
		g.DisplayOrder != order ||
		strings.Join(g.Images, "|") != strings.Join(images, "|")

	memberIDs := make([]uint, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}
	membersChanged := force || !sameMembership(g.Members, memberIDs)

	if !fieldsChanged && !membersChanged {
		return false, nil
	}

	if fieldsChanged {
		g.Name = spec.Name
		g.Slug = slug
		g.Description = spec.Description
		g.DisplayOrder = order
		g.Images = models.StringList(images)
		if err := tx.Save(g).Error; err != nil {
			return false, fmt.Errorf("failed to save group %s: %w", slug, err)
		}
	}

	if membersChanged {
		if g.ID != 0 {
			if err := tx.Where("group_id = ?", g.ID).
				Delete(&models.VariantGroupMember{}).Error; err != nil {
				return false, fmt.Errorf("failed to clear group members: %w", err)
			}
		}
		for pos, id := range memberIDs {
			m := models.VariantGroupMember{GroupID: g.ID, VariantID: id, Position: pos}
			if err := tx.Create(&m).Error; err != nil {
				return false, fmt.Errorf("failed to add group member: %w", err)
			}
		}
	}

	return true, nil
}

func sameMembership(current []models.VariantGroupMember, desired []uint) bool {
	if len(current) != len(desired) {
		return false
	}
	sorted := append([]models.VariantGroupMember(nil), current...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
	for i, m := range sorted {
		if m.VariantID != desired[i] {
			return false
		}
	}
	return true
}
