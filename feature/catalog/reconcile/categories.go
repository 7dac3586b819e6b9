package reconcile

import (
	"errors"
	"fmt"

	"catalog-manager/core/utils"
	"catalog-manager/feature/catalog/models"

	"gorm.io/gorm"
)

// ReconcileCategories resolves each spec's root-to-leaf chain against the
// shared category forest and rewrites the product's memberships: leaves are
// explicit, ancestors inherited, and memberships a new spec no longer implies
// are pruned. Category nodes themselves are never deleted; other products may
// reference them.
func ReconcileCategories(tx *gorm.DB, product *models.Product, specs []CategorySpec, rec Recorders, rep *FacetReport) error {
	// categoryID -> explicit leaf membership
	desired := make(map[uint]bool)

	for _, spec := range specs {
		chain := spec.Chain()
		visited := make(map[uint]struct{}, len(chain))
		var parent *models.Category

		for i, name := range chain {
			node, created, err := ensureCategory(tx, name, parent)
			if err != nil {
				return err
			}
			if _, loop := visited[node.ID]; loop {
				return &CategoryCycleError{Path: chain}
			}
			visited[node.ID] = struct{}{}

			if created {
				rep.Creates++
				if err := rec.change(tx, product.ID, "category", node.ID, ActionCreate, node.Path); err != nil {
					return err
				}
			}

			if i == len(chain)-1 {
				desired[node.ID] = true
			} else if !desired[node.ID] {
				desired[node.ID] = false
			}
			parent = node
		}
	}

	var existing []models.ProductCategory
	if err := tx.Where("product_id = ?", product.ID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load category memberships: %w", err)
	}
	byCategory := make(map[uint]*models.ProductCategory, len(existing))
	for i := range existing {
		byCategory[existing[i].CategoryID] = &existing[i]
	}

	for categoryID, explicit := range desired {
		if pc, ok := byCategory[categoryID]; ok {
			if pc.Explicit != explicit {
				pc.Explicit = explicit
				if err := tx.Save(pc).Error; err != nil {
					return fmt.Errorf("failed to update category membership: %w", err)
				}
				rep.Updates++
				if err := rec.change(tx, product.ID, "category", categoryID, ActionUpdate, "membership"); err != nil {
					return err
				}
			}
			continue
		}
		pc := models.ProductCategory{ProductID: product.ID, CategoryID: categoryID, Explicit: explicit}
		if err := tx.Create(&pc).Error; err != nil {
			return fmt.Errorf("failed to create category membership: %w", err)
		}
		rep.Creates++
		if err := rec.change(tx, product.ID, "category", categoryID, ActionCreate, "membership"); err != nil {
			return err
		}
	}

	for categoryID, pc := range byCategory {
		if _, ok := desired[categoryID]; ok {
			continue
		}
		if err := tx.Delete(pc).Error; err != nil {
			return fmt.Errorf("failed to prune category membership: %w", err)
		}
		rep.Retires++
		if err := rec.change(tx, product.ID, "category", categoryID, ActionRetire, "membership"); err != nil {
			return err
		}
	}

	return nil
}

// ensureCategory finds or creates the node named under the given parent.
// Identity is (slug, parent_id); the same slug under two parents is two
// nodes. The materialized path and depth are recomputed from the chain being
// walked so renamed ancestors propagate.
func ensureCategory(tx *gorm.DB, name string, parent *models.Category) (*models.Category, bool, error) {
	slug := utils.Slugify(name)
	path := name
	depth := 0
	var parentID *uint
	if parent != nil {
		parentID = &parent.ID
		path = parent.Path + " > " + name
		depth = parent.Depth + 1
	}

	var node models.Category
	query := tx.Where("slug = ?", slug)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	err := query.First(&node).Error
	if err == nil {
		if node.Name != name || node.Path != path || node.Depth != depth {
			node.Name = name
			node.Path = path
			node.Depth = depth
			if err := tx.Save(&node).Error; err != nil {
				return nil, false, fmt.Errorf("failed to update category %s: %w", slug, err)
			}
		}
		return &node, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to load category %s: %w", slug, err)
	}

	node = models.Category{
		Name:     name,
		Slug:     slug,
		ParentID: parentID,
		Path:     path,
		Depth:    depth,
	}
	if err := tx.Create(&node).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create category %s: %w", slug, err)
	}
	return &node, true, nil
}

// AncestorChain walks a category's parent pointers to the root, returning
// ids leaf-first. A repeated node means corrupt parent data and raises a
// cycle error.
func AncestorChain(tx *gorm.DB, categoryID uint) ([]uint, error) {
	var ids []uint
	seen := make(map[uint]struct{})
	var names []string

	current := &categoryID
	for current != nil {
		if _, loop := seen[*current]; loop {
			// names were collected leaf-first, the error reads root-first
			for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
				names[i], names[j] = names[j], names[i]
			}
			return nil, &CategoryCycleError{Path: names}
		}
		seen[*current] = struct{}{}

		var node models.Category
		if err := tx.First(&node, *current).Error; err != nil {
			return nil, fmt.Errorf("failed to walk category chain: %w", err)
		}
		ids = append(ids, node.ID)
		names = append(names, node.Name)
		current = node.ParentID
	}

	return ids, nil
}
