package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catalog-manager/core/utils"
	"catalog-manager/feature/catalog/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Invalidator is notified after a commit that changed a product, so derived
// caches can drop their snapshot of it.
type Invalidator interface {
	Invalidate(productID uint)
}

// NopInvalidator ignores invalidations.
type NopInvalidator struct{}

func (NopInvalidator) Invalidate(uint) {}

// Runner drives product saves end to end: parse, detect, reconcile each
// changed facet inside one transaction, then notify collaborators.
type Runner struct {
	db          *gorm.DB
	log         *zap.Logger
	prices      PriceHistory
	changes     ChangeSet
	invalidator Invalidator
}

// NewRunner builds a runner. Nil collaborators fall back to no-ops.
func NewRunner(db *gorm.DB, log *zap.Logger, prices PriceHistory, changes ChangeSet, inv Invalidator) *Runner {
	if prices == nil {
		prices = NopPriceHistory{}
	}
	if changes == nil {
		changes = NopChangeSet{}
	}
	if inv == nil {
		inv = NopInvalidator{}
	}
	return &Runner{db: db, log: log, prices: prices, changes: changes, invalidator: inv}
}

// SaveProduct reconciles one save request. The whole request commits or
// rolls back as a unit; re-sending an identical request produces zero
// writes and leaves the version untouched.
func (r *Runner) SaveProduct(ctx context.Context, req *SaveRequest) (*Result, error) {
	parsed, err := ParseFacets(req)
	if err != nil {
		return nil, err
	}

	slug := req.Slug
	if slug == "" {
		slug = utils.Slugify(req.Name)
	}

	txnID := uuid.NewString()
	result := &Result{Slug: slug, TxnID: txnID}
	mutated := false

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, created, err := r.loadOrCreate(tx, slug, req)
		if err != nil {
			return err
		}

		if !created && req.Version != product.Version {
			return &ConcurrencyConflict{Expected: req.Version, Actual: product.Version}
		}
		prev := product.Version

		scalarChanged := applyScalars(product, req)

		outcomes, err := DetectChanges(req, product)
		if err != nil {
			return err
		}

		rec := Recorders{Prices: r.prices, Changes: r.changes, TxnID: txnID, Actor: req.Actor}
		reports := make(map[string]*FacetReport, len(outcomes))
		for facet, out := range outcomes {
			reports[facet] = &FacetReport{State: out.State}
		}

		cat, err := NewCatalog(tx, product)
		if err != nil {
			return err
		}

		// Order matters: variants depend on the attribute catalog, groups
		// on the variant set. A cleared attributes facet only drops the
		// stored document; options stay while variants reference them.
		if out := outcomes[FacetAttributes]; out.State == FacetChanged {
			if err := cat.Apply(parsed.Attributes, reports[FacetAttributes]); err != nil {
				return err
			}
		}
		if out := outcomes[FacetVariants]; out.State.NeedsReconcile() {
			specs := parsed.Variants
			if out.State == FacetCleared {
				specs = nil
			}
			if err := ReconcileVariants(tx, product, specs, cat, rec, reports[FacetVariants]); err != nil {
				return err
			}
		}
		if out := outcomes[FacetGroups]; out.State.NeedsReconcile() {
			specs := parsed.Groups
			if out.State == FacetCleared {
				specs = nil
			}
			if err := ReconcileGroups(tx, product, specs, rec, reports[FacetGroups]); err != nil {
				return err
			}
		}
		if out := outcomes[FacetCategories]; out.State.NeedsReconcile() {
			specs := parsed.Categories
			if out.State == FacetCleared {
				specs = nil
			}
			if err := ReconcileCategories(tx, product, specs, rec, reports[FacetCategories]); err != nil {
				return err
			}
		}

		facetChanged := storeFacets(product, outcomes)
		mutated = created || scalarChanged || facetChanged

		if mutated {
			product.Version = prev + 1
			res := tx.Model(&models.Product{}).
				Where("id = ? AND version = ?", product.ID, prev).
				Select("name", "description", "price", "stock", "images",
					"attributes_json", "variants_json", "groups_json", "categories_json",
					"attributes_hash", "variants_hash", "groups_hash", "categories_hash",
					"version").
				Updates(product)
			if res.Error != nil {
				return fmt.Errorf("failed to persist product %s: %w", slug, res.Error)
			}
			if res.RowsAffected == 0 {
				var current models.Product
				if err := tx.First(&current, product.ID).Error; err != nil {
					return fmt.Errorf("failed to reload product %s: %w", slug, err)
				}
				return &ConcurrencyConflict{Expected: prev, Actual: current.Version}
			}

			action := ActionUpdate
			if created {
				action = ActionCreate
			}
			if err := rec.change(tx, product.ID, "product", product.ID, action, slug); err != nil {
				return err
			}
		}

		var variants []models.Variant
		if err := tx.Where("product_id = ?", product.ID).Find(&variants).Error; err != nil {
			return fmt.Errorf("failed to load variants for stats: %w", err)
		}
		stats := ComputeStats(product, variants)

		result.ProductID = product.ID
		result.OK = true
		result.Version = product.Version
		result.Facets = reports
		result.Stats = &stats
		return nil
	})
	if err != nil {
		return nil, err
	}

	if mutated {
		r.invalidator.Invalidate(result.ProductID)
	}
	r.log.Info("product saved",
		zap.String("slug", slug),
		zap.String("txn_id", txnID),
		zap.Uint("product_id", result.ProductID),
		zap.Int("version", result.Version),
		zap.Bool("mutated", mutated))

	return result, nil
}

// SaveBulk reconciles each request in its own transaction. One failing row
// never rolls back its neighbors.
func (r *Runner) SaveBulk(ctx context.Context, reqs []SaveRequest) *BulkReport {
	report := &BulkReport{Results: make([]Result, 0, len(reqs))}
	report.Summary.Total = len(reqs)

	for i := range reqs {
		req := &reqs[i]
		res, err := r.SaveProduct(ctx, req)
		if err != nil {
			slug := req.Slug
			if slug == "" {
				slug = utils.Slugify(req.Name)
			}
			report.Results = append(report.Results, Result{Slug: slug, Error: err.Error()})
			report.Summary.Failed++
			r.log.Warn("bulk row failed",
				zap.String("slug", slug),
				zap.Error(err))
			continue
		}
		report.Results = append(report.Results, *res)
		report.Summary.Succeeded++
	}

	return report
}

func (r *Runner) loadOrCreate(tx *gorm.DB, slug string, req *SaveRequest) (*models.Product, bool, error) {
	var product models.Product
	err := tx.Where("slug = ?", slug).First(&product).Error
	if err == nil {
		return &product, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to load product %s: %w", slug, err)
	}

	product = models.Product{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Images:      models.StringList(req.Images),
		Active:      true,
	}
	if err := tx.Create(&product).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create product %s: %w", slug, err)
	}
	return &product, true, nil
}

func applyScalars(product *models.Product, req *SaveRequest) bool {
	changed := product.Name != req.Name ||
		product.Description != req.Description ||
		product.Price != req.Price ||
		product.Stock != req.Stock ||
		strings.Join(product.Images, "|") != strings.Join(req.Images, "|")
	if !changed {
		return false
	}
	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.Stock = req.Stock
	product.Images = models.StringList(req.Images)
	return true
}

// storeFacets writes the detected raw documents and hashes onto the product
// and reports whether any facet actually changed.
func storeFacets(product *models.Product, outcomes map[string]FacetOutcome) bool {
	changed := false
	for facet, out := range outcomes {
		if !out.State.NeedsReconcile() && out.State != FacetUnchanged {
			continue
		}
		switch facet {
		case FacetAttributes:
			product.AttributesJSON = models.RawJSON(out.Raw)
			product.AttributesHash = out.Hash
		case FacetVariants:
			product.VariantsJSON = models.RawJSON(out.Raw)
			product.VariantsHash = out.Hash
		case FacetGroups:
			product.GroupsJSON = models.RawJSON(out.Raw)
			product.GroupsHash = out.Hash
		case FacetCategories:
			product.CategoriesJSON = models.RawJSON(out.Raw)
			product.CategoriesHash = out.Hash
		}
		if out.State.NeedsReconcile() {
			changed = true
		}
	}
	return changed
}
