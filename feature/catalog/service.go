package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-manager/core/storage"
	"catalog-manager/feature/catalog/models"
	"catalog-manager/feature/catalog/navigation"
	"catalog-manager/feature/catalog/reconcile"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrProductNotFound is returned when a slug resolves to no product.
var ErrProductNotFound = errors.New("product not found")

// Service ties reconciliation, navigation and the read model together.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	runner *reconcile.Runner
	cache  *navigation.Cache
	images storage.ImageStore
}

// NewService creates the catalog service. The navigation cache doubles as
// the runner's invalidator so committed saves always drop stale snapshots.
func NewService(db *gorm.DB, logger *zap.Logger, images storage.ImageStore,
	prices reconcile.PriceHistory, changes reconcile.ChangeSet, cacheTTL time.Duration) *Service {
	cache := navigation.NewCache(db, cacheTTL)
	runner := reconcile.NewRunner(db, logger, prices, changes, cache)
	return &Service{
		db:     db,
		logger: logger,
		runner: runner,
		cache:  cache,
		images: images,
	}
}

// Save reconciles one product save request.
func (s *Service) Save(ctx context.Context, req *reconcile.SaveRequest) (*reconcile.Result, error) {
	return s.runner.SaveProduct(ctx, req)
}

// SaveBulk reconciles many rows, each in its own transaction.
func (s *Service) SaveBulk(ctx context.Context, reqs []reconcile.SaveRequest) *reconcile.BulkReport {
	return s.runner.SaveBulk(ctx, reqs)
}

// VariantView is one variant in the read model.
type VariantView struct {
	ID            uint              `json:"id"`
	SKU           string            `json:"sku"`
	Name          string            `json:"name"`
	Key           string            `json:"key"`
	Selection     map[string]string `json:"selection"`
	PurchasePrice *float64          `json:"purchase_price,omitempty"`
	SalePrice     float64           `json:"sale_price"`
	StockQty      int               `json:"stock_qty"`
	Images        []string          `json:"images,omitempty"`
	ImageURLs     []string          `json:"image_urls,omitempty"`
}

// GroupSummary is one variant group in the read model.
type GroupSummary struct {
	ID        uint              `json:"id"`
	Slug      string            `json:"slug"`
	Name      string            `json:"name"`
	Shared    map[string]string `json:"shared,omitempty"`
	MemberIDs []uint            `json:"member_ids"`
	PriceMin  float64           `json:"price_min"`
	PriceMax  float64           `json:"price_max"`
	Images    []string          `json:"images,omitempty"`
	ImageURLs []string          `json:"image_urls,omitempty"`
}

// CategoryView is one category membership in the read model.
type CategoryView struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Path     string `json:"path"`
	Depth    int    `json:"depth"`
	Explicit bool   `json:"explicit"`
}

// ProductView is the full read model of one product.
type ProductView struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description,omitempty"`
	Price       float64         `json:"price"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"images,omitempty"`
	ImageURLs   []string        `json:"image_urls,omitempty"`
	Version     int             `json:"version"`
	Stats       reconcile.Stats `json:"stats"`
	Variants    []VariantView   `json:"variants"`
	Groups      []GroupSummary  `json:"groups"`
	Categories  []CategoryView  `json:"categories"`
}

// GetProduct builds the read model for one product slug.
func (s *Service) GetProduct(ctx context.Context, slug string) (*ProductView, error) {
	product, err := s.findProduct(ctx, slug)
	if err != nil {
		return nil, err
	}

	snap, err := s.cache.Snapshot(product.ID)
	if err != nil {
		return nil, err
	}

	view := &ProductView{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		Images:      product.Images,
		ImageURLs:   s.resolveImages(ctx, product.Images),
		Version:     product.Version,
	}

	for _, node := range snap.Relation.Variants {
		view.Variants = append(view.Variants, VariantView{
			ID:        node.ID,
			SKU:       node.SKU,
			Name:      node.Name,
			Key:       reconcile.CanonicalVariantKey(node.Selection),
			Selection: node.Selection,
			SalePrice: node.SalePrice,
			StockQty:  node.StockQty,
			Images:    node.Images,
			ImageURLs: s.resolveImages(ctx, node.Images),
		})
	}

	for _, g := range snap.Groups {
		view.Groups = append(view.Groups, GroupSummary{
			ID:        g.ID,
			Slug:      g.Slug,
			Name:      g.Name,
			Shared:    g.Shared,
			MemberIDs: g.MemberIDs,
			PriceMin:  g.PriceMin,
			PriceMax:  g.PriceMax,
			Images:    g.Images,
			ImageURLs: s.resolveImages(ctx, g.Images),
		})
	}

	view.Categories, err = s.loadCategories(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	var variants []models.Variant
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", product.ID).
		Find(&variants).Error; err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}
	view.Stats = reconcile.ComputeStats(product, variants)

	return view, nil
}

// FacetDoc is the stored state of the four facet documents. GetFacets hands
// back exactly what the last save stored, so export and re-import round-trip
// as a no-op.
type FacetDoc struct {
	Version    int             `json:"version"`
	Attributes json.RawMessage `json:"attributes_json,omitempty"`
	Variants   json.RawMessage `json:"variants_json,omitempty"`
	Groups     json.RawMessage `json:"groups_json,omitempty"`
	Categories json.RawMessage `json:"categories_json,omitempty"`
}

// GetFacets returns a product's stored facet documents.
func (s *Service) GetFacets(ctx context.Context, slug string) (*FacetDoc, error) {
	product, err := s.findProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &FacetDoc{
		Version:    product.Version,
		Attributes: json.RawMessage(product.AttributesJSON),
		Variants:   json.RawMessage(product.VariantsJSON),
		Groups:     json.RawMessage(product.GroupsJSON),
		Categories: json.RawMessage(product.CategoriesJSON),
	}, nil
}

// Navigate resolves one navigation step for the product.
func (s *Service) Navigate(ctx context.Context, slug string, q navigation.Query) (*navigation.Target, error) {
	product, err := s.findProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	snap, err := s.cache.Snapshot(product.ID)
	if err != nil {
		return nil, err
	}
	return navigation.Resolve(snap, q)
}

func (s *Service) findProduct(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", slug, err)
	}
	return &product, nil
}

func (s *Service) loadCategories(ctx context.Context, productID uint) ([]CategoryView, error) {
	var memberships []models.ProductCategory
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("failed to load category memberships: %w", err)
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(memberships))
	explicit := make(map[uint]bool, len(memberships))
	for i, m := range memberships {
		ids[i] = m.CategoryID
		explicit[m.CategoryID] = m.Explicit
	}

	var nodes []models.Category
	if err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("depth asc, path asc").
		Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	views := make([]CategoryView, len(nodes))
	for i, n := range nodes {
		views[i] = CategoryView{
			ID:       n.ID,
			Name:     n.Name,
			Slug:     n.Slug,
			Path:     n.Path,
			Depth:    n.Depth,
			Explicit: explicit[n.ID],
		}
	}
	return views, nil
}

// resolveImages turns stored references into fetchable URLs. A reference
// that fails to resolve is skipped rather than failing the whole view.
func (s *Service) resolveImages(ctx context.Context, refs []string) []string {
	if s.images == nil || len(refs) == 0 {
		return nil
	}
	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		u, err := s.images.ResolveURL(ctx, ref)
		if err != nil {
			s.logger.Warn("Failed to resolve image reference",
				zap.String("ref", ref), zap.Error(err))
			continue
		}
		urls = append(urls, u)
	}
	return urls
}
