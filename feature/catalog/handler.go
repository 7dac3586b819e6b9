package catalog

import (
	"errors"

	"catalog-manager/core/logger"
	"catalog-manager/feature/catalog/navigation"
	"catalog-manager/feature/catalog/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the catalog.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the catalog routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/catalog")
	group.Put("/products/:slug", h.HandleSaveProduct)
	group.Post("/products/bulk", h.HandleSaveBulk)
	group.Get("/products/:slug", h.HandleGetProduct)
	group.Get("/products/:slug/facets", h.HandleGetFacets)
	group.Post("/products/:slug/navigate", h.HandleNavigate)
}

// statusForError maps reconciliation errors to HTTP statuses.
func statusForError(err error) int {
	var validation *reconcile.ValidationError
	var concurrency *reconcile.ConcurrencyConflict
	var identity *reconcile.ReconciliationConflict
	var reference *reconcile.ReferentialIntegrityError
	var cycle *reconcile.CategoryCycleError

	switch {
	case errors.Is(err, ErrProductNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &validation):
		return fiber.StatusBadRequest
	case errors.As(err, &concurrency), errors.As(err, &identity):
		return fiber.StatusConflict
	case errors.As(err, &reference), errors.As(err, &cycle):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleSaveProduct reconciles one product save.
// @Summary Save a product
// @Description Reconcile a product row and its facet documents into the normalized catalog.
// @Tags catalog
// @Accept json
// @Produce json
// @Param slug path string true "Product slug"
// @Param request body reconcile.SaveRequest true "Product row with facet documents"
// @Success 200 {object} reconcile.Result "Save outcome"
// @Failure 400 {object} map[string]string "Malformed facet"
// @Failure 409 {object} map[string]string "Version or identity conflict"
// @Failure 422 {object} map[string]string "Unresolvable reference"
// @Router /catalog/products/{slug} [put]
func (h *Handler) HandleSaveProduct(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req reconcile.SaveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	req.Slug = c.Params("slug")

	result, err := h.service.Save(c.Context(), &req)
	if err != nil {
		l.Warn("Product save failed",
			zap.String("slug", req.Slug), zap.Error(err))
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(result)
}

// HandleSaveBulk reconciles many product rows.
// @Summary Save products in bulk
// @Description Reconcile many product rows, each in its own transaction. One failing row never rolls back the others.
// @Tags catalog
// @Accept json
// @Produce json
// @Param request body []reconcile.SaveRequest true "Product rows"
// @Success 200 {object} reconcile.BulkReport "Per-row outcomes"
// @Failure 400 {object} map[string]string "Malformed body"
// @Router /catalog/products/bulk [post]
func (h *Handler) HandleSaveBulk(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var reqs []reconcile.SaveRequest
	if err := c.BodyParser(&reqs); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	report := h.service.SaveBulk(c.Context(), reqs)
	l.Info("Bulk save finished",
		zap.Int("total", report.Summary.Total),
		zap.Int("failed", report.Summary.Failed))

	return c.JSON(report)
}

// HandleGetProduct returns the full read model of a product.
// @Summary Get a product
// @Description Product scalars, variants, groups, categories and aggregates.
// @Tags catalog
// @Produce json
// @Param slug path string true "Product slug"
// @Success 200 {object} ProductView "Product"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /catalog/products/{slug} [get]
func (h *Handler) HandleGetProduct(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	view, err := h.service.GetProduct(c.Context(), c.Params("slug"))
	if err != nil {
		if !errors.Is(err, ErrProductNotFound) {
			l.Error("Product lookup failed", zap.Error(err))
		}
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(view)
}

// HandleGetFacets returns the stored facet documents of a product.
// @Summary Export a product's facets
// @Description The facet documents exactly as the last save stored them; re-importing them is a no-op.
// @Tags catalog
// @Produce json
// @Param slug path string true "Product slug"
// @Success 200 {object} FacetDoc "Facet documents"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /catalog/products/{slug}/facets [get]
func (h *Handler) HandleGetFacets(c *fiber.Ctx) error {
	doc, err := h.service.GetFacets(c.Context(), c.Params("slug"))
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(doc)
}

// HandleNavigate resolves one navigation step.
// @Summary Navigate between variants
// @Description Resolve the current context plus newly picked attribute values into the best group or variant.
// @Tags catalog
// @Accept json
// @Produce json
// @Param slug path string true "Product slug"
// @Param request body navigation.Query true "Current context and overrides"
// @Success 200 {object} navigation.Target "Navigation target"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /catalog/products/{slug}/navigate [post]
func (h *Handler) HandleNavigate(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var q navigation.Query
	if err := c.BodyParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	target, err := h.service.Navigate(c.Context(), c.Params("slug"), q)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		l.Warn("Navigation failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(target)
}
