package history

import (
	"strconv"

	"catalog-manager/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for history.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the history routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/history")
	group.Get("/variants/:id/prices", h.HandleVariantPrices)
	group.Get("/changesets/:txn", h.HandleChangeSet)
	group.Get("/products/:id/changes", h.HandleProductChanges)
}

// HandleVariantPrices returns a variant's price transitions.
// @Summary Variant price history
// @Description Price transitions of one variant, newest first.
// @Tags history
// @Produce json
// @Param id path int true "Variant ID"
// @Success 200 {array} models.PriceChangeEntry "Price changes"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /history/variants/{id}/prices [get]
func (h *Handler) HandleVariantPrices(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid variant id"})
	}
	l := logger.WithRayID(h.service.logger, c)

	entries, err := h.service.VariantPrices(c.Context(), uint(id))
	if err != nil {
		l.Error("Price history lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(entries)
}

// HandleChangeSet returns every mutation of one reconciliation run.
// @Summary Change set of a save
// @Description All mutations recorded under one transaction id.
// @Tags history
// @Produce json
// @Param txn path string true "Transaction ID"
// @Success 200 {array} models.ChangeEntry "Changes"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /history/changesets/{txn} [get]
func (h *Handler) HandleChangeSet(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	entries, err := h.service.ChangeSet(c.Context(), c.Params("txn"))
	if err != nil {
		l.Error("Change set lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(entries)
}

// HandleProductChanges returns a product's recent change entries.
// @Summary Product change log
// @Description Recent mutations of one product across saves.
// @Tags history
// @Produce json
// @Param id path int true "Product ID"
// @Param limit query int false "Max entries (default 100)"
// @Success 200 {array} models.ChangeEntry "Changes"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /history/products/{id}/changes [get]
func (h *Handler) HandleProductChanges(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	l := logger.WithRayID(h.service.logger, c)

	entries, err := h.service.ProductChanges(c.Context(), uint(id), c.QueryInt("limit"))
	if err != nil {
		l.Error("Product change log lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(entries)
}
