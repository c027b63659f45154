package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/service"
	"github.com/noah-isme/school-points-api/internal/utils"
)

// CategoryHandler wires point category endpoints.
type CategoryHandler struct {
	service service.CategoryService
	logger  zerolog.Logger
}

// NewCategoryHandler constructs the handler.
func NewCategoryHandler(service service.CategoryService, logger zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{
		service: service,
		logger:  logger.With().Str("component", "category_handler").Logger(),
	}
}

// Register attaches category routes to the router group.
func (h *CategoryHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.remove)
	router.Get("/:id/evaluation-count", h.evaluationCount)
	router.Get("/:id/sub-category-count", h.subCategoryCount)
}

func (h *CategoryHandler) list(c *fiber.Ctx) error {
	categories, err := h.service.List(c.UserContext(), viewerFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to list categories")
	}
	return utils.SendSuccess(c, "categories retrieved", categories)
}

func (h *CategoryHandler) create(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	category, err := h.service.Create(c.UserContext(), viewerFromContext(c), req)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to create category")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "category created", category)
}

func (h *CategoryHandler) update(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	category, err := h.service.Update(c.UserContext(), viewerFromContext(c), c.Params("id"), req)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to update category")
	}
	return utils.SendSuccess(c, "category updated", category)
}

func (h *CategoryHandler) remove(c *fiber.Ctx) error {
	deleted, err := h.service.Remove(c.UserContext(), viewerFromContext(c), c.Params("id"))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to delete category")
	}
	return utils.SendSuccess(c, "category deleted", fiber.Map{"deleted_evaluations": deleted})
}

func (h *CategoryHandler) evaluationCount(c *fiber.Ctx) error {
	count, err := h.service.EvaluationCount(c.UserContext(), viewerFromContext(c), c.Params("id"))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to count evaluations")
	}
	return utils.SendSuccess(c, "evaluation count retrieved", fiber.Map{"count": count})
}

func (h *CategoryHandler) subCategoryCount(c *fiber.Ctx) error {
	subCategory := strings.TrimSpace(c.Query("sub_category"))
	if subCategory == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "sub_category is required")
	}

	count, err := h.service.SubCategoryEvaluationCount(c.UserContext(), viewerFromContext(c), c.Params("id"), subCategory)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to count evaluations")
	}
	return utils.SendSuccess(c, "evaluation count retrieved", fiber.Map{"count": count})
}
