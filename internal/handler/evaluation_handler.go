package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/service"
	"github.com/noah-isme/school-points-api/internal/utils"
)

// EvaluationHandler wires the points ledger endpoints.
type EvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches evaluation routes to the router group.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/recent", h.recent)
	router.Delete("/:id", h.remove)
}

func (h *EvaluationHandler) create(c *fiber.Ctx) error {
	var req dto.EvaluationCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	ids, err := h.service.Create(c.UserContext(), viewerFromContext(c), req)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to record evaluation")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evaluations recorded", fiber.Map{"ids": ids})
}

func (h *EvaluationHandler) recent(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	rows, err := h.service.ListRecent(c.UserContext(), viewerFromContext(c), limit)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to list evaluations")
	}
	return utils.SendSuccess(c, "evaluations retrieved", rows)
}

func (h *EvaluationHandler) remove(c *fiber.Ctx) error {
	if err := h.service.Remove(c.UserContext(), viewerFromContext(c), c.Params("id")); err != nil {
		return writeServiceError(c, h.logger, err, "failed to delete evaluation")
	}
	return utils.SendSuccess(c, "evaluation deleted", nil)
}
