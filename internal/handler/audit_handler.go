package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/service"
	"github.com/noah-isme/school-points-api/internal/utils"
)

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	service service.AuditService
	logger  zerolog.Logger
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service service.AuditService, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger.With().Str("component", "audit_handler").Logger(),
	}
}

// Register attaches audit routes to the router group.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *AuditHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	req := dto.AuditListRequest{
		Limit:       limit,
		Action:      strings.TrimSpace(c.Query("action")),
		PerformerID: strings.TrimSpace(c.Query("performer_id")),
	}

	entries, err := h.service.List(c.UserContext(), viewerFromContext(c), req)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to list audit logs")
	}
	return utils.SendSuccess(c, "audit logs retrieved", entries)
}
