package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-points-api/internal/service"
	"github.com/noah-isme/school-points-api/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler exposes the weekly points reports.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches report routes to the router group.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("/weekly", h.weeklyList)
	router.Get("/weekly/:friday", h.weeklyDetail)
	router.Get("/weekly/:friday/export", h.weeklyExport)
}

func (h *ReportHandler) weeklyList(c *fiber.Ctx) error {
	weeks, err := h.service.WeeklyList(c.UserContext(), viewerFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to build weekly reports")
	}
	return utils.SendSuccess(c, "weekly reports retrieved", weeks)
}

func (h *ReportHandler) weeklyDetail(c *fiber.Ctx) error {
	friday, err := parseParamInt64(c, "friday")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrInvalidReportDate.Error())
	}

	rows, err := h.service.WeeklyDetail(c.UserContext(), viewerFromContext(c), friday)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to build weekly report")
	}
	return utils.SendSuccess(c, "weekly report retrieved", rows)
}

func (h *ReportHandler) weeklyExport(c *fiber.Ctx) error {
	friday, err := parseParamInt64(c, "friday")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrInvalidReportDate.Error())
	}

	payload, filename, err := h.service.ExportWeekly(c.UserContext(), viewerFromContext(c), friday)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to export weekly report")
	}

	return utils.SendAttachment(c, xlsxContentType, filename, payload)
}
