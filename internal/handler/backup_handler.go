package handler

import (
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/service"
	"github.com/noah-isme/school-points-api/internal/utils"
)

const maxImportBytes = 32 << 20

// BackupHandler wires backup and year-end batch endpoints.
type BackupHandler struct {
	service service.BackupService
	logger  zerolog.Logger
}

// NewBackupHandler constructs the handler.
func NewBackupHandler(service service.BackupService, logger zerolog.Logger) *BackupHandler {
	return &BackupHandler{
		service: service,
		logger:  logger.With().Str("component", "backup_handler").Logger(),
	}
}

// Register attaches backup routes to the router group.
func (h *BackupHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/export", h.export)
	router.Post("/import", h.importSnapshot)
	router.Post("/clear-all", h.clearAll)
	router.Post("/clear-evaluations", h.clearEvaluations)
	router.Post("/advance-year", h.advanceYear)
	router.Post("/purge-tagged", h.purgeTagged)
	router.Get("/:id", h.download)
	router.Delete("/:id", h.remove)
	router.Post("/:id/restore", h.restore)
}

func (h *BackupHandler) list(c *fiber.Ctx) error {
	backups, err := h.service.List(c.UserContext(), viewerFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to list backups")
	}
	return utils.SendSuccess(c, "backups retrieved", backups)
}

func (h *BackupHandler) create(c *fiber.Ctx) error {
	backup, err := h.service.Create(c.UserContext(), viewerFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to create backup")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "backup created", backup)
}

func (h *BackupHandler) export(c *fiber.Ctx) error {
	snapshot, err := h.service.Export(c.UserContext(), viewerFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to export data")
	}
	return utils.SendSuccess(c, "data exported", snapshot)
}

func (h *BackupHandler) download(c *fiber.Ctx) error {
	backup, err := h.service.Get(c.UserContext(), viewerFromContext(c), c.Params("id"))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to load backup")
	}

	return utils.SendAttachment(c, fiber.MIMEApplicationJSONCharsetUTF8, backup.Filename, backup.Data)
}

func (h *BackupHandler) remove(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), viewerFromContext(c), c.Params("id")); err != nil {
		return writeServiceError(c, h.logger, err, "failed to delete backup")
	}
	return utils.SendSuccess(c, "backup deleted", nil)
}

func (h *BackupHandler) importSnapshot(c *fiber.Ctx) error {
	filename, payload, err := readImportPayload(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	backup, err := h.service.Import(c.UserContext(), viewerFromContext(c), filename, payload)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to import backup")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "backup imported", backup)
}

func (h *BackupHandler) restore(c *fiber.Ctx) error {
	result, err := h.service.Restore(c.UserContext(), viewerFromContext(c), c.Params("id"))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to restore backup")
	}
	return utils.SendSuccess(c, "backup restored", result)
}

func (h *BackupHandler) clearAll(c *fiber.Ctx) error {
	result, err := h.service.ClearAll(c.UserContext(), viewerFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to clear data")
	}
	return utils.SendSuccess(c, "all data cleared", result)
}

func (h *BackupHandler) clearEvaluations(c *fiber.Ctx) error {
	result, err := h.service.ClearEvaluations(c.UserContext(), viewerFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to clear evaluations")
	}
	return utils.SendSuccess(c, "evaluations cleared", result)
}

func (h *BackupHandler) advanceYear(c *fiber.Ctx) error {
	result, err := h.service.AdvanceYear(c.UserContext(), viewerFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to advance school year")
	}
	return utils.SendSuccess(c, "school year advanced", result)
}

func (h *BackupHandler) purgeTagged(c *fiber.Ctx) error {
	var req dto.PurgeTaggedRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.PurgeTagged(c.UserContext(), viewerFromContext(c), req)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to purge tagged data")
	}
	return utils.SendSuccess(c, "tagged data purged", result)
}

// readImportPayload accepts either a multipart "file" field or a raw request body.
func readImportPayload(c *fiber.Ctx) (string, []byte, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		header, err := c.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("file is required")
		}
		if header.Size > maxImportBytes {
			return "", nil, fmt.Errorf("file exceeds %d bytes", maxImportBytes)
		}

		file, err := header.Open()
		if err != nil {
			return "", nil, fmt.Errorf("unable to read file")
		}
		defer file.Close()

		payload, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
		if err != nil {
			return "", nil, fmt.Errorf("unable to read file")
		}
		return header.Filename, payload, nil
	}

	body := c.Body()
	if len(body) == 0 {
		return "", nil, fmt.Errorf("file is required")
	}
	if len(body) > maxImportBytes {
		return "", nil, fmt.Errorf("file exceeds %d bytes", maxImportBytes)
	}

	payload := make([]byte, len(body))
	copy(payload, body)
	return "", payload, nil
}
