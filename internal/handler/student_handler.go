package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/service"
	"github.com/noah-isme/school-points-api/internal/utils"
)

// StudentHandler wires student registry endpoints.
type StudentHandler struct {
	students    service.StudentService
	evaluations service.EvaluationService
	logger      zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(students service.StudentService, evaluations service.EvaluationService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		students:    students,
		evaluations: evaluations,
		logger:      logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student routes to the router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/exists", h.exists)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.remove)
	router.Delete("/:id/cascade", h.removeCascade)
	router.Patch("/:id/status", h.changeStatus)
	router.Post("/:id/disable", h.disable)
	router.Get("/:id/evaluation-count", h.evaluationCount)
	router.Get("/:id/evaluations", h.evaluationsByTeacher)
	router.Get("/:id/evaluations/all", h.evaluationsAll)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	req := dto.StudentListRequest{
		Search: strings.TrimSpace(c.Query("search")),
		Status: strings.TrimSpace(c.Query("status")),
	}
	if raw := strings.TrimSpace(c.Query("grade")); raw != "" {
		grade, err := parseQueryInt(c, "grade")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid grade")
		}
		req.Grade = &grade
	}

	students, err := h.students.List(c.UserContext(), viewerFromContext(c), req)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to list students")
	}
	return utils.SendSuccess(c, "students retrieved", students)
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	var req dto.StudentCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.students.Create(c.UserContext(), viewerFromContext(c), req)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to create student")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student saved", student)
}

func (h *StudentHandler) exists(c *fiber.Ctx) error {
	studentID := strings.TrimSpace(c.Query("student_id"))
	if studentID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "student_id is required")
	}

	found, err := h.students.Exists(c.UserContext(), viewerFromContext(c), studentID)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to check student")
	}
	return utils.SendSuccess(c, "student lookup complete", fiber.Map{"exists": found})
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	student, err := h.students.Get(c.UserContext(), viewerFromContext(c), c.Params("id"))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to load student")
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) update(c *fiber.Ctx) error {
	var req dto.StudentUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.students.Update(c.UserContext(), viewerFromContext(c), c.Params("id"), req)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to update student")
	}
	return utils.SendSuccess(c, "student updated", student)
}

func (h *StudentHandler) remove(c *fiber.Ctx) error {
	if err := h.students.Remove(c.UserContext(), viewerFromContext(c), c.Params("id")); err != nil {
		return writeServiceError(c, h.logger, err, "failed to delete student")
	}
	return utils.SendSuccess(c, "student deleted", nil)
}

func (h *StudentHandler) removeCascade(c *fiber.Ctx) error {
	result, err := h.students.RemoveWithCascade(c.UserContext(), viewerFromContext(c), c.Params("id"))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to delete student")
	}
	return utils.SendSuccess(c, "student and evaluations deleted", result)
}

func (h *StudentHandler) changeStatus(c *fiber.Ctx) error {
	var req dto.StudentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.students.ChangeStatus(c.UserContext(), viewerFromContext(c), c.Params("id"), req.Status)
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to change student status")
	}
	return utils.SendSuccess(c, "student status updated", student)
}

func (h *StudentHandler) disable(c *fiber.Ctx) error {
	student, err := h.students.Disable(c.UserContext(), viewerFromContext(c), c.Params("id"))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to disable student")
	}
	return utils.SendSuccess(c, "student disabled", student)
}

func (h *StudentHandler) evaluationCount(c *fiber.Ctx) error {
	count, err := h.students.EvaluationCount(c.UserContext(), viewerFromContext(c), c.Params("id"))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to count evaluations")
	}
	return utils.SendSuccess(c, "evaluation count retrieved", fiber.Map{"count": count})
}

func (h *StudentHandler) evaluationsByTeacher(c *fiber.Ctx) error {
	rows, err := h.evaluations.StudentEvaluationsByTeacher(c.UserContext(), viewerFromContext(c), c.Params("id"))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to list evaluations")
	}
	return utils.SendSuccess(c, "evaluations retrieved", rows)
}

func (h *StudentHandler) evaluationsAll(c *fiber.Ctx) error {
	rows, err := h.evaluations.StudentEvaluationsAll(c.UserContext(), viewerFromContext(c), c.Params("id"))
	if err != nil {
		return writeServiceError(c, h.logger, err, "failed to list evaluations")
	}
	return utils.SendSuccess(c, "evaluations retrieved", rows)
}
