package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/service"
	"github.com/noah-isme/peerval-go-api/internal/utils"
)

// BatchHandler wires batch detail and roster endpoints for teachers.
type BatchHandler struct {
	courses service.CourseService
	roster  service.RosterService
	logger  zerolog.Logger
}

// NewBatchHandler constructs the handler.
func NewBatchHandler(courses service.CourseService, roster service.RosterService, logger zerolog.Logger) *BatchHandler {
	return &BatchHandler{
		courses: courses,
		roster:  roster,
		logger:  logger.With().Str("component", "batch_handler").Logger(),
	}
}

// Register attaches batch routes to the router group.
func (h *BatchHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Get("/:id/students", h.listStudents)
	router.Post("/:id/students", h.addStudent)
	router.Delete("/:id/students/:studentId", h.removeStudent)
	router.Post("/:id/students/import", h.importRoster)
	router.Get("/:id/students/export", h.exportRoster)
}

func (h *BatchHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	batch, err := h.courses.GetBatch(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to fetch batch")
	}

	return utils.SendSuccess(c, "batch retrieved", batch)
}

func (h *BatchHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.BatchUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	batch, err := h.courses.UpdateBatch(c.Context(), id, payload, actor)
	if err != nil {
		return h.handleError(c, err, "failed to update batch")
	}

	return utils.SendSuccess(c, "batch updated", batch)
}

func (h *BatchHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	actor := activityActorFromContext(c)
	if err := h.courses.DeleteBatch(c.Context(), id, actor); err != nil {
		return h.handleError(c, err, "failed to delete batch")
	}

	return utils.SendSuccess(c, "batch deleted", fiber.Map{"id": id})
}

func (h *BatchHandler) listStudents(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	entries, err := h.roster.List(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to list roster")
	}

	return utils.SendSuccess(c, "roster retrieved", entries)
}

func (h *BatchHandler) addStudent(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.RosterAddRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	entry, err := h.roster.Add(c.Context(), id, payload, actor)
	if err != nil {
		return h.handleError(c, err, "failed to enroll student")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student enrolled", entry)
}

func (h *BatchHandler) removeStudent(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student identifier")
	}

	actor := activityActorFromContext(c)
	if err := h.roster.Remove(c.Context(), id, studentID, actor); err != nil {
		return h.handleError(c, err, "failed to remove student")
	}

	return utils.SendSuccess(c, "student removed", fiber.Map{"batch_id": id, "student_id": studentID})
}

func (h *BatchHandler) importRoster(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read file")
	}
	defer func() { _ = file.Close() }()

	actor := activityActorFromContext(c)
	summary, err := h.roster.ImportCSV(c.Context(), id, file, actor)
	if err != nil {
		if errors.Is(err, service.ErrRosterEmptyFile) {
			return utils.SendError(c, fiber.StatusBadRequest, "roster file contains no rows")
		}
		return h.handleError(c, err, "failed to import roster")
	}

	return utils.SendSuccess(c, "roster imported", summary)
}

func (h *BatchHandler) exportRoster(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	data, err := h.roster.ExportCSV(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to export roster")
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=batch_%d_roster.csv", id))
	return c.Send(data)
}

func (h *BatchHandler) handleError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrBatchNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "batch not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrNotEnrolled):
		return utils.SendError(c, fiber.StatusNotFound, "student is not enrolled in this batch")
	case errors.Is(err, service.ErrNotBatchTeacher):
		return utils.SendError(c, fiber.StatusForbidden, "batch is not taught by this teacher")
	case errors.Is(err, service.ErrNotCourseOwner):
		return utils.SendError(c, fiber.StatusForbidden, "course belongs to another teacher")
	case errors.Is(err, service.ErrAlreadyEnrolled):
		return utils.SendError(c, fiber.StatusConflict, "student is already enrolled in this batch")
	case errors.Is(err, service.ErrBatchNameTaken):
		return utils.SendError(c, fiber.StatusConflict, "batch name is already in use for this course")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
