package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/service"
	"github.com/noah-isme/peerval-go-api/internal/utils"
)

// TeachingHandler wires teaching assignment endpoints for administrators.
type TeachingHandler struct {
	service service.TeachingService
	logger  zerolog.Logger
}

// NewTeachingHandler constructs the handler.
func NewTeachingHandler(service service.TeachingService, logger zerolog.Logger) *TeachingHandler {
	return &TeachingHandler{
		service: service,
		logger:  logger.With().Str("component", "teaching_handler").Logger(),
	}
}

// Register attaches teaching assignment routes to the router group.
func (h *TeachingHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.assign)
	router.Delete("/:id", h.remove)
}

func (h *TeachingHandler) list(c *fiber.Ctx) error {
	teacherID, err := parseQueryUint(c, "teacher_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid teacher id")
	}
	courseID, err := parseQueryUint(c, "course_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course id")
	}
	batchID, err := parseQueryUint(c, "batch_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid batch id")
	}

	req := dto.TeachingListRequest{
		TeacherID: teacherID,
		CourseID:  courseID,
		BatchID:   batchID,
	}

	assignments, err := h.service.List(c.Context(), req)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list teaching assignments")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list teaching assignments")
	}

	return utils.SendSuccess(c, "teaching assignments retrieved", assignments)
}

func (h *TeachingHandler) assign(c *fiber.Ctx) error {
	var payload dto.TeachingAssignRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	assignment, err := h.service.Assign(c.Context(), payload, actor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "teacher not found")
		case errors.Is(err, service.ErrCourseNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "course not found")
		case errors.Is(err, service.ErrBatchNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "batch not found")
		case errors.Is(err, service.ErrNotATeacher):
			return utils.SendError(c, fiber.StatusBadRequest, "user does not have the teacher role")
		case errors.Is(err, service.ErrTeachingAssignmentExists):
			return utils.SendError(c, fiber.StatusConflict, "teacher is already assigned to this batch")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to assign teacher")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to assign teacher")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "teacher assigned", assignment)
}

func (h *TeachingHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	actor := activityActorFromContext(c)
	if err := h.service.Remove(c.Context(), id, actor); err != nil {
		if errors.Is(err, service.ErrTeachingAssignmentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "teaching assignment not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to remove teaching assignment")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to remove teaching assignment")
	}

	return utils.SendSuccess(c, "teaching assignment removed", fiber.Map{"id": id})
}
