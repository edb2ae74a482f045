package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerval-go-api/internal/service"
	"github.com/noah-isme/peerval-go-api/internal/utils"
)

// StudentExamHandler wires the student-facing exam endpoints.
type StudentExamHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewStudentExamHandler constructs the handler.
func NewStudentExamHandler(service service.SubmissionService, logger zerolog.Logger) *StudentExamHandler {
	return &StudentExamHandler{
		service: service,
		logger:  logger.With().Str("component", "student_exam_handler").Logger(),
	}
}

// Register attaches student exam routes to the router group.
func (h *StudentExamHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/:id/submission", h.submit)
}

func (h *StudentExamHandler) list(c *fiber.Ctx) error {
	exams, err := h.service.AvailableExams(c.Context(), userIDFromContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list available exams")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list available exams")
	}

	return utils.SendSuccess(c, "exams retrieved", exams)
}

func (h *StudentExamHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	submission, err := h.service.Submit(c.Context(), id, userIDFromContext(c), file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "exam not found")
		case errors.Is(err, service.ErrNotEnrolled):
			return utils.SendError(c, fiber.StatusForbidden, "student is not enrolled in this batch")
		case errors.Is(err, service.ErrExamWindowClosed):
			return utils.SendError(c, fiber.StatusConflict, "exam window is not open")
		case errors.Is(err, service.ErrSubmissionNotPDF):
			return utils.SendError(c, fiber.StatusBadRequest, "submission must be a PDF document")
		case errors.Is(err, service.ErrSubmissionTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "submission exceeds maximum allowed size")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to store submission")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to store submission")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission received", submission)
}
