package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/service"
	"github.com/noah-isme/peerval-go-api/internal/utils"
)

// StudentEvaluationHandler wires the evaluator-facing endpoints.
type StudentEvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewStudentEvaluationHandler constructs the handler.
func NewStudentEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *StudentEvaluationHandler {
	return &StudentEvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "student_evaluation_handler").Logger(),
	}
}

// Register attaches evaluator routes to the router group.
func (h *StudentEvaluationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/:id/marks", h.submitMarks)
}

func (h *StudentEvaluationHandler) list(c *fiber.Ctx) error {
	examID, err := parseQueryUint(c, "exam_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exam id")
	}

	filter := dto.EvaluationListRequest{
		ExamID: examID,
		Status: c.Query("status"),
	}

	tasks, err := h.service.ListForEvaluator(c.Context(), userIDFromContext(c), filter)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list evaluation tasks")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list evaluation tasks")
	}

	return utils.SendSuccess(c, "evaluation tasks retrieved", tasks)
}

func (h *StudentEvaluationHandler) submitMarks(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.MarksSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	task, err := h.service.SubmitMarks(c.Context(), id, userIDFromContext(c), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEvaluationNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "evaluation not found")
		case errors.Is(err, service.ErrNotEvaluator):
			return utils.SendError(c, fiber.StatusForbidden, "evaluation belongs to another student")
		case errors.Is(err, service.ErrEvaluationCompleted):
			return utils.SendError(c, fiber.StatusConflict, "evaluation has already been completed")
		case errors.Is(err, service.ErrMarksLength):
			return utils.SendError(c, fiber.StatusBadRequest, "marks must contain one entry per question")
		case errors.Is(err, service.ErrMarkOutOfRange):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to submit marks")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to submit marks")
		}
	}

	return utils.SendSuccess(c, "marks submitted", task)
}
