package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/service"
	"github.com/noah-isme/peerval-go-api/internal/utils"
)

// ExamHandler wires exam management, submission review and peer evaluation
// administration for teachers.
type ExamHandler struct {
	exams       service.ExamService
	submissions service.SubmissionService
	evaluations service.EvaluationService
	logger      zerolog.Logger
}

// NewExamHandler constructs the handler.
func NewExamHandler(exams service.ExamService, submissions service.SubmissionService, evaluations service.EvaluationService, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams:       exams,
		submissions: submissions,
		evaluations: evaluations,
		logger:      logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register attaches exam routes to the router group.
func (h *ExamHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Patch("/:id/questions/:number", h.updateQuestion)
	router.Get("/:id/submissions", h.listSubmissions)
	router.Post("/:id/evaluations/assign", h.assignEvaluations)
	router.Get("/:id/evaluations", h.listEvaluations)
	router.Get("/:id/evaluations/progress", h.evaluationProgress)
	router.Get("/:id/results", h.results)
	router.Get("/:id/results/export", h.exportResults)
}

func (h *ExamHandler) list(c *fiber.Ctx) error {
	exams, err := h.exams.List(c.Context(), userIDFromContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list exams")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list exams")
	}

	return utils.SendSuccess(c, "exams retrieved", exams)
}

func (h *ExamHandler) create(c *fiber.Ctx) error {
	var payload dto.ExamCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	exam, err := h.exams.Create(c.Context(), payload, actor)
	if err != nil {
		return h.handleError(c, err, "failed to create exam")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam created", exam)
}

func (h *ExamHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	exam, err := h.exams.Get(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to fetch exam")
	}

	return utils.SendSuccess(c, "exam retrieved", exam)
}

func (h *ExamHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.ExamUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	exam, err := h.exams.Update(c.Context(), id, payload, actor)
	if err != nil {
		return h.handleError(c, err, "failed to update exam")
	}

	return utils.SendSuccess(c, "exam updated", exam)
}

func (h *ExamHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	actor := activityActorFromContext(c)
	if err := h.exams.Delete(c.Context(), id, actor); err != nil {
		return h.handleError(c, err, "failed to delete exam")
	}

	return utils.SendSuccess(c, "exam deleted", fiber.Map{"id": id})
}

func (h *ExamHandler) updateQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	number, err := strconv.Atoi(c.Params("number"))
	if err != nil || number <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid question number")
	}

	var payload dto.QuestionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	question, err := h.exams.UpdateQuestion(c.Context(), id, number, payload, actor)
	if err != nil {
		return h.handleError(c, err, "failed to update question")
	}

	return utils.SendSuccess(c, "question updated", question)
}

func (h *ExamHandler) listSubmissions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	submissions, err := h.submissions.ListByExam(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to list submissions")
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *ExamHandler) assignEvaluations(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	actor := activityActorFromContext(c)
	result, err := h.evaluations.AssignPeers(c.Context(), id, actor)
	if err != nil {
		return h.handleError(c, err, "failed to assign evaluations")
	}

	return utils.SendSuccess(c, "evaluations assigned", result)
}

func (h *ExamHandler) listEvaluations(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	evaluations, err := h.evaluations.ListByExam(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to list evaluations")
	}

	return utils.SendSuccess(c, "evaluations retrieved", evaluations)
}

func (h *ExamHandler) evaluationProgress(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	progress, err := h.evaluations.Progress(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to fetch evaluation progress")
	}

	return utils.SendSuccess(c, "evaluation progress retrieved", progress)
}

func (h *ExamHandler) results(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	results, err := h.evaluations.Results(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to compute results")
	}

	return utils.SendSuccess(c, "results retrieved", results)
}

func (h *ExamHandler) exportResults(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	data, err := h.evaluations.ResultsCSV(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to export results")
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=exam_%d_results.csv", id))
	return c.Send(data)
}

func (h *ExamHandler) handleError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam not found")
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrBatchNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "batch not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrNotExamOwner):
		return utils.SendError(c, fiber.StatusForbidden, "exam belongs to another teacher")
	case errors.Is(err, service.ErrNotCourseOwner):
		return utils.SendError(c, fiber.StatusForbidden, "course belongs to another teacher")
	case errors.Is(err, service.ErrNotBatchTeacher):
		return utils.SendError(c, fiber.StatusForbidden, "batch is not taught by this teacher")
	case errors.Is(err, service.ErrExamWindowInvalid):
		return utils.SendError(c, fiber.StatusBadRequest, "exam end time must be after start time")
	case errors.Is(err, service.ErrEvaluationsAssigned):
		return utils.SendError(c, fiber.StatusConflict, "evaluations already assigned for this exam")
	case errors.Is(err, service.ErrExamNotEnded):
		return utils.SendError(c, fiber.StatusConflict, "exam window has not ended yet")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
