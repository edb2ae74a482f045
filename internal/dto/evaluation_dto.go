package dto

import (
	"time"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// AssignEvaluationsResponse reports the outcome of one assignment run.
// Skipped counts pairs the engine proposed that another run inserted first.
type AssignEvaluationsResponse struct {
	ExamID     uint  `json:"exam_id"`
	Submitters int   `json:"submitters"`
	Created    int   `json:"created"`
	Skipped    int   `json:"skipped"`
	TotalPairs int64 `json:"total_pairs"`
}

// MarksSubmitRequest carries the evaluator's mark vector, one entry per exam
// question in question order, plus optional free-text feedback.
type MarksSubmitRequest struct {
	Marks    []float64 `json:"marks" validate:"required,min=1,dive,gte=0"`
	Feedback string    `json:"feedback" validate:"omitempty,max=2000"`
}

// EvaluationListRequest filters the evaluator's task list.
type EvaluationListRequest struct {
	ExamID *uint  `query:"exam_id" validate:"omitempty,min=1"`
	Status string `query:"status" validate:"omitempty,oneof=pending completed"`
}

// EvaluationTaskResponse is the evaluator-facing view of one assigned
// evaluation. The evaluatee stays anonymous; only their submission file is
// exposed for marking.
type EvaluationTaskResponse struct {
	ID           uint       `json:"id"`
	ExamID       uint       `json:"exam_id"`
	ExamTitle    string     `json:"exam_title"`
	NumQuestions int        `json:"num_questions"`
	Status       string     `json:"status"`
	Marks        []float64  `json:"marks"`
	Feedback     string     `json:"feedback,omitempty"`
	FileURL      string     `json:"file_url,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewEvaluationTaskResponse converts a model into the evaluator-facing DTO.
// The submission file URL is attached separately by the service.
func NewEvaluationTaskResponse(evaluation models.Evaluation) EvaluationTaskResponse {
	response := EvaluationTaskResponse{
		ID:          evaluation.ID,
		ExamID:      evaluation.ExamID,
		Status:      evaluation.Status,
		Marks:       evaluation.MarkList(),
		Feedback:    evaluation.Feedback,
		CompletedAt: evaluation.CompletedAt,
		CreatedAt:   evaluation.CreatedAt,
	}
	if evaluation.Exam != nil {
		response.ExamTitle = evaluation.Exam.Title
		response.NumQuestions = evaluation.Exam.NumQuestions
	}

	return response
}

// NewEvaluationTaskResponseSlice converts a slice of models into DTOs.
func NewEvaluationTaskResponseSlice(evaluations []models.Evaluation) []EvaluationTaskResponse {
	responses := make([]EvaluationTaskResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		responses = append(responses, NewEvaluationTaskResponse(evaluation))
	}

	return responses
}

// EvaluationResponse is the teacher-facing view with both sides of the pair.
type EvaluationResponse struct {
	ID          uint         `json:"id"`
	ExamID      uint         `json:"exam_id"`
	EvaluatorID uint         `json:"evaluator_id"`
	EvaluateeID uint         `json:"evaluatee_id"`
	Evaluator   *StudentLite `json:"evaluator,omitempty"`
	Evaluatee   *StudentLite `json:"evaluatee,omitempty"`
	Status      string       `json:"status"`
	Marks       []float64    `json:"marks"`
	Feedback    string       `json:"feedback,omitempty"`
	Total       float64      `json:"total"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewEvaluationResponse converts a model into the teacher-facing DTO.
func NewEvaluationResponse(evaluation models.Evaluation) EvaluationResponse {
	response := EvaluationResponse{
		ID:          evaluation.ID,
		ExamID:      evaluation.ExamID,
		EvaluatorID: evaluation.EvaluatorID,
		EvaluateeID: evaluation.EvaluateeID,
		Status:      evaluation.Status,
		Marks:       evaluation.MarkList(),
		Feedback:    evaluation.Feedback,
		Total:       evaluation.Total(),
		CompletedAt: evaluation.CompletedAt,
		CreatedAt:   evaluation.CreatedAt,
	}
	if evaluation.Evaluator != nil {
		response.Evaluator = &StudentLite{ID: evaluation.Evaluator.ID, Name: evaluation.Evaluator.Name, Email: evaluation.Evaluator.Email}
	}
	if evaluation.Evaluatee != nil {
		response.Evaluatee = &StudentLite{ID: evaluation.Evaluatee.ID, Name: evaluation.Evaluatee.Name, Email: evaluation.Evaluatee.Email}
	}

	return response
}

// NewEvaluationResponseSlice converts a slice of models into DTOs.
func NewEvaluationResponseSlice(evaluations []models.Evaluation) []EvaluationResponse {
	responses := make([]EvaluationResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		responses = append(responses, NewEvaluationResponse(evaluation))
	}

	return responses
}

// EvaluationProgress summarizes completion across an exam's evaluations.
type EvaluationProgress struct {
	Assigned  int64 `json:"assigned"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
}

// StudentResultRow aggregates the peer marks one student received.
type StudentResultRow struct {
	StudentID    uint    `json:"student_id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Received     int     `json:"received"`
	Completed    int     `json:"completed"`
	AverageTotal float64 `json:"average_total"`
}

// ExamResultsResponse is the aggregated peer marking outcome for an exam.
type ExamResultsResponse struct {
	ExamID                uint               `json:"exam_id"`
	Title                 string             `json:"title"`
	NumQuestions          int                `json:"num_questions"`
	EvaluationsPerStudent int                `json:"evaluations_per_student"`
	Progress              EvaluationProgress `json:"progress"`
	Results               []StudentResultRow `json:"results"`
	GeneratedAt           time.Time          `json:"generated_at"`
	CacheHit              bool               `json:"cache_hit"`
}
