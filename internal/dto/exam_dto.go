package dto

import (
	"time"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// ExamCreateRequest describes the payload for scheduling an exam. The window
// bounds arrive as RFC3339 strings; EvaluationsPerStudent may be zero, which
// schedules the exam without peer marking.
type ExamCreateRequest struct {
	CourseID              uint   `json:"course_id" validate:"required,min=1"`
	BatchID               uint   `json:"batch_id" validate:"required,min=1"`
	Title                 string `json:"title" validate:"required,min=3,max=160"`
	NumQuestions          int    `json:"num_questions" validate:"required,min=1,max=100"`
	EvaluationsPerStudent int    `json:"evaluations_per_student" validate:"min=0,max=50"`
	StartTime             string `json:"start_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime               string `json:"end_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// ExamUpdateRequest updates exam fields; nil fields are left untouched.
type ExamUpdateRequest struct {
	Title                 *string `json:"title" validate:"omitempty,min=3,max=160"`
	NumQuestions          *int    `json:"num_questions" validate:"omitempty,min=1,max=100"`
	EvaluationsPerStudent *int    `json:"evaluations_per_student" validate:"omitempty,min=0,max=50"`
	StartTime             *string `json:"start_time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime               *string `json:"end_time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// QuestionUpdateRequest edits one placeholder question.
type QuestionUpdateRequest struct {
	Text     *string  `json:"text" validate:"omitempty,max=512"`
	MaxMarks *float64 `json:"max_marks" validate:"omitempty,gt=0,lte=1000"`
}

// QuestionResponse is the serialized question representation.
type QuestionResponse struct {
	ID       uint    `json:"id"`
	Number   int     `json:"number"`
	Text     string  `json:"text"`
	MaxMarks float64 `json:"max_marks"`
}

// NewQuestionResponse converts a model into a DTO.
func NewQuestionResponse(question models.Question) QuestionResponse {
	return QuestionResponse{
		ID:       question.ID,
		Number:   question.Number,
		Text:     question.Text,
		MaxMarks: question.MaxMarks,
	}
}

// NewQuestionResponseSlice converts a slice of models into DTOs.
func NewQuestionResponseSlice(questions []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question))
	}

	return responses
}

// ExamResponse is the serialized exam representation.
type ExamResponse struct {
	ID                    uint               `json:"id"`
	CourseID              uint               `json:"course_id"`
	BatchID               uint               `json:"batch_id"`
	CreatedBy             uint               `json:"created_by"`
	Title                 string             `json:"title"`
	NumQuestions          int                `json:"num_questions"`
	EvaluationsPerStudent int                `json:"evaluations_per_student"`
	StartTime             time.Time          `json:"start_time"`
	EndTime               time.Time          `json:"end_time"`
	Course                *CourseResponse    `json:"course,omitempty"`
	Batch                 *BatchResponse     `json:"batch,omitempty"`
	Questions             []QuestionResponse `json:"questions,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// NewExamResponse converts a model into a DTO.
func NewExamResponse(exam models.Exam) ExamResponse {
	response := ExamResponse{
		ID:                    exam.ID,
		CourseID:              exam.CourseID,
		BatchID:               exam.BatchID,
		CreatedBy:             exam.CreatedBy,
		Title:                 exam.Title,
		NumQuestions:          exam.NumQuestions,
		EvaluationsPerStudent: exam.EvaluationsPerStudent,
		StartTime:             exam.StartTime,
		EndTime:               exam.EndTime,
		CreatedAt:             exam.CreatedAt,
		UpdatedAt:             exam.UpdatedAt,
	}
	if exam.Course != nil {
		course := NewCourseResponse(*exam.Course)
		response.Course = &course
	}
	if exam.Batch != nil {
		batch := NewBatchResponse(*exam.Batch)
		response.Batch = &batch
	}
	if len(exam.Questions) > 0 {
		response.Questions = NewQuestionResponseSlice(exam.Questions)
	}

	return response
}

// NewExamResponseSlice converts a slice of models into DTOs.
func NewExamResponseSlice(exams []models.Exam) []ExamResponse {
	responses := make([]ExamResponse, 0, len(exams))
	for _, exam := range exams {
		responses = append(responses, NewExamResponse(exam))
	}

	return responses
}

// AvailableExamResponse is the student-facing exam listing: the exam joined
// with the student's own submission state.
type AvailableExamResponse struct {
	ExamResponse
	Open        bool       `json:"open"`
	Submitted   bool       `json:"submitted"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}
