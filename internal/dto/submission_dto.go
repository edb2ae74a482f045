package dto

import (
	"time"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID        uint         `json:"id"`
	ExamID    uint         `json:"exam_id"`
	StudentID uint         `json:"student_id"`
	FileURL   string       `json:"file_url"`
	FileName  string       `json:"file_name"`
	FileSize  int64        `json:"file_size"`
	Student   *StudentLite `json:"student,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:        model.ID,
		ExamID:    model.ExamID,
		StudentID: model.StudentID,
		FileURL:   model.FileURL,
		FileName:  model.FileName,
		FileSize:  model.FileSize,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}

	if model.Student != nil {
		response.Student = &StudentLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
