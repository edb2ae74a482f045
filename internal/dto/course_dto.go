package dto

import (
	"time"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// CourseCreateRequest describes the payload for creating a course.
type CourseCreateRequest struct {
	Code  string `json:"code" validate:"required,min=2,max=32"`
	Title string `json:"title" validate:"required,min=3,max=160"`
}

// CourseUpdateRequest updates course fields; nil fields are left untouched.
type CourseUpdateRequest struct {
	Code  *string `json:"code" validate:"omitempty,min=2,max=32"`
	Title *string `json:"title" validate:"omitempty,min=3,max=160"`
}

// CourseResponse is the serialized course representation.
type CourseResponse struct {
	ID        uint      `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	CreatedBy uint      `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCourseResponse converts a model into a DTO.
func NewCourseResponse(course models.Course) CourseResponse {
	return CourseResponse{
		ID:        course.ID,
		Code:      course.Code,
		Title:     course.Title,
		CreatedBy: course.CreatedBy,
		CreatedAt: course.CreatedAt,
		UpdatedAt: course.UpdatedAt,
	}
}

// NewCourseResponseSlice converts a slice of models into DTOs.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}

	return responses
}

// BatchCreateRequest describes the payload for adding a batch to a course.
type BatchCreateRequest struct {
	Name string `json:"name" validate:"required,min=1,max=80"`
}

// BatchUpdateRequest renames a batch; a nil name leaves it untouched.
type BatchUpdateRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=80"`
}

// BatchResponse is the serialized batch representation.
type BatchResponse struct {
	ID        uint            `json:"id"`
	CourseID  uint            `json:"course_id"`
	Name      string          `json:"name"`
	Course    *CourseResponse `json:"course,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewBatchResponse converts a model into a DTO.
func NewBatchResponse(batch models.Batch) BatchResponse {
	response := BatchResponse{
		ID:        batch.ID,
		CourseID:  batch.CourseID,
		Name:      batch.Name,
		CreatedAt: batch.CreatedAt,
	}
	if batch.Course != nil {
		course := NewCourseResponse(*batch.Course)
		response.Course = &course
	}

	return response
}

// NewBatchResponseSlice converts a slice of models into DTOs.
func NewBatchResponseSlice(batches []models.Batch) []BatchResponse {
	responses := make([]BatchResponse, 0, len(batches))
	for _, batch := range batches {
		responses = append(responses, NewBatchResponse(batch))
	}

	return responses
}
