package dto

import (
	"time"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// TeachingAssignRequest links a teacher to a course batch.
type TeachingAssignRequest struct {
	TeacherID uint `json:"teacher_id" validate:"required,min=1"`
	CourseID  uint `json:"course_id" validate:"required,min=1"`
	BatchID   uint `json:"batch_id" validate:"required,min=1"`
}

// TeachingListRequest filters teaching assignment listings.
type TeachingListRequest struct {
	TeacherID *uint `query:"teacher_id" validate:"omitempty,min=1"`
	CourseID  *uint `query:"course_id" validate:"omitempty,min=1"`
	BatchID   *uint `query:"batch_id" validate:"omitempty,min=1"`
}

// TeachingAssignmentResponse is the serialized teaching assignment.
type TeachingAssignmentResponse struct {
	ID        uint            `json:"id"`
	TeacherID uint            `json:"teacher_id"`
	CourseID  uint            `json:"course_id"`
	BatchID   uint            `json:"batch_id"`
	Teacher   *UserResponse   `json:"teacher,omitempty"`
	Course    *CourseResponse `json:"course,omitempty"`
	Batch     *BatchResponse  `json:"batch,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewTeachingAssignmentResponse converts a model into a DTO.
func NewTeachingAssignmentResponse(assignment models.TeacherCourse) TeachingAssignmentResponse {
	response := TeachingAssignmentResponse{
		ID:        assignment.ID,
		TeacherID: assignment.TeacherID,
		CourseID:  assignment.CourseID,
		BatchID:   assignment.BatchID,
		CreatedAt: assignment.CreatedAt,
	}
	if assignment.Teacher != nil {
		teacher := NewUserResponse(*assignment.Teacher)
		response.Teacher = &teacher
	}
	if assignment.Course != nil {
		course := NewCourseResponse(*assignment.Course)
		response.Course = &course
	}
	if assignment.Batch != nil {
		batch := NewBatchResponse(*assignment.Batch)
		response.Batch = &batch
	}

	return response
}

// NewTeachingAssignmentResponseSlice converts a slice of models into DTOs.
func NewTeachingAssignmentResponseSlice(assignments []models.TeacherCourse) []TeachingAssignmentResponse {
	responses := make([]TeachingAssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewTeachingAssignmentResponse(assignment))
	}

	return responses
}
