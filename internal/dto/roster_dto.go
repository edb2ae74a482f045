package dto

import (
	"time"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// RosterAddRequest enrolls one student into a batch by email. Unknown emails
// get a fresh student account.
type RosterAddRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Email string `json:"email" validate:"required,email,max=160"`
}

// RosterEntryResponse is one student on a batch roster.
type RosterEntryResponse struct {
	StudentID  uint      `json:"student_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// NewRosterEntryResponse converts an enrollment with its preloaded student.
func NewRosterEntryResponse(enrollment models.Enrollment) RosterEntryResponse {
	entry := RosterEntryResponse{
		StudentID:  enrollment.StudentID,
		EnrolledAt: enrollment.CreatedAt,
	}
	if enrollment.Student != nil {
		entry.Name = enrollment.Student.Name
		entry.Email = enrollment.Student.Email
	}

	return entry
}

// NewRosterEntryResponseSlice converts a slice of enrollments into DTOs.
func NewRosterEntryResponseSlice(enrollments []models.Enrollment) []RosterEntryResponse {
	responses := make([]RosterEntryResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, NewRosterEntryResponse(enrollment))
	}

	return responses
}

// RosterRowError reports a CSV line that was rejected during import.
type RosterRowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// RosterImportSummary reports the outcome of a CSV roster import.
type RosterImportSummary struct {
	Processed   int              `json:"processed"`
	Enrolled    int              `json:"enrolled"`
	NewAccounts int              `json:"new_accounts"`
	Skipped     int              `json:"skipped"`
	Errors      []RosterRowError `json:"errors,omitempty"`
}
