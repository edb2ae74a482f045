package models

import "time"

// Notification types published by the services.
const (
	NotificationTypeEvaluationAssigned = "evaluation.assigned"
	NotificationTypeSubmissionReceived = "submission.received"
	NotificationTypeRosterEnrolled     = "roster.enrolled"
)

// Notification is a persisted in-app message targeted at one user. Rows are
// written before fan-out so a user who is offline still sees the message on
// their next list call.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      string    `gorm:"size:64;not null" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
