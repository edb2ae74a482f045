package dto

import (
	"time"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// NotificationCreateRequest is the internal payload services publish when an
// event should reach a user.
type NotificationCreateRequest struct {
	UserID  uint   `json:"user_id" validate:"required,min=1"`
	Type    string `json:"type" validate:"required,max=64"`
	Message string `json:"message" validate:"required,max=2000"`
}

// NotificationListRequest pages through a user's notifications.
type NotificationListRequest struct {
	Limit  int `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}

// NotificationResponse is the serialized notification representation.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationResponse converts a model into a DTO.
func NewNotificationResponse(notification models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        notification.ID,
		UserID:    notification.UserID,
		Type:      notification.Type,
		Message:   notification.Message,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice of models into DTOs.
func NewNotificationResponseSlice(notifications []models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, NewNotificationResponse(notification))
	}

	return responses
}
