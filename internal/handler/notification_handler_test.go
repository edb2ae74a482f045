package handler_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
)

func TestNotificationHandlerLifecycle(t *testing.T) {
	db := openHandlerDB(t, "notifications")
	app := buildTestApp(t, db, &stubUploader{})

	teacher := seedUser(t, db, "Grace", "grace@example.com", models.RoleTeacher)
	batch := seedBatch(t, db, teacher.ID)
	student := seedUser(t, db, "Ada", "ada@example.com", models.RoleStudent)
	require.NoError(t, db.Create(&models.Enrollment{BatchID: batch.ID, StudentID: student.ID}).Error)

	now := time.Now().UTC().Truncate(time.Second)
	exam := seedExam(t, db, batch, teacher.ID, "Open Exam", now.Add(-time.Hour), now.Add(time.Hour))

	// Submitting an answer sheet notifies the exam's teacher.
	resp := performUpload(t, app, fmt.Sprintf("/api/v1/student/exams/%d/submission", exam.ID), "answers.pdf", pdfStub, student.ID, models.RoleStudent)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = performJSON(t, app, "GET", "/api/v1/notifications", nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed struct {
		Success bool                       `json:"success"`
		Data    []dto.NotificationResponse `json:"data"`
	}
	decodeResponse(t, resp, &listed)
	require.True(t, listed.Success)
	require.Len(t, listed.Data, 1)
	require.Equal(t, models.NotificationTypeSubmissionReceived, listed.Data[0].Type)
	require.Contains(t, listed.Data[0].Message, "Open Exam")
	require.False(t, listed.Data[0].Read)

	resp = performJSON(t, app, "GET", "/api/v1/notifications/unread", nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var unread struct {
		Data struct {
			Count int64 `json:"count"`
		} `json:"data"`
	}
	decodeResponse(t, resp, &unread)
	require.Equal(t, int64(1), unread.Data.Count)

	resp = performJSON(t, app, "PATCH", fmt.Sprintf("/api/v1/notifications/%d/read", listed.Data[0].ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var marked struct {
		Data dto.NotificationResponse `json:"data"`
	}
	decodeResponse(t, resp, &marked)
	require.True(t, marked.Data.Read)

	resp = performJSON(t, app, "GET", "/api/v1/notifications/unread", nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &unread)
	require.Zero(t, unread.Data.Count)

	// Notifications stay scoped to their owner.
	resp = performJSON(t, app, "GET", "/api/v1/notifications", nil, student.ID, models.RoleStudent)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &listed)
	require.Empty(t, listed.Data)

	resp = performJSON(t, app, "PATCH", fmt.Sprintf("/api/v1/notifications/%d/read", marked.Data.ID), nil, student.ID, models.RoleStudent)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNotificationHandlerPagination(t *testing.T) {
	db := openHandlerDB(t, "notifications_paging")
	app := buildTestApp(t, db, &stubUploader{})

	user := seedUser(t, db, "Grace", "grace@example.com", models.RoleTeacher)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Notification{
			UserID:  user.ID,
			Type:    "generic",
			Message: fmt.Sprintf("message %d", i),
		}).Error)
	}

	resp := performJSON(t, app, "GET", "/api/v1/notifications?limit=2", nil, user.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed struct {
		Data []dto.NotificationResponse `json:"data"`
	}
	decodeResponse(t, resp, &listed)
	require.Len(t, listed.Data, 2)

	resp = performJSON(t, app, "GET", "/api/v1/notifications?limit=2&offset=2", nil, user.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &listed)
	require.Len(t, listed.Data, 1)
}

func TestNotificationHandlerRequiresAuthentication(t *testing.T) {
	db := openHandlerDB(t, "notifications_auth")
	app := buildTestApp(t, db, &stubUploader{})

	resp := performJSON(t, app, "GET", "/api/v1/notifications", nil, 0, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = performJSON(t, app, "GET", "/api/v1/notifications/stream", nil, 0, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
