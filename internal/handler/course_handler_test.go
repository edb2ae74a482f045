package handler_test

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
)

func TestCourseHandlerLifecycle(t *testing.T) {
	db := openHandlerDB(t, "course_handler")
	app := buildTestApp(t, db, &stubUploader{})

	teacher := seedUser(t, db, "Grace", "grace@example.com", models.RoleTeacher)

	resp := performJSON(t, app, "POST", "/api/v1/courses", map[string]interface{}{
		"code":  "cs101",
		"title": "Algorithms",
	}, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Success bool               `json:"success"`
		Data    dto.CourseResponse `json:"data"`
	}
	decodeResponse(t, resp, &created)
	require.True(t, created.Success)
	require.Equal(t, "CS101", created.Data.Code)
	require.Equal(t, teacher.ID, created.Data.CreatedBy)

	resp = performJSON(t, app, "POST", "/api/v1/courses", map[string]interface{}{
		"code":  "CS101",
		"title": "Algorithms Again",
	}, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = performJSON(t, app, "PATCH", fmt.Sprintf("/api/v1/courses/%d", created.Data.ID), map[string]interface{}{
		"title": "Advanced Algorithms",
	}, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updated struct {
		Data dto.CourseResponse `json:"data"`
	}
	decodeResponse(t, resp, &updated)
	require.Equal(t, "Advanced Algorithms", updated.Data.Title)

	resp = performJSON(t, app, "GET", "/api/v1/courses", nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed struct {
		Data []dto.CourseResponse `json:"data"`
	}
	decodeResponse(t, resp, &listed)
	require.Len(t, listed.Data, 1)
}

func TestCourseHandlerEnforcesOwnership(t *testing.T) {
	db := openHandlerDB(t, "course_handler_owner")
	app := buildTestApp(t, db, &stubUploader{})

	owner := seedUser(t, db, "Grace", "grace@example.com", models.RoleTeacher)
	other := seedUser(t, db, "Alan", "alan@example.com", models.RoleTeacher)

	resp := performJSON(t, app, "POST", "/api/v1/courses", map[string]interface{}{
		"code":  "CS101",
		"title": "Algorithms",
	}, owner.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Data dto.CourseResponse `json:"data"`
	}
	decodeResponse(t, resp, &created)

	resp = performJSON(t, app, "GET", fmt.Sprintf("/api/v1/courses/%d", created.Data.ID), nil, other.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = performJSON(t, app, "DELETE", fmt.Sprintf("/api/v1/courses/%d", created.Data.ID), nil, other.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = performJSON(t, app, "GET", "/api/v1/courses/99999", nil, owner.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCourseHandlerBatches(t *testing.T) {
	db := openHandlerDB(t, "course_handler_batches")
	app := buildTestApp(t, db, &stubUploader{})

	teacher := seedUser(t, db, "Grace", "grace@example.com", models.RoleTeacher)

	resp := performJSON(t, app, "POST", "/api/v1/courses", map[string]interface{}{
		"code":  "CS101",
		"title": "Algorithms",
	}, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var course struct {
		Data dto.CourseResponse `json:"data"`
	}
	decodeResponse(t, resp, &course)

	resp = performJSON(t, app, "POST", fmt.Sprintf("/api/v1/courses/%d/batches", course.Data.ID), map[string]interface{}{
		"name": "2026A",
	}, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var batch struct {
		Data dto.BatchResponse `json:"data"`
	}
	decodeResponse(t, resp, &batch)
	require.Equal(t, "2026A", batch.Data.Name)

	resp = performJSON(t, app, "POST", fmt.Sprintf("/api/v1/courses/%d/batches", course.Data.ID), map[string]interface{}{
		"name": "2026a",
	}, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = performJSON(t, app, "GET", fmt.Sprintf("/api/v1/courses/%d/batches", course.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var batches struct {
		Data []dto.BatchResponse `json:"data"`
	}
	decodeResponse(t, resp, &batches)
	require.Len(t, batches.Data, 1)

	resp = performJSON(t, app, "DELETE", fmt.Sprintf("/api/v1/batches/%d", batch.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = performJSON(t, app, "GET", fmt.Sprintf("/api/v1/batches/%d", batch.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
