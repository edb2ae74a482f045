package handler_test

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
)

func TestAdminUserHandlerLifecycle(t *testing.T) {
	db := openHandlerDB(t, "admin_users")
	app := buildTestApp(t, db, &stubUploader{})

	admin := seedUser(t, db, "Root", "root@example.com", models.RoleAdmin)

	resp := performJSON(t, app, "POST", "/api/admin/users", map[string]interface{}{
		"name":     "Grace Hopper",
		"email":    "grace@example.com",
		"password": "compilers4ever",
		"role":     "teacher",
	}, admin.ID, models.RoleAdmin)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Success bool             `json:"success"`
		Data    dto.UserResponse `json:"data"`
	}
	decodeResponse(t, resp, &created)
	require.True(t, created.Success)
	require.Equal(t, "teacher", created.Data.Role)
	require.NotZero(t, created.Data.ID)

	resp = performJSON(t, app, "GET", "/api/admin/users?role=teacher", nil, admin.ID, models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed struct {
		Success bool               `json:"success"`
		Data    []dto.UserResponse `json:"data"`
		Meta    dto.PaginationMeta `json:"meta"`
	}
	decodeResponse(t, resp, &listed)
	require.Len(t, listed.Data, 1)
	require.Equal(t, int64(1), listed.Meta.TotalItems)

	resp = performJSON(t, app, "PATCH", fmt.Sprintf("/api/admin/users/%d/role", created.Data.ID), map[string]interface{}{
		"role": "student",
	}, admin.ID, models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updated struct {
		Data dto.UserResponse `json:"data"`
	}
	decodeResponse(t, resp, &updated)
	require.Equal(t, "student", updated.Data.Role)

	resp = performJSON(t, app, "DELETE", fmt.Sprintf("/api/admin/users/%d", created.Data.ID), nil, admin.ID, models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = performJSON(t, app, "GET", fmt.Sprintf("/api/admin/users/%d", created.Data.ID), nil, admin.ID, models.RoleAdmin)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdminUserHandlerRejectsNonAdmins(t *testing.T) {
	db := openHandlerDB(t, "admin_users_rbac")
	app := buildTestApp(t, db, &stubUploader{})

	student := seedUser(t, db, "Ada", "ada@example.com", models.RoleStudent)

	resp := performJSON(t, app, "GET", "/api/admin/users", nil, student.ID, models.RoleStudent)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = performJSON(t, app, "GET", "/api/admin/users", nil, 0, "")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminUserHandlerRecordsActivity(t *testing.T) {
	db := openHandlerDB(t, "admin_users_activity")
	app := buildTestApp(t, db, &stubUploader{})

	admin := seedUser(t, db, "Root", "root@example.com", models.RoleAdmin)

	resp := performJSON(t, app, "POST", "/api/admin/users", map[string]interface{}{
		"name":     "Grace Hopper",
		"email":    "grace@example.com",
		"password": "compilers4ever",
		"role":     "teacher",
	}, admin.ID, models.RoleAdmin)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = performJSON(t, app, "GET", "/api/admin/activity?entity_type=user", nil, admin.ID, models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var activity struct {
		Data []dto.ActivityResponse `json:"data"`
	}
	decodeResponse(t, resp, &activity)
	require.NotEmpty(t, activity.Data)
	require.Equal(t, admin.ID, activity.Data[0].ActorID)
}
