package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/config"
	"github.com/noah-isme/peerval-go-api/internal/handler"
	"github.com/noah-isme/peerval-go-api/internal/models"
	"github.com/noah-isme/peerval-go-api/internal/repository"
	"github.com/noah-isme/peerval-go-api/internal/router"
	"github.com/noah-isme/peerval-go-api/internal/service"
)

type stubUploader struct {
	uploads int
}

func (s *stubUploader) Upload(_ context.Context, name string, _ io.Reader) (string, string, error) {
	s.uploads++
	return "https://files.test/" + name, "peerval/" + name, nil
}

func openHandlerDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Batch{},
		&models.TeacherCourse{},
		&models.Enrollment{},
		&models.Exam{},
		&models.Question{},
		&models.Submission{},
		&models.Evaluation{},
		&models.Notification{},
		&models.ActivityLog{},
	))

	return db
}

// testAuth replaces the JWT middleware in tests. It reads the acting user
// from request headers so one app instance can serve multiple identities.
func testAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := c.Get("X-Test-User"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 64); err == nil && id > 0 {
				c.Locals("user_id", uint(id))
			}
		}
		if role := c.Get("X-Test-Role"); role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	}
}

func buildTestApp(t *testing.T, db *gorm.DB, uploader service.FileUploader) *fiber.App {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.Nop()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	teachingRepo := repository.NewTeachingRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	examRepo := repository.NewExamRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, validate, logger)
	notificationService := service.NewNotificationService(notificationRepo, nil, "", nil, validate, logger)
	authService := service.NewAuthService(userRepo, validate, service.AuthConfig{
		JWTSecret: "handler-test-secret",
		TokenTTL:  time.Hour,
	}, logger)
	adminUserService := service.NewAdminUserService(userRepo, validate, activityService, logger)
	teachingService := service.NewTeachingService(teachingRepo, userRepo, courseRepo, batchRepo, validate, activityService, logger)
	courseService := service.NewCourseService(courseRepo, batchRepo, teachingRepo, validate, activityService, logger)
	rosterService := service.NewRosterService(enrollmentRepo, userRepo, batchRepo, teachingRepo, validate, activityService, notificationService, logger)
	examService := service.NewExamService(examRepo, courseRepo, batchRepo, teachingRepo, evaluationRepo, validate, activityService, logger)
	submissionService := service.NewSubmissionService(submissionRepo, examRepo, enrollmentRepo, uploader, notificationService, 1, logger)
	evaluationService := service.NewEvaluationService(evaluationRepo, examRepo, submissionRepo, validate, notificationService, activityService, nil, time.Minute, logger)

	app := fiber.New()
	cfg := config.Config{AppName: "Peerval Test", JWTSecret: "handler-test-secret"}

	router.Register(app, cfg, router.Dependencies{
		AuthHandler:              handler.NewAuthHandler(authService, logger),
		AdminUserHandler:         handler.NewAdminUserHandler(adminUserService, logger),
		TeachingHandler:          handler.NewTeachingHandler(teachingService, logger),
		AdminActivityHandler:     handler.NewAdminActivityHandler(activityService, logger),
		CourseHandler:            handler.NewCourseHandler(courseService, logger),
		BatchHandler:             handler.NewBatchHandler(courseService, rosterService, logger),
		ExamHandler:              handler.NewExamHandler(examService, submissionService, evaluationService, logger),
		StudentExamHandler:       handler.NewStudentExamHandler(submissionService, logger),
		StudentEvaluationHandler: handler.NewStudentEvaluationHandler(evaluationService, logger),
		NotificationHandler:      handler.NewNotificationHandler(notificationService, logger, time.Second),
		JWTMiddleware:            testAuth(),
	})

	return app
}

func performJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}, userID uint, role string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	authenticate(req, userID, role)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func authenticate(req *http.Request, userID uint, role string) {
	if userID > 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func seedUser(t *testing.T, db *gorm.DB, name, email, role string) models.User {
	t.Helper()

	user := models.User{Name: name, Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}
