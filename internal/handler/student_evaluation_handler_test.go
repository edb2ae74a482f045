package handler_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
)

type taskListEnvelope struct {
	Success bool                         `json:"success"`
	Data    []dto.EvaluationTaskResponse `json:"data"`
}

func seedAssignedExam(t *testing.T, app *fiber.App, db *gorm.DB) (models.User, []models.User, dto.ExamResponse) {
	t.Helper()

	teacher := seedUser(t, db, "Grace", "grace@example.com", models.RoleTeacher)
	batch := seedBatch(t, db, teacher.ID)

	start := time.Now().UTC().Add(-3 * time.Hour).Truncate(time.Second)
	resp := performJSON(t, app, "POST", "/api/v1/exams", map[string]interface{}{
		"course_id":               batch.CourseID,
		"batch_id":                batch.ID,
		"title":                   "Midterm",
		"num_questions":           2,
		"evaluations_per_student": 1,
		"start_time":              start.Format(time.RFC3339),
		"end_time":                start.Add(2 * time.Hour).Format(time.RFC3339),
	}, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Data dto.ExamResponse `json:"data"`
	}
	decodeResponse(t, resp, &created)

	students := seedSubmitters(t, db, created.Data.ID, batch.ID, 2)

	resp = performJSON(t, app, "POST", fmt.Sprintf("/api/v1/exams/%d/evaluations/assign", created.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	return teacher, students, created.Data
}

func TestStudentEvaluationHandlerFlow(t *testing.T) {
	db := openHandlerDB(t, "student_evaluations")
	app := buildTestApp(t, db, &stubUploader{})

	_, students, exam := seedAssignedExam(t, app, db)

	resp := performJSON(t, app, "GET", "/api/v1/student/evaluations", nil, students[0].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var tasks taskListEnvelope
	decodeResponse(t, resp, &tasks)
	require.Len(t, tasks.Data, 1)

	task := tasks.Data[0]
	require.Equal(t, exam.ID, task.ExamID)
	require.Equal(t, "Midterm", task.ExamTitle)
	require.Equal(t, 2, task.NumQuestions)
	require.Equal(t, models.EvaluationStatusPending, task.Status)
	require.Contains(t, task.FileURL, "files.test")

	resp = performJSON(t, app, "POST", fmt.Sprintf("/api/v1/student/evaluations/%d/marks", task.ID), map[string]interface{}{
		"marks":    []float64{8, 9.5},
		"feedback": `Neat proofs. <img src=x onerror=alert(1)>Question two could show more steps.`,
	}, students[0].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var completed struct {
		Success bool                       `json:"success"`
		Message string                     `json:"message"`
		Data    dto.EvaluationTaskResponse `json:"data"`
	}
	decodeResponse(t, resp, &completed)
	require.True(t, completed.Success)
	require.Equal(t, "marks submitted", completed.Message)
	require.Equal(t, models.EvaluationStatusCompleted, completed.Data.Status)
	require.Equal(t, []float64{8, 9.5}, completed.Data.Marks)
	require.Equal(t, "Neat proofs. Question two could show more steps.", completed.Data.Feedback)
	require.NotNil(t, completed.Data.CompletedAt)

	resp = performJSON(t, app, "POST", fmt.Sprintf("/api/v1/student/evaluations/%d/marks", task.ID), map[string]interface{}{
		"marks": []float64{1, 1},
	}, students[0].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = performJSON(t, app, "GET", "/api/v1/student/evaluations?status=completed", nil, students[0].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &tasks)
	require.Len(t, tasks.Data, 1)

	resp = performJSON(t, app, "GET", "/api/v1/student/evaluations?status=pending", nil, students[0].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &tasks)
	require.Empty(t, tasks.Data)

	resp = performJSON(t, app, "GET", fmt.Sprintf("/api/v1/student/evaluations?exam_id=%d", exam.ID), nil, students[1].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &tasks)
	require.Len(t, tasks.Data, 1)
}

func TestStudentEvaluationHandlerRejectsBadMarks(t *testing.T) {
	db := openHandlerDB(t, "student_evaluations_marks")
	app := buildTestApp(t, db, &stubUploader{})

	_, students, _ := seedAssignedExam(t, app, db)

	resp := performJSON(t, app, "GET", "/api/v1/student/evaluations", nil, students[0].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var tasks taskListEnvelope
	decodeResponse(t, resp, &tasks)
	require.Len(t, tasks.Data, 1)
	task := tasks.Data[0]

	resp = performJSON(t, app, "POST", fmt.Sprintf("/api/v1/student/evaluations/%d/marks", task.ID), map[string]interface{}{
		"marks": []float64{8},
	}, students[0].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var failure struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeResponse(t, resp, &failure)
	require.False(t, failure.Success)
	require.Equal(t, "marks must contain one entry per question", failure.Message)

	// Placeholder questions cap each mark at ten.
	resp = performJSON(t, app, "POST", fmt.Sprintf("/api/v1/student/evaluations/%d/marks", task.ID), map[string]interface{}{
		"marks": []float64{11, 5},
	}, students[0].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	decodeResponse(t, resp, &failure)
	require.Contains(t, failure.Message, "mark exceeds the question maximum")
	require.Contains(t, failure.Message, "question 1")

	resp = performJSON(t, app, "POST", fmt.Sprintf("/api/v1/student/evaluations/%d/marks", task.ID), map[string]interface{}{
		"marks": []float64{-1, 5},
	}, students[0].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = performJSON(t, app, "GET", "/api/v1/student/evaluations?status=archived", nil, students[0].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStudentEvaluationHandlerOwnership(t *testing.T) {
	db := openHandlerDB(t, "student_evaluations_ownership")
	app := buildTestApp(t, db, &stubUploader{})

	_, students, _ := seedAssignedExam(t, app, db)

	resp := performJSON(t, app, "GET", "/api/v1/student/evaluations", nil, students[0].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var tasks taskListEnvelope
	decodeResponse(t, resp, &tasks)
	require.Len(t, tasks.Data, 1)

	resp = performJSON(t, app, "POST", fmt.Sprintf("/api/v1/student/evaluations/%d/marks", tasks.Data[0].ID), map[string]interface{}{
		"marks": []float64{5, 5},
	}, students[1].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = performJSON(t, app, "POST", "/api/v1/student/evaluations/99999/marks", map[string]interface{}{
		"marks": []float64{5, 5},
	}, students[0].ID, models.RoleStudent)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
