package handler_test

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
)

func seedSubmitters(t *testing.T, db *gorm.DB, examID, batchID uint, count int) []models.User {
	t.Helper()

	students := make([]models.User, 0, count)
	for i := 1; i <= count; i++ {
		student := seedUser(t, db, fmt.Sprintf("Student %d", i), fmt.Sprintf("student%d@example.com", i), models.RoleStudent)
		require.NoError(t, db.Create(&models.Enrollment{BatchID: batchID, StudentID: student.ID}).Error)
		require.NoError(t, db.Create(&models.Submission{
			ExamID:    examID,
			StudentID: student.ID,
			FileURL:   fmt.Sprintf("https://files.test/answers-%d.pdf", i),
			FileName:  "answers.pdf",
			FileSize:  2048,
		}).Error)
		students = append(students, student)
	}

	return students
}

func TestExamHandlerLifecycle(t *testing.T) {
	db := openHandlerDB(t, "exam_handler")
	app := buildTestApp(t, db, &stubUploader{})

	teacher := seedUser(t, db, "Grace", "grace@example.com", models.RoleTeacher)
	batch := seedBatch(t, db, teacher.ID)

	start := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
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
		Success bool             `json:"success"`
		Data    dto.ExamResponse `json:"data"`
	}
	decodeResponse(t, resp, &created)
	require.True(t, created.Success)
	require.Equal(t, "Midterm", created.Data.Title)
	require.Len(t, created.Data.Questions, 2)

	resp = performJSON(t, app, "PATCH", fmt.Sprintf("/api/v1/exams/%d/questions/2", created.Data.ID), map[string]interface{}{
		"text":      "Explain quicksort",
		"max_marks": 25,
	}, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var question struct {
		Data dto.QuestionResponse `json:"data"`
	}
	decodeResponse(t, resp, &question)
	require.Equal(t, 2, question.Data.Number)
	require.Equal(t, 25.0, question.Data.MaxMarks)

	resp = performJSON(t, app, "GET", "/api/v1/exams", nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed struct {
		Data []dto.ExamResponse `json:"data"`
	}
	decodeResponse(t, resp, &listed)
	require.Len(t, listed.Data, 1)

	resp = performJSON(t, app, "DELETE", fmt.Sprintf("/api/v1/exams/%d", created.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = performJSON(t, app, "GET", fmt.Sprintf("/api/v1/exams/%d", created.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestExamHandlerRejectsInvalidWindow(t *testing.T) {
	db := openHandlerDB(t, "exam_handler_window")
	app := buildTestApp(t, db, &stubUploader{})

	teacher := seedUser(t, db, "Grace", "grace@example.com", models.RoleTeacher)
	batch := seedBatch(t, db, teacher.ID)

	start := time.Now().UTC().Truncate(time.Second)
	resp := performJSON(t, app, "POST", "/api/v1/exams", map[string]interface{}{
		"course_id":     batch.CourseID,
		"batch_id":      batch.ID,
		"title":         "Midterm",
		"num_questions": 2,
		"start_time":    start.Format(time.RFC3339),
		"end_time":      start.Format(time.RFC3339),
	}, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestExamHandlerEvaluationFlow(t *testing.T) {
	db := openHandlerDB(t, "exam_handler_evaluations")
	app := buildTestApp(t, db, &stubUploader{})

	teacher := seedUser(t, db, "Grace", "grace@example.com", models.RoleTeacher)
	batch := seedBatch(t, db, teacher.ID)

	// The window already closed, so assignment is allowed immediately.
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

	seedSubmitters(t, db, created.Data.ID, batch.ID, 2)

	resp = performJSON(t, app, "GET", fmt.Sprintf("/api/v1/exams/%d/submissions", created.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var submissions struct {
		Data []dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &submissions)
	require.Len(t, submissions.Data, 2)

	resp = performJSON(t, app, "POST", fmt.Sprintf("/api/v1/exams/%d/evaluations/assign", created.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var assigned struct {
		Data dto.AssignEvaluationsResponse `json:"data"`
	}
	decodeResponse(t, resp, &assigned)
	require.Equal(t, 2, assigned.Data.Submitters)
	require.Equal(t, 2, assigned.Data.Created)
	require.Equal(t, int64(2), assigned.Data.TotalPairs)

	resp = performJSON(t, app, "GET", fmt.Sprintf("/api/v1/exams/%d/evaluations/progress", created.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var progress struct {
		Data dto.EvaluationProgress `json:"data"`
	}
	decodeResponse(t, resp, &progress)
	require.Equal(t, int64(2), progress.Data.Assigned)
	require.Equal(t, int64(0), progress.Data.Completed)
	require.Equal(t, int64(2), progress.Data.Pending)

	resp = performJSON(t, app, "GET", fmt.Sprintf("/api/v1/exams/%d/evaluations", created.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var evaluations struct {
		Data []dto.EvaluationResponse `json:"data"`
	}
	decodeResponse(t, resp, &evaluations)
	require.Len(t, evaluations.Data, 2)
	require.NotNil(t, evaluations.Data[0].Evaluator)
	require.NotNil(t, evaluations.Data[0].Evaluatee)

	resp = performJSON(t, app, "GET", fmt.Sprintf("/api/v1/exams/%d/results", created.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var results struct {
		Data dto.ExamResultsResponse `json:"data"`
	}
	decodeResponse(t, resp, &results)
	require.Equal(t, created.Data.ID, results.Data.ExamID)
	require.Len(t, results.Data.Results, 2)
	require.False(t, results.Data.CacheHit)

	resp = performJSON(t, app, "GET", fmt.Sprintf("/api/v1/exams/%d/results/export", created.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "text/csv", resp.Header.Get(fiber.HeaderContentType))
	require.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "results.csv")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Contains(t, string(body), "student_id,name,email,received,completed,average_total")
	require.Contains(t, string(body), "student1@example.com")
	require.Contains(t, string(body), "student2@example.com")
}

func TestExamHandlerAssignBeforeWindowEnds(t *testing.T) {
	db := openHandlerDB(t, "exam_handler_early_assign")
	app := buildTestApp(t, db, &stubUploader{})

	teacher := seedUser(t, db, "Grace", "grace@example.com", models.RoleTeacher)
	batch := seedBatch(t, db, teacher.ID)

	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	resp := performJSON(t, app, "POST", "/api/v1/exams", map[string]interface{}{
		"course_id":               batch.CourseID,
		"batch_id":                batch.ID,
		"title":                   "Midterm",
		"num_questions":           2,
		"evaluations_per_student": 1,
		"start_time":              start.Format(time.RFC3339),
		"end_time":                start.Add(4 * time.Hour).Format(time.RFC3339),
	}, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Data dto.ExamResponse `json:"data"`
	}
	decodeResponse(t, resp, &created)

	resp = performJSON(t, app, "POST", fmt.Sprintf("/api/v1/exams/%d/evaluations/assign", created.Data.ID), nil, teacher.ID, models.RoleTeacher)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeResponse(t, resp, &body)
	require.False(t, body.Success)
	require.Equal(t, "exam window has not ended yet", body.Message)
}
