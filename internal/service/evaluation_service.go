package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
	"github.com/noah-isme/peerval-go-api/internal/observability"
	"github.com/noah-isme/peerval-go-api/internal/peereval"
	"github.com/noah-isme/peerval-go-api/internal/repository"
)

var (
	// ErrEvaluationNotFound signals a lookup for a missing evaluation.
	ErrEvaluationNotFound = errors.New("evaluation not found")
	// ErrExamNotEnded blocks peer assignment while the exam window is open.
	ErrExamNotEnded = errors.New("exam window has not ended yet")
	// ErrNotEvaluator rejects mark submissions from students other than the
	// assigned evaluator.
	ErrNotEvaluator = errors.New("evaluation belongs to another student")
	// ErrEvaluationCompleted blocks resubmitting marks for a completed row.
	ErrEvaluationCompleted = errors.New("evaluation has already been completed")
	// ErrMarksLength rejects mark vectors that do not match the question count.
	ErrMarksLength = errors.New("marks must contain one entry per question")
	// ErrMarkOutOfRange rejects marks above the question maximum.
	ErrMarkOutOfRange = errors.New("mark exceeds the question maximum")
)

// EvaluationService runs peer assignment and collects the resulting marks.
type EvaluationService interface {
	// AssignPeers distributes the exam's submissions among the submitters for
	// marking. Running it again after late submissions tops evaluators up to
	// the exam's quota without duplicating pairs.
	AssignPeers(ctx context.Context, examID uint, actor ActivityActor) (dto.AssignEvaluationsResponse, error)
	ListForEvaluator(ctx context.Context, studentID uint, filter dto.EvaluationListRequest) ([]dto.EvaluationTaskResponse, error)
	SubmitMarks(ctx context.Context, id, studentID uint, payload dto.MarksSubmitRequest) (dto.EvaluationTaskResponse, error)
	ListByExam(ctx context.Context, examID, teacherID uint) ([]dto.EvaluationResponse, error)
	Progress(ctx context.Context, examID, teacherID uint) (dto.EvaluationProgress, error)
	Results(ctx context.Context, examID, teacherID uint) (dto.ExamResultsResponse, error)
	// ResultsCSV renders the aggregated results as a spreadsheet-friendly
	// download.
	ResultsCSV(ctx context.Context, examID, teacherID uint) ([]byte, error)
}

type evaluationService struct {
	evaluations repository.EvaluationRepository
	exams       repository.ExamRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	notifier    NotificationPublisher
	activity    ActivityRecorder
	cache       *redis.Client
	cacheTTL    time.Duration
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewEvaluationService constructs the evaluation service.
func NewEvaluationService(
	evaluations repository.EvaluationRepository,
	exams repository.ExamRepository,
	submissions repository.SubmissionRepository,
	validate *validator.Validate,
	notifier NotificationPublisher,
	activity ActivityRecorder,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) EvaluationService {
	return &evaluationService{
		evaluations: evaluations,
		exams:       exams,
		submissions: submissions,
		validator:   validate,
		notifier:    notifier,
		activity:    activity,
		cache:       cache,
		cacheTTL:    cacheTTL,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/peerval-go-api/internal/service/evaluation"),
		now:         time.Now,
	}
}

func (s *evaluationService) AssignPeers(ctx context.Context, examID uint, actor ActivityActor) (dto.AssignEvaluationsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluations.assign", trace.WithAttributes(
		attribute.Int("exam.id", int(examID)),
	))
	defer span.End()

	exam, err := s.ownedExam(ctx, examID, actor.ID)
	if err != nil {
		span.RecordError(err)
		return dto.AssignEvaluationsResponse{}, err
	}

	if !exam.Ended(s.now()) {
		span.SetStatus(codes.Error, "exam still open")
		return dto.AssignEvaluationsResponse{}, ErrExamNotEnded
	}

	submitters, err := s.submissions.StudentIDsByExam(ctx, examID)
	if err != nil {
		span.RecordError(err)
		return dto.AssignEvaluationsResponse{}, err
	}

	existing, err := s.evaluations.ExistingPairs(ctx, examID)
	if err != nil {
		span.RecordError(err)
		return dto.AssignEvaluationsResponse{}, err
	}

	pairs, err := peereval.Assign(submitters, exam.EvaluationsPerStudent, existing)
	if err != nil {
		span.RecordError(err)
		return dto.AssignEvaluationsResponse{}, err
	}

	rows := make([]models.Evaluation, 0, len(pairs))
	for _, pair := range pairs {
		evaluation := models.Evaluation{
			ExamID:      examID,
			EvaluatorID: pair.Evaluator,
			EvaluateeID: pair.Evaluatee,
			Status:      models.EvaluationStatusPending,
		}
		if err := evaluation.SetMarks(make([]float64, exam.NumQuestions)); err != nil {
			return dto.AssignEvaluationsResponse{}, err
		}
		rows = append(rows, evaluation)
	}

	inserted, err := s.evaluations.CreateBatch(ctx, rows)
	if err != nil {
		span.RecordError(err)
		return dto.AssignEvaluationsResponse{}, err
	}

	skipped := len(pairs) - int(inserted)
	span.SetAttributes(
		attribute.Int("assign.submitters", len(submitters)),
		attribute.Int64("assign.created", inserted),
		attribute.Int("assign.skipped", skipped),
	)
	observability.EvaluationsAssignedTotal().Add(float64(inserted))

	s.invalidateResults(ctx, examID)
	s.notifyEvaluators(ctx, exam, pairs)
	s.recordActivity(ctx, actor, "evaluation.assigned", examID, map[string]interface{}{
		"submitters": len(submitters),
		"created":    inserted,
		"skipped":    skipped,
	})

	s.logger.Info().
		Uint("exam_id", examID).
		Int("submitters", len(submitters)).
		Int64("created", inserted).
		Int("skipped", skipped).
		Msg("peer evaluations assigned")

	return dto.AssignEvaluationsResponse{
		ExamID:     examID,
		Submitters: len(submitters),
		Created:    int(inserted),
		Skipped:    skipped,
		TotalPairs: int64(len(existing)) + inserted,
	}, nil
}

func (s *evaluationService) ListForEvaluator(ctx context.Context, studentID uint, filter dto.EvaluationListRequest) ([]dto.EvaluationTaskResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	evaluations, err := s.evaluations.ListByEvaluator(ctx, studentID, repository.EvaluationFilter{
		ExamID: filter.ExamID,
		Status: filter.Status,
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]dto.EvaluationTaskResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		task := dto.NewEvaluationTaskResponse(evaluation)
		submission, err := s.submissions.GetByExamAndStudent(ctx, evaluation.ExamID, evaluation.EvaluateeID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		} else {
			task.FileURL = submission.FileURL
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

func (s *evaluationService) SubmitMarks(ctx context.Context, id, studentID uint, payload dto.MarksSubmitRequest) (dto.EvaluationTaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationTaskResponse{}, err
	}

	evaluation, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationTaskResponse{}, ErrEvaluationNotFound
		}
		return dto.EvaluationTaskResponse{}, err
	}

	if evaluation.EvaluatorID != studentID {
		return dto.EvaluationTaskResponse{}, ErrNotEvaluator
	}
	if evaluation.Completed() {
		return dto.EvaluationTaskResponse{}, ErrEvaluationCompleted
	}

	exam, err := s.exams.GetByID(ctx, evaluation.ExamID)
	if err != nil {
		return dto.EvaluationTaskResponse{}, err
	}

	if len(payload.Marks) != exam.NumQuestions {
		return dto.EvaluationTaskResponse{}, ErrMarksLength
	}
	for i, mark := range payload.Marks {
		if i < len(exam.Questions) && mark > exam.Questions[i].MaxMarks {
			return dto.EvaluationTaskResponse{}, fmt.Errorf("%w: question %d", ErrMarkOutOfRange, i+1)
		}
	}

	if err := evaluation.SetMarks(payload.Marks); err != nil {
		return dto.EvaluationTaskResponse{}, err
	}
	evaluation.Feedback = strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback))
	completedAt := s.now()
	evaluation.Status = models.EvaluationStatusCompleted
	evaluation.CompletedAt = &completedAt

	if err := s.evaluations.Update(ctx, &evaluation); err != nil {
		return dto.EvaluationTaskResponse{}, err
	}

	s.invalidateResults(ctx, evaluation.ExamID)
	observability.EvaluationsCompletedTotal().Inc()

	s.logger.Info().
		Uint("evaluation_id", evaluation.ID).
		Uint("exam_id", evaluation.ExamID).
		Uint("evaluator_id", studentID).
		Msg("evaluation marks submitted")

	return dto.NewEvaluationTaskResponse(evaluation), nil
}

func (s *evaluationService) ListByExam(ctx context.Context, examID, teacherID uint) ([]dto.EvaluationResponse, error) {
	if _, err := s.ownedExam(ctx, examID, teacherID); err != nil {
		return nil, err
	}

	evaluations, err := s.evaluations.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	return dto.NewEvaluationResponseSlice(evaluations), nil
}

func (s *evaluationService) Progress(ctx context.Context, examID, teacherID uint) (dto.EvaluationProgress, error) {
	if _, err := s.ownedExam(ctx, examID, teacherID); err != nil {
		return dto.EvaluationProgress{}, err
	}

	total, completed, err := s.evaluations.CountByExam(ctx, examID)
	if err != nil {
		return dto.EvaluationProgress{}, err
	}

	return dto.EvaluationProgress{
		Assigned:  total,
		Completed: completed,
		Pending:   total - completed,
	}, nil
}

func (s *evaluationService) Results(ctx context.Context, examID, teacherID uint) (dto.ExamResultsResponse, error) {
	cacheKey := resultsCacheKey(examID)
	ctx, span := s.tracer.Start(ctx, "evaluations.results", trace.WithAttributes(
		attribute.Int("exam.id", int(examID)),
		attribute.String("results.cache_key", cacheKey),
	))
	defer span.End()

	exam, err := s.ownedExam(ctx, examID, teacherID)
	if err != nil {
		span.RecordError(err)
		return dto.ExamResultsResponse{}, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.ExamResultsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("results.cache_hit", true))
				observability.ResultsCacheHits().Inc()
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read results cache")
			span.RecordError(err)
		}
	}

	submissions, err := s.submissions.ListByExam(ctx, examID)
	if err != nil {
		span.RecordError(err)
		return dto.ExamResultsResponse{}, err
	}

	evaluations, err := s.evaluations.ListByExam(ctx, examID)
	if err != nil {
		span.RecordError(err)
		return dto.ExamResultsResponse{}, err
	}

	response := s.buildResults(exam, submissions, evaluations)
	span.SetAttributes(
		attribute.Int("results.students", len(response.Results)),
		attribute.Int64("results.completed", response.Progress.Completed),
	)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store results cache")
				span.RecordError(err)
			}
		}
	}

	return response, nil
}

func (s *evaluationService) ResultsCSV(ctx context.Context, examID, teacherID uint) ([]byte, error) {
	results, err := s.Results(ctx, examID, teacherID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"student_id", "name", "email", "received", "completed", "average_total"}); err != nil {
		return nil, err
	}
	for _, row := range results.Results {
		record := []string{
			strconv.FormatUint(uint64(row.StudentID), 10),
			row.Name,
			row.Email,
			strconv.Itoa(row.Received),
			strconv.Itoa(row.Completed),
			strconv.FormatFloat(row.AverageTotal, 'f', 2, 64),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (s *evaluationService) buildResults(exam models.Exam, submissions []models.Submission, evaluations []models.Evaluation) dto.ExamResultsResponse {
	index := make(map[uint]*dto.StudentResultRow, len(submissions))
	sums := make(map[uint]float64, len(submissions))

	for _, submission := range submissions {
		row := &dto.StudentResultRow{StudentID: submission.StudentID}
		if submission.Student != nil {
			row.Name = submission.Student.Name
			row.Email = submission.Student.Email
		}
		index[submission.StudentID] = row
	}

	var completed int64
	for _, evaluation := range evaluations {
		row, ok := index[evaluation.EvaluateeID]
		if !ok {
			row = &dto.StudentResultRow{StudentID: evaluation.EvaluateeID}
			if evaluation.Evaluatee != nil {
				row.Name = evaluation.Evaluatee.Name
				row.Email = evaluation.Evaluatee.Email
			}
			index[evaluation.EvaluateeID] = row
		}

		row.Received++
		if evaluation.Completed() {
			completed++
			row.Completed++
			sums[evaluation.EvaluateeID] += evaluation.Total()
		}
	}

	rows := make([]dto.StudentResultRow, 0, len(index))
	for id, row := range index {
		if row.Completed > 0 {
			row.AverageTotal = math.Round(sums[id]/float64(row.Completed)*100) / 100
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StudentID < rows[j].StudentID })

	assigned := int64(len(evaluations))

	return dto.ExamResultsResponse{
		ExamID:                exam.ID,
		Title:                 exam.Title,
		NumQuestions:          exam.NumQuestions,
		EvaluationsPerStudent: exam.EvaluationsPerStudent,
		Progress: dto.EvaluationProgress{
			Assigned:  assigned,
			Completed: completed,
			Pending:   assigned - completed,
		},
		Results:     rows,
		GeneratedAt: s.now(),
		CacheHit:    false,
	}
}

func (s *evaluationService) ownedExam(ctx context.Context, examID, teacherID uint) (models.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Exam{}, ErrExamNotFound
		}
		return models.Exam{}, err
	}
	if exam.CreatedBy != teacherID {
		return models.Exam{}, ErrNotExamOwner
	}

	return exam, nil
}

func (s *evaluationService) invalidateResults(ctx context.Context, examID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, resultsCacheKey(examID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("exam_id", examID).Msg("failed to invalidate results cache")
	}
}

func (s *evaluationService) notifyEvaluators(ctx context.Context, exam models.Exam, pairs []peereval.Pair) {
	if s.notifier == nil || len(pairs) == 0 {
		return
	}

	counts := make(map[uint]int)
	for _, pair := range pairs {
		counts[pair.Evaluator]++
	}
	for evaluatorID, count := range counts {
		if _, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
			UserID:  evaluatorID,
			Type:    models.NotificationTypeEvaluationAssigned,
			Message: fmt.Sprintf("You have %d peer evaluation task(s) waiting for %q.", count, exam.Title),
		}); err != nil {
			s.logger.Warn().Err(err).Uint("evaluator_id", evaluatorID).Msg("assignment notification failed")
		}
	}
}

func (s *evaluationService) recordActivity(ctx context.Context, actor ActivityActor, action string, examID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	id := examID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "exam",
		EntityID:   &id,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("activity record failed")
	}
}

func resultsCacheKey(examID uint) string {
	return fmt.Sprintf("results:exam:%d", examID)
}
