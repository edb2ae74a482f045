package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
	"github.com/noah-isme/peerval-go-api/internal/repository"
)

var (
	// ErrExamNotFound signals a lookup for a missing exam.
	ErrExamNotFound = errors.New("exam not found")
	// ErrQuestionNotFound signals a lookup for a missing question.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNotExamOwner rejects exam operations by teachers other than the
	// creator.
	ErrNotExamOwner = errors.New("exam belongs to another teacher")
	// ErrExamWindowInvalid rejects windows that end on or before their start.
	ErrExamWindowInvalid = errors.New("exam end time must be after start time")
	// ErrEvaluationsAssigned blocks changing the question count once peer
	// evaluations exist, since their mark vectors are sized at assignment.
	ErrEvaluationsAssigned = errors.New("evaluations already assigned for this exam")
)

// defaultQuestionMaxMarks is the cap placed on placeholder questions until a
// teacher edits them.
const defaultQuestionMaxMarks = 10

// ExamService manages exam scheduling and question editing for teachers.
type ExamService interface {
	Create(ctx context.Context, payload dto.ExamCreateRequest, actor ActivityActor) (dto.ExamResponse, error)
	List(ctx context.Context, teacherID uint) ([]dto.ExamResponse, error)
	Get(ctx context.Context, id, teacherID uint) (dto.ExamResponse, error)
	Update(ctx context.Context, id uint, payload dto.ExamUpdateRequest, actor ActivityActor) (dto.ExamResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
	UpdateQuestion(ctx context.Context, examID uint, number int, payload dto.QuestionUpdateRequest, actor ActivityActor) (dto.QuestionResponse, error)
}

type examService struct {
	exams       repository.ExamRepository
	courses     repository.CourseRepository
	batches     repository.BatchRepository
	teaching    repository.TeachingRepository
	evaluations repository.EvaluationRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
}

// NewExamService constructs the exam service.
func NewExamService(
	exams repository.ExamRepository,
	courses repository.CourseRepository,
	batches repository.BatchRepository,
	teaching repository.TeachingRepository,
	evaluations repository.EvaluationRepository,
	validator *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) ExamService {
	return &examService{
		exams:       exams,
		courses:     courses,
		batches:     batches,
		teaching:    teaching,
		evaluations: evaluations,
		validator:   validator,
		activity:    activity,
		logger:      logger.With().Str("component", "exam_service").Logger(),
	}
}

func (s *examService) Create(ctx context.Context, payload dto.ExamCreateRequest, actor ActivityActor) (dto.ExamResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	startTime, err := time.Parse(time.RFC3339, payload.StartTime)
	if err != nil {
		return dto.ExamResponse{}, err
	}
	endTime, err := time.Parse(time.RFC3339, payload.EndTime)
	if err != nil {
		return dto.ExamResponse{}, err
	}
	if !endTime.After(startTime) {
		return dto.ExamResponse{}, ErrExamWindowInvalid
	}

	if _, err := s.courses.GetByID(ctx, payload.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrCourseNotFound
		}
		return dto.ExamResponse{}, err
	}

	batch, err := s.batches.GetByID(ctx, payload.BatchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrBatchNotFound
		}
		return dto.ExamResponse{}, err
	}
	if batch.CourseID != payload.CourseID {
		return dto.ExamResponse{}, ErrBatchNotFound
	}

	allowed, err := canManageBatch(ctx, s.teaching, batch, actor.ID)
	if err != nil {
		return dto.ExamResponse{}, err
	}
	if !allowed {
		return dto.ExamResponse{}, ErrNotBatchTeacher
	}

	exam := models.Exam{
		CourseID:              payload.CourseID,
		BatchID:               payload.BatchID,
		CreatedBy:             actor.ID,
		Title:                 strings.TrimSpace(payload.Title),
		NumQuestions:          payload.NumQuestions,
		EvaluationsPerStudent: payload.EvaluationsPerStudent,
		StartTime:             startTime,
		EndTime:               endTime,
		Questions:             placeholderQuestions(payload.NumQuestions),
	}
	if err := s.exams.Create(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	s.recordActivity(ctx, actor, "exam.created", exam.ID, map[string]interface{}{
		"batch_id":      exam.BatchID,
		"num_questions": exam.NumQuestions,
	})

	return dto.NewExamResponse(exam), nil
}

func (s *examService) List(ctx context.Context, teacherID uint) ([]dto.ExamResponse, error) {
	exams, err := s.exams.ListByCreator(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	return dto.NewExamResponseSlice(exams), nil
}

func (s *examService) Get(ctx context.Context, id, teacherID uint) (dto.ExamResponse, error) {
	exam, err := s.ownedExam(ctx, id, teacherID)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	return dto.NewExamResponse(exam), nil
}

func (s *examService) Update(ctx context.Context, id uint, payload dto.ExamUpdateRequest, actor ActivityActor) (dto.ExamResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	exam, err := s.ownedExam(ctx, id, actor.ID)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	updates := map[string]interface{}{}
	changed := make([]string, 0, 5)

	startTime := exam.StartTime
	endTime := exam.EndTime
	if payload.StartTime != nil {
		startTime, err = time.Parse(time.RFC3339, *payload.StartTime)
		if err != nil {
			return dto.ExamResponse{}, err
		}
		updates["start_time"] = startTime
		changed = append(changed, "start_time")
	}
	if payload.EndTime != nil {
		endTime, err = time.Parse(time.RFC3339, *payload.EndTime)
		if err != nil {
			return dto.ExamResponse{}, err
		}
		updates["end_time"] = endTime
		changed = append(changed, "end_time")
	}
	if !endTime.After(startTime) {
		return dto.ExamResponse{}, ErrExamWindowInvalid
	}

	if payload.Title != nil {
		updates["title"] = strings.TrimSpace(*payload.Title)
		changed = append(changed, "title")
	}
	if payload.EvaluationsPerStudent != nil {
		updates["evaluations_per_student"] = *payload.EvaluationsPerStudent
		changed = append(changed, "evaluations_per_student")
	}

	resizeQuestions := false
	if payload.NumQuestions != nil && *payload.NumQuestions != exam.NumQuestions {
		total, _, err := s.evaluations.CountByExam(ctx, id)
		if err != nil {
			return dto.ExamResponse{}, err
		}
		if total > 0 {
			return dto.ExamResponse{}, ErrEvaluationsAssigned
		}
		updates["num_questions"] = *payload.NumQuestions
		changed = append(changed, "num_questions")
		resizeQuestions = true
	}

	if _, err := s.exams.Update(ctx, id, updates); err != nil {
		return dto.ExamResponse{}, err
	}

	if resizeQuestions {
		questions := placeholderQuestions(*payload.NumQuestions)
		for i := range questions {
			questions[i].ExamID = id
		}
		if err := s.exams.ReplaceQuestions(ctx, id, questions); err != nil {
			return dto.ExamResponse{}, err
		}
	}

	if len(changed) > 0 {
		s.recordActivity(ctx, actor, "exam.updated", id, map[string]interface{}{"fields": changed})
	}

	refreshed, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	return dto.NewExamResponse(refreshed), nil
}

func (s *examService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if _, err := s.ownedExam(ctx, id, actor.ID); err != nil {
		return err
	}

	if err := s.exams.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExamNotFound
		}
		return err
	}

	s.recordActivity(ctx, actor, "exam.deleted", id, nil)
	return nil
}

func (s *examService) UpdateQuestion(ctx context.Context, examID uint, number int, payload dto.QuestionUpdateRequest, actor ActivityActor) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	if _, err := s.ownedExam(ctx, examID, actor.ID); err != nil {
		return dto.QuestionResponse{}, err
	}

	updates := map[string]interface{}{}
	if payload.Text != nil {
		updates["text"] = strings.TrimSpace(*payload.Text)
	}
	if payload.MaxMarks != nil {
		updates["max_marks"] = *payload.MaxMarks
	}

	question, err := s.exams.UpdateQuestion(ctx, examID, number, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(question), nil
}

func (s *examService) ownedExam(ctx context.Context, id, teacherID uint) (models.Exam, error) {
	exam, err := s.exams.GetByID(ctx, id)
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

func (s *examService) recordActivity(ctx context.Context, actor ActivityActor, action string, examID uint, metadata map[string]interface{}) {
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

func placeholderQuestions(count int) []models.Question {
	questions := make([]models.Question, 0, count)
	for i := 1; i <= count; i++ {
		questions = append(questions, models.Question{
			Number:   i,
			Text:     fmt.Sprintf("Question %d", i),
			MaxMarks: defaultQuestionMaxMarks,
		})
	}

	return questions
}
