package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
	"github.com/noah-isme/peerval-go-api/internal/repository"
)

var (
	// ErrCourseNotFound signals a lookup for a missing course.
	ErrCourseNotFound = errors.New("course not found")
	// ErrBatchNotFound signals a lookup for a missing batch.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrCourseCodeTaken rejects duplicate course codes.
	ErrCourseCodeTaken = errors.New("course code is already in use")
	// ErrBatchNameTaken rejects duplicate batch names within a course.
	ErrBatchNameTaken = errors.New("batch name is already in use for this course")
	// ErrNotCourseOwner rejects course operations by teachers other than the
	// creator.
	ErrNotCourseOwner = errors.New("course belongs to another teacher")
	// ErrNotBatchTeacher rejects batch operations by teachers who neither
	// created the course nor hold a teaching assignment for the batch.
	ErrNotBatchTeacher = errors.New("batch is not taught by this teacher")
)

// CourseService manages courses and their batches for teachers.
type CourseService interface {
	Create(ctx context.Context, payload dto.CourseCreateRequest, actor ActivityActor) (dto.CourseResponse, error)
	List(ctx context.Context, teacherID uint) ([]dto.CourseResponse, error)
	Get(ctx context.Context, id, teacherID uint) (dto.CourseResponse, error)
	Update(ctx context.Context, id uint, payload dto.CourseUpdateRequest, actor ActivityActor) (dto.CourseResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error

	CreateBatch(ctx context.Context, courseID uint, payload dto.BatchCreateRequest, actor ActivityActor) (dto.BatchResponse, error)
	ListBatches(ctx context.Context, courseID, teacherID uint) ([]dto.BatchResponse, error)
	GetBatch(ctx context.Context, id, teacherID uint) (dto.BatchResponse, error)
	UpdateBatch(ctx context.Context, id uint, payload dto.BatchUpdateRequest, actor ActivityActor) (dto.BatchResponse, error)
	DeleteBatch(ctx context.Context, id uint, actor ActivityActor) error
}

type courseService struct {
	courses   repository.CourseRepository
	batches   repository.BatchRepository
	teaching  repository.TeachingRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(
	courses repository.CourseRepository,
	batches repository.BatchRepository,
	teaching repository.TeachingRepository,
	validator *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) CourseService {
	return &courseService{
		courses:   courses,
		batches:   batches,
		teaching:  teaching,
		validator: validator,
		activity:  activity,
		logger:    logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) Create(ctx context.Context, payload dto.CourseCreateRequest, actor ActivityActor) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	code := strings.ToUpper(strings.TrimSpace(payload.Code))
	if _, err := s.courses.GetByCode(ctx, code); err == nil {
		return dto.CourseResponse{}, ErrCourseCodeTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.CourseResponse{}, err
	}

	course := models.Course{
		Code:      code,
		Title:     strings.TrimSpace(payload.Title),
		CreatedBy: actor.ID,
	}
	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	s.recordActivity(ctx, actor, "course.created", "course", course.ID, map[string]interface{}{"code": course.Code})
	return dto.NewCourseResponse(course), nil
}

func (s *courseService) List(ctx context.Context, teacherID uint) ([]dto.CourseResponse, error) {
	courses, err := s.courses.ListByCreator(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	return dto.NewCourseResponseSlice(courses), nil
}

func (s *courseService) Get(ctx context.Context, id, teacherID uint) (dto.CourseResponse, error) {
	course, err := s.ownedCourse(ctx, id, teacherID)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Update(ctx context.Context, id uint, payload dto.CourseUpdateRequest, actor ActivityActor) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	if _, err := s.ownedCourse(ctx, id, actor.ID); err != nil {
		return dto.CourseResponse{}, err
	}

	updates := map[string]interface{}{}
	changed := make([]string, 0, 2)
	if payload.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*payload.Code))
		existing, err := s.courses.GetByCode(ctx, code)
		if err == nil && existing.ID != id {
			return dto.CourseResponse{}, ErrCourseCodeTaken
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, err
		}
		updates["code"] = code
		changed = append(changed, "code")
	}
	if payload.Title != nil {
		updates["title"] = strings.TrimSpace(*payload.Title)
		changed = append(changed, "title")
	}

	if _, err := s.courses.Update(ctx, id, updates); err != nil {
		return dto.CourseResponse{}, err
	}

	if len(changed) > 0 {
		s.recordActivity(ctx, actor, "course.updated", "course", id, map[string]interface{}{"fields": changed})
	}

	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if _, err := s.ownedCourse(ctx, id, actor.ID); err != nil {
		return err
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return err
	}

	s.recordActivity(ctx, actor, "course.deleted", "course", id, nil)
	return nil
}

func (s *courseService) CreateBatch(ctx context.Context, courseID uint, payload dto.BatchCreateRequest, actor ActivityActor) (dto.BatchResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BatchResponse{}, err
	}

	if _, err := s.ownedCourse(ctx, courseID, actor.ID); err != nil {
		return dto.BatchResponse{}, err
	}

	name := strings.TrimSpace(payload.Name)
	siblings, err := s.batches.ListByCourse(ctx, courseID)
	if err != nil {
		return dto.BatchResponse{}, err
	}
	for _, sibling := range siblings {
		if strings.EqualFold(sibling.Name, name) {
			return dto.BatchResponse{}, ErrBatchNameTaken
		}
	}

	batch := models.Batch{CourseID: courseID, Name: name}
	if err := s.batches.Create(ctx, &batch); err != nil {
		return dto.BatchResponse{}, err
	}

	s.recordActivity(ctx, actor, "batch.created", "batch", batch.ID, map[string]interface{}{"course_id": courseID})
	return dto.NewBatchResponse(batch), nil
}

func (s *courseService) ListBatches(ctx context.Context, courseID, teacherID uint) ([]dto.BatchResponse, error) {
	if _, err := s.ownedCourse(ctx, courseID, teacherID); err != nil {
		return nil, err
	}

	batches, err := s.batches.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return dto.NewBatchResponseSlice(batches), nil
}

func (s *courseService) GetBatch(ctx context.Context, id, teacherID uint) (dto.BatchResponse, error) {
	batch, err := s.manageableBatch(ctx, id, teacherID)
	if err != nil {
		return dto.BatchResponse{}, err
	}

	return dto.NewBatchResponse(batch), nil
}

func (s *courseService) UpdateBatch(ctx context.Context, id uint, payload dto.BatchUpdateRequest, actor ActivityActor) (dto.BatchResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BatchResponse{}, err
	}

	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BatchResponse{}, ErrBatchNotFound
		}
		return dto.BatchResponse{}, err
	}

	// Renaming is reserved for the course creator, like deletion.
	if batch.Course == nil || batch.Course.CreatedBy != actor.ID {
		return dto.BatchResponse{}, ErrNotCourseOwner
	}

	if payload.Name == nil {
		return dto.NewBatchResponse(batch), nil
	}

	name := strings.TrimSpace(*payload.Name)
	siblings, err := s.batches.ListByCourse(ctx, batch.CourseID)
	if err != nil {
		return dto.BatchResponse{}, err
	}
	for _, sibling := range siblings {
		if sibling.ID != id && strings.EqualFold(sibling.Name, name) {
			return dto.BatchResponse{}, ErrBatchNameTaken
		}
	}

	if _, err := s.batches.Update(ctx, id, map[string]interface{}{"name": name}); err != nil {
		return dto.BatchResponse{}, err
	}

	s.recordActivity(ctx, actor, "batch.updated", "batch", id, map[string]interface{}{"name": name})

	updated, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return dto.BatchResponse{}, err
	}

	return dto.NewBatchResponse(updated), nil
}

func (s *courseService) DeleteBatch(ctx context.Context, id uint, actor ActivityActor) error {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBatchNotFound
		}
		return err
	}

	// Only the course creator may drop a batch; an assigned teacher may not.
	if batch.Course == nil || batch.Course.CreatedBy != actor.ID {
		return ErrNotCourseOwner
	}

	if err := s.batches.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBatchNotFound
		}
		return err
	}

	s.recordActivity(ctx, actor, "batch.deleted", "batch", id, nil)
	return nil
}

func (s *courseService) ownedCourse(ctx context.Context, id, teacherID uint) (models.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}
	if course.CreatedBy != teacherID {
		return models.Course{}, ErrNotCourseOwner
	}

	return course, nil
}

func (s *courseService) manageableBatch(ctx context.Context, id, teacherID uint) (models.Batch, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Batch{}, ErrBatchNotFound
		}
		return models.Batch{}, err
	}

	allowed, err := canManageBatch(ctx, s.teaching, batch, teacherID)
	if err != nil {
		return models.Batch{}, err
	}
	if !allowed {
		return models.Batch{}, ErrNotBatchTeacher
	}

	return batch, nil
}

func (s *courseService) recordActivity(ctx context.Context, actor ActivityActor, action, entityType string, entityID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	id := entityID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   &id,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("activity record failed")
	}
}

// canManageBatch reports whether the teacher created the batch's course or
// holds a teaching assignment for the batch.
func canManageBatch(ctx context.Context, teaching repository.TeachingRepository, batch models.Batch, teacherID uint) (bool, error) {
	if batch.Course != nil && batch.Course.CreatedBy == teacherID {
		return true, nil
	}

	return teaching.ExistsForBatch(ctx, teacherID, batch.ID)
}
