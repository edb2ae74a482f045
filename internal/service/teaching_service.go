package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
	"github.com/noah-isme/peerval-go-api/internal/repository"
)

var (
	// ErrTeachingAssignmentNotFound signals a lookup for a missing assignment.
	ErrTeachingAssignmentNotFound = errors.New("teaching assignment not found")
	// ErrTeachingAssignmentExists rejects assigning the same teacher to the
	// same course batch twice.
	ErrTeachingAssignmentExists = errors.New("teacher is already assigned to this batch")
	// ErrNotATeacher rejects teaching assignments that point at accounts
	// without the teacher role.
	ErrNotATeacher = errors.New("user does not have the teacher role")
)

// TeachingService manages which teacher runs which course batch.
type TeachingService interface {
	Assign(ctx context.Context, payload dto.TeachingAssignRequest, actor ActivityActor) (dto.TeachingAssignmentResponse, error)
	List(ctx context.Context, req dto.TeachingListRequest) ([]dto.TeachingAssignmentResponse, error)
	Remove(ctx context.Context, id uint, actor ActivityActor) error
}

type teachingService struct {
	assignments repository.TeachingRepository
	users       repository.UserRepository
	courses     repository.CourseRepository
	batches     repository.BatchRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
}

// NewTeachingService constructs the teaching assignment service.
func NewTeachingService(
	assignments repository.TeachingRepository,
	users repository.UserRepository,
	courses repository.CourseRepository,
	batches repository.BatchRepository,
	validator *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) TeachingService {
	return &teachingService{
		assignments: assignments,
		users:       users,
		courses:     courses,
		batches:     batches,
		validator:   validator,
		activity:    activity,
		logger:      logger.With().Str("component", "teaching_service").Logger(),
	}
}

func (s *teachingService) Assign(ctx context.Context, payload dto.TeachingAssignRequest, actor ActivityActor) (dto.TeachingAssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TeachingAssignmentResponse{}, err
	}

	teacher, err := s.users.GetByID(ctx, payload.TeacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TeachingAssignmentResponse{}, ErrUserNotFound
		}
		return dto.TeachingAssignmentResponse{}, err
	}
	if teacher.Role != models.RoleTeacher {
		return dto.TeachingAssignmentResponse{}, ErrNotATeacher
	}

	if _, err := s.courses.GetByID(ctx, payload.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TeachingAssignmentResponse{}, ErrCourseNotFound
		}
		return dto.TeachingAssignmentResponse{}, err
	}

	batch, err := s.batches.GetByID(ctx, payload.BatchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TeachingAssignmentResponse{}, ErrBatchNotFound
		}
		return dto.TeachingAssignmentResponse{}, err
	}
	if batch.CourseID != payload.CourseID {
		return dto.TeachingAssignmentResponse{}, ErrBatchNotFound
	}

	exists, err := s.assignments.Exists(ctx, payload.TeacherID, payload.CourseID, payload.BatchID)
	if err != nil {
		return dto.TeachingAssignmentResponse{}, err
	}
	if exists {
		return dto.TeachingAssignmentResponse{}, ErrTeachingAssignmentExists
	}

	assignment := models.TeacherCourse{
		TeacherID: payload.TeacherID,
		CourseID:  payload.CourseID,
		BatchID:   payload.BatchID,
	}
	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.TeachingAssignmentResponse{}, err
	}

	s.recordActivity(ctx, actor, "teaching.assigned", assignment.ID, map[string]interface{}{
		"teacher_id": payload.TeacherID,
		"course_id":  payload.CourseID,
		"batch_id":   payload.BatchID,
	})

	created, err := s.assignments.GetByID(ctx, assignment.ID)
	if err != nil {
		return dto.NewTeachingAssignmentResponse(assignment), nil
	}

	return dto.NewTeachingAssignmentResponse(created), nil
}

func (s *teachingService) List(ctx context.Context, req dto.TeachingListRequest) ([]dto.TeachingAssignmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	assignments, err := s.assignments.List(ctx, repository.TeachingFilter{
		TeacherID: req.TeacherID,
		CourseID:  req.CourseID,
		BatchID:   req.BatchID,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewTeachingAssignmentResponseSlice(assignments), nil
}

func (s *teachingService) Remove(ctx context.Context, id uint, actor ActivityActor) error {
	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeachingAssignmentNotFound
		}
		return err
	}

	s.recordActivity(ctx, actor, "teaching.unassigned", id, nil)
	return nil
}

func (s *teachingService) recordActivity(ctx context.Context, actor ActivityActor, action string, entityID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	id := entityID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "teaching_assignment",
		EntityID:   &id,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("activity record failed")
	}
}
