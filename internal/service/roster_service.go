package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
	"github.com/noah-isme/peerval-go-api/internal/repository"
)

var (
	// ErrAlreadyEnrolled rejects adding a student who is already on the
	// batch roster.
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this batch")
	// ErrNotEnrolled signals an operation on a student who is not on the
	// roster.
	ErrNotEnrolled = errors.New("student is not enrolled in this batch")
	// ErrStudentNotFound signals a referenced student account that does
	// not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrRosterEmptyFile rejects an import with no data rows.
	ErrRosterEmptyFile = errors.New("roster file contains no rows")
)

// RosterService manages batch rosters, including CSV import and export.
// Unknown emails encountered while enrolling get a fresh student account
// with a random password; those students sign in after a reset.
type RosterService interface {
	List(ctx context.Context, batchID, teacherID uint) ([]dto.RosterEntryResponse, error)
	Add(ctx context.Context, batchID uint, payload dto.RosterAddRequest, actor ActivityActor) (dto.RosterEntryResponse, error)
	Remove(ctx context.Context, batchID, studentID uint, actor ActivityActor) error
	// ImportCSV reads name,email rows and enrolls each into the batch. Bad
	// rows are reported per line and do not abort the rest of the file.
	ImportCSV(ctx context.Context, batchID uint, file io.Reader, actor ActivityActor) (dto.RosterImportSummary, error)
	// ExportCSV renders the roster as name,email rows.
	ExportCSV(ctx context.Context, batchID, teacherID uint) ([]byte, error)
}

type rosterService struct {
	enrollments repository.EnrollmentRepository
	users       repository.UserRepository
	batches     repository.BatchRepository
	teaching    repository.TeachingRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	notifier    NotificationPublisher
	logger      zerolog.Logger
}

// NewRosterService constructs the roster service.
func NewRosterService(
	enrollments repository.EnrollmentRepository,
	users repository.UserRepository,
	batches repository.BatchRepository,
	teaching repository.TeachingRepository,
	validator *validator.Validate,
	activity ActivityRecorder,
	notifier NotificationPublisher,
	logger zerolog.Logger,
) RosterService {
	return &rosterService{
		enrollments: enrollments,
		users:       users,
		batches:     batches,
		teaching:    teaching,
		validator:   validator,
		activity:    activity,
		notifier:    notifier,
		logger:      logger.With().Str("component", "roster_service").Logger(),
	}
}

func (s *rosterService) List(ctx context.Context, batchID, teacherID uint) ([]dto.RosterEntryResponse, error) {
	if _, err := s.manageableBatch(ctx, batchID, teacherID); err != nil {
		return nil, err
	}

	enrollments, err := s.enrollments.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	return dto.NewRosterEntryResponseSlice(enrollments), nil
}

func (s *rosterService) Add(ctx context.Context, batchID uint, payload dto.RosterAddRequest, actor ActivityActor) (dto.RosterEntryResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RosterEntryResponse{}, err
	}

	batch, err := s.manageableBatch(ctx, batchID, actor.ID)
	if err != nil {
		return dto.RosterEntryResponse{}, err
	}

	student, created, err := s.findOrCreateStudent(ctx, payload.Name, payload.Email)
	if err != nil {
		return dto.RosterEntryResponse{}, err
	}

	inserted, err := s.enrollments.CreateBatch(ctx, []models.Enrollment{{BatchID: batchID, StudentID: student.ID}})
	if err != nil {
		return dto.RosterEntryResponse{}, err
	}
	if inserted == 0 {
		return dto.RosterEntryResponse{}, ErrAlreadyEnrolled
	}

	s.notifyEnrolled(ctx, student.ID, batch)
	s.recordActivity(ctx, actor, "roster.student_added", batchID, map[string]interface{}{
		"student_id":  student.ID,
		"new_account": created,
	})

	enrollment := models.Enrollment{BatchID: batchID, StudentID: student.ID, Student: &student}
	return dto.NewRosterEntryResponse(enrollment), nil
}

func (s *rosterService) Remove(ctx context.Context, batchID, studentID uint, actor ActivityActor) error {
	if _, err := s.manageableBatch(ctx, batchID, actor.ID); err != nil {
		return err
	}

	if err := s.enrollments.Delete(ctx, batchID, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotEnrolled
		}
		return err
	}

	s.recordActivity(ctx, actor, "roster.student_removed", batchID, map[string]interface{}{"student_id": studentID})
	return nil
}

func (s *rosterService) ImportCSV(ctx context.Context, batchID uint, file io.Reader, actor ActivityActor) (dto.RosterImportSummary, error) {
	batch, err := s.manageableBatch(ctx, batchID, actor.ID)
	if err != nil {
		return dto.RosterImportSummary{}, err
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	summary := dto.RosterImportSummary{}
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			summary.Errors = append(summary.Errors, dto.RosterRowError{Line: line, Reason: "malformed CSV row"})
			continue
		}

		if line == 1 && isRosterHeader(record) {
			continue
		}

		name, email, reason := parseRosterRow(record)
		if reason != "" {
			summary.Errors = append(summary.Errors, dto.RosterRowError{Line: line, Reason: reason})
			continue
		}
		if err := s.validator.Var(email, "required,email"); err != nil {
			summary.Errors = append(summary.Errors, dto.RosterRowError{Line: line, Reason: fmt.Sprintf("invalid email %q", email)})
			continue
		}

		summary.Processed++

		student, created, err := s.findOrCreateStudent(ctx, name, email)
		if err != nil {
			return dto.RosterImportSummary{}, err
		}
		if created {
			summary.NewAccounts++
		}

		inserted, err := s.enrollments.CreateBatch(ctx, []models.Enrollment{{BatchID: batchID, StudentID: student.ID}})
		if err != nil {
			return dto.RosterImportSummary{}, err
		}
		if inserted == 0 {
			summary.Skipped++
			continue
		}

		summary.Enrolled++
		s.notifyEnrolled(ctx, student.ID, batch)
	}

	if summary.Processed == 0 && len(summary.Errors) == 0 {
		return dto.RosterImportSummary{}, ErrRosterEmptyFile
	}

	s.recordActivity(ctx, actor, "roster.imported", batchID, map[string]interface{}{
		"processed": summary.Processed,
		"enrolled":  summary.Enrolled,
		"skipped":   summary.Skipped,
	})

	return summary, nil
}

func (s *rosterService) ExportCSV(ctx context.Context, batchID, teacherID uint) ([]byte, error) {
	if _, err := s.manageableBatch(ctx, batchID, teacherID); err != nil {
		return nil, err
	}

	enrollments, err := s.enrollments.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"name", "email"}); err != nil {
		return nil, err
	}
	for _, enrollment := range enrollments {
		if enrollment.Student == nil {
			continue
		}
		if err := writer.Write([]string{enrollment.Student.Name, enrollment.Student.Email}); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (s *rosterService) findOrCreateStudent(ctx context.Context, name, email string) (models.User, bool, error) {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, false, err
	}

	// The account starts with an unguessable password; the student resets
	// it before first login.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, false, err
	}

	user = models.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return models.User{}, false, err
	}

	return user, true, nil
}

func (s *rosterService) manageableBatch(ctx context.Context, batchID, teacherID uint) (models.Batch, error) {
	batch, err := s.batches.GetByID(ctx, batchID)
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

func (s *rosterService) notifyEnrolled(ctx context.Context, studentID uint, batch models.Batch) {
	if s.notifier == nil {
		return
	}

	courseTitle := "a course"
	if batch.Course != nil {
		courseTitle = batch.Course.Title
	}
	if _, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  studentID,
		Type:    models.NotificationTypeRosterEnrolled,
		Message: fmt.Sprintf("You have been enrolled in %s (%s)", courseTitle, batch.Name),
	}); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("enrollment notification failed")
	}
}

func (s *rosterService) recordActivity(ctx context.Context, actor ActivityActor, action string, batchID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	id := batchID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "batch",
		EntityID:   &id,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("activity record failed")
	}
}

func isRosterHeader(record []string) bool {
	if len(record) < 2 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(record[0]), "name") &&
		strings.EqualFold(strings.TrimSpace(record[1]), "email")
}

func parseRosterRow(record []string) (name, email, reason string) {
	if len(record) < 2 {
		return "", "", "expected name,email columns"
	}

	name = strings.TrimSpace(record[0])
	email = strings.TrimSpace(record[1])
	if name == "" {
		return "", "", "name is empty"
	}
	if email == "" {
		return "", "", "email is empty"
	}

	return name, email, ""
}
