package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/dto"
	"github.com/noah-isme/peerval-go-api/internal/models"
	"github.com/noah-isme/peerval-go-api/internal/observability"
	"github.com/noah-isme/peerval-go-api/internal/repository"
)

var (
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrExamWindowClosed rejects uploads outside the exam window.
	ErrExamWindowClosed = errors.New("exam window is not open")
	// ErrSubmissionTooLarge indicates the file exceeded the configured limit.
	ErrSubmissionTooLarge = errors.New("submission exceeds maximum allowed size")
	// ErrSubmissionNotPDF rejects files whose detected content is not a PDF.
	ErrSubmissionNotPDF = errors.New("submission must be a PDF document")
)

// FileUploader abstracts the storage backend answer sheets are pushed to.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (url string, publicID string, err error)
}

// SubmissionService orchestrates answer sheet uploads and teacher review.
type SubmissionService interface {
	// AvailableExams lists exams scheduled for batches the student belongs
	// to, annotated with the student's own submission state.
	AvailableExams(ctx context.Context, studentID uint) ([]dto.AvailableExamResponse, error)
	Submit(ctx context.Context, examID, studentID uint, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	ListByExam(ctx context.Context, examID, teacherID uint) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	exams       repository.ExamRepository
	enrollments repository.EnrollmentRepository
	uploader    FileUploader
	notifier    NotificationPublisher
	logger      zerolog.Logger
	maxSize     int64
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	exams repository.ExamRepository,
	enrollments repository.EnrollmentRepository,
	uploader FileUploader,
	notifier NotificationPublisher,
	maxSizeMB int,
	logger zerolog.Logger,
) SubmissionService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}

	return &submissionService{
		submissions: submissions,
		exams:       exams,
		enrollments: enrollments,
		uploader:    uploader,
		notifier:    notifier,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		maxSize:     int64(maxSizeMB) * 1024 * 1024,
		now:         time.Now,
	}
}

func (s *submissionService) AvailableExams(ctx context.Context, studentID uint) ([]dto.AvailableExamResponse, error) {
	batchIDs, err := s.enrollments.BatchIDsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(batchIDs) == 0 {
		return []dto.AvailableExamResponse{}, nil
	}

	exams, err := s.exams.ListByBatches(ctx, batchIDs)
	if err != nil {
		return nil, err
	}

	submissions, err := s.submissions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	submitted := make(map[uint]models.Submission, len(submissions))
	for _, submission := range submissions {
		submitted[submission.ExamID] = submission
	}

	now := s.now()
	responses := make([]dto.AvailableExamResponse, 0, len(exams))
	for _, exam := range exams {
		response := dto.AvailableExamResponse{
			ExamResponse: dto.NewExamResponse(exam),
			Open:         exam.Open(now),
		}
		if submission, ok := submitted[exam.ID]; ok {
			response.Submitted = true
			submittedAt := submission.UpdatedAt
			response.SubmittedAt = &submittedAt
		}
		responses = append(responses, response)
	}

	return responses, nil
}

func (s *submissionService) Submit(ctx context.Context, examID, studentID uint, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrExamNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !exam.Open(s.now()) {
		return dto.SubmissionResponse{}, ErrExamWindowClosed
	}

	enrolled, err := s.enrollments.Exists(ctx, exam.BatchID, studentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !enrolled {
		return dto.SubmissionResponse{}, ErrNotEnrolled
	}

	if file == nil {
		return dto.SubmissionResponse{}, fmt.Errorf("submission file is required")
	}
	if file.Size > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return dto.SubmissionResponse{}, ErrSubmissionTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return dto.SubmissionResponse{}, ErrSubmissionTooLarge
	}

	mime := mimetype.Detect(buf.Bytes())
	if !mime.Is("application/pdf") {
		observability.UploadRejected().WithLabelValues("type").Inc()
		return dto.SubmissionResponse{}, ErrSubmissionNotPDF
	}

	url, publicID, err := s.uploader.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		return dto.SubmissionResponse{}, fmt.Errorf("failed to upload file: %w", err)
	}

	submission := models.Submission{
		ExamID:    examID,
		StudentID: studentID,
		FileURL:   url,
		FileName:  file.Filename,
		FileSize:  int64(buf.Len()),
		PublicID:  publicID,
	}
	if err := s.submissions.Upsert(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	stored, err := s.submissions.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	observability.UploadRequests().WithLabelValues("application/pdf").Inc()
	s.logger.Info().
		Uint("exam_id", examID).
		Uint("student_id", studentID).
		Int("size_bytes", buf.Len()).
		Msg("submission stored")

	s.notifyTeacher(ctx, exam)

	return dto.NewSubmissionResponse(stored), nil
}

func (s *submissionService) ListByExam(ctx context.Context, examID, teacherID uint) ([]dto.SubmissionResponse, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}
	if exam.CreatedBy != teacherID {
		return nil, ErrNotExamOwner
	}

	submissions, err := s.submissions.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) notifyTeacher(ctx context.Context, exam models.Exam) {
	if s.notifier == nil {
		return
	}

	if _, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  exam.CreatedBy,
		Type:    models.NotificationTypeSubmissionReceived,
		Message: fmt.Sprintf("A new submission was received for %q.", exam.Title),
	}); err != nil {
		s.logger.Warn().Err(err).Uint("exam_id", exam.ID).Msg("submission notification failed")
	}
}
