package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// SubmissionRepository persists exam answer uploads.
type SubmissionRepository interface {
	// Upsert inserts the submission or, when the student already submitted
	// for the exam, replaces the stored file reference in place.
	Upsert(ctx context.Context, submission *models.Submission) error
	GetByExamAndStudent(ctx context.Context, examID, studentID uint) (models.Submission, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Submission, error)
	ListByExam(ctx context.Context, examID uint) ([]models.Submission, error)
	StudentIDsByExam(ctx context.Context, examID uint) ([]uint, error)
	CountByExam(ctx context.Context, examID uint) (int64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Upsert(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "exam_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"file_url", "file_name", "file_size", "public_id", "updated_at"}),
		}).
		Create(submission).Error
}

func (r *submissionRepository) GetByExamAndStudent(ctx context.Context, examID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListByExam(ctx context.Context, examID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("exam_id = ?", examID).
		Order("updated_at DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) StudentIDsByExam(ctx context.Context, examID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("exam_id = ?", examID).
		Order("student_id ASC").
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *submissionRepository) CountByExam(ctx context.Context, examID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("exam_id = ?", examID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
