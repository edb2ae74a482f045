package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// EnrollmentRepository persists batch rosters.
type EnrollmentRepository interface {
	// CreateBatch inserts the given enrollments, silently skipping rows whose
	// (batch, student) pair already exists. It returns how many rows were
	// actually inserted.
	CreateBatch(ctx context.Context, enrollments []models.Enrollment) (int64, error)
	Exists(ctx context.Context, batchID, studentID uint) (bool, error)
	ListByBatch(ctx context.Context, batchID uint) ([]models.Enrollment, error)
	BatchIDsByStudent(ctx context.Context, studentID uint) ([]uint, error)
	CountByBatch(ctx context.Context, batchID uint) (int64, error)
	Delete(ctx context.Context, batchID, studentID uint) error
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs the enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) CreateBatch(ctx context.Context, enrollments []models.Enrollment) (int64, error) {
	if len(enrollments) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "batch_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(&enrollments)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

func (r *enrollmentRepository) Exists(ctx context.Context, batchID, studentID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("batch_id = ? AND student_id = ?", batchID, studentID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *enrollmentRepository) ListByBatch(ctx context.Context, batchID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *enrollmentRepository) BatchIDsByStudent(ctx context.Context, studentID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("student_id = ?", studentID).
		Pluck("batch_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *enrollmentRepository) CountByBatch(ctx context.Context, batchID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("batch_id = ?", batchID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (r *enrollmentRepository) Delete(ctx context.Context, batchID, studentID uint) error {
	result := r.db.WithContext(ctx).
		Where("batch_id = ? AND student_id = ?", batchID, studentID).
		Delete(&models.Enrollment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
