package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// TeachingFilter narrows teaching assignment listings.
type TeachingFilter struct {
	TeacherID *uint
	CourseID  *uint
	BatchID   *uint
}

// TeachingRepository persists teacher-to-batch assignments.
type TeachingRepository interface {
	Create(ctx context.Context, assignment *models.TeacherCourse) error
	GetByID(ctx context.Context, id uint) (models.TeacherCourse, error)
	List(ctx context.Context, filter TeachingFilter) ([]models.TeacherCourse, error)
	Exists(ctx context.Context, teacherID, courseID, batchID uint) (bool, error)
	ExistsForBatch(ctx context.Context, teacherID, batchID uint) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type teachingRepository struct {
	db *gorm.DB
}

// NewTeachingRepository constructs the teaching assignment repository.
func NewTeachingRepository(db *gorm.DB) TeachingRepository {
	return &teachingRepository{db: db}
}

func (r *teachingRepository) Create(ctx context.Context, assignment *models.TeacherCourse) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *teachingRepository) GetByID(ctx context.Context, id uint) (models.TeacherCourse, error) {
	var assignment models.TeacherCourse
	if err := r.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Course").
		Preload("Batch").
		First(&assignment, id).Error; err != nil {
		return models.TeacherCourse{}, err
	}

	return assignment, nil
}

func (r *teachingRepository) List(ctx context.Context, filter TeachingFilter) ([]models.TeacherCourse, error) {
	query := r.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Course").
		Preload("Batch")

	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}

	var assignments []models.TeacherCourse
	if err := query.Order("created_at DESC").Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *teachingRepository) Exists(ctx context.Context, teacherID, courseID, batchID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TeacherCourse{}).
		Where("teacher_id = ? AND course_id = ? AND batch_id = ?", teacherID, courseID, batchID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *teachingRepository) ExistsForBatch(ctx context.Context, teacherID, batchID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TeacherCourse{}).
		Where("teacher_id = ? AND batch_id = ?", teacherID, batchID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *teachingRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.TeacherCourse{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
