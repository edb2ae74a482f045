package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// CourseRepository persists courses and their batches.
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id uint) (models.Course, error)
	GetByCode(ctx context.Context, code string) (models.Course, error)
	ListByCreator(ctx context.Context, teacherID uint) ([]models.Course, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Course, error)
	Delete(ctx context.Context, id uint) error
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs the course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) GetByCode(ctx context.Context, code string) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&course).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) ListByCreator(ctx context.Context, teacherID uint) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).
		Where("created_by = ?", teacherID).
		Order("created_at DESC").
		Find(&courses).Error; err != nil {
		return nil, err
	}

	return courses, nil
}

func (r *courseRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(&course).Updates(updates).Error; err != nil {
			return models.Course{}, err
		}
	}

	return course, nil
}

func (r *courseRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Course{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
