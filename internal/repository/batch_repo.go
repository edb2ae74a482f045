package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// BatchRepository persists course batches.
type BatchRepository interface {
	Create(ctx context.Context, batch *models.Batch) error
	GetByID(ctx context.Context, id uint) (models.Batch, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Batch, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Batch, error)
	Delete(ctx context.Context, id uint) error
}

type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository constructs the batch repository.
func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, batch *models.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *batchRepository) GetByID(ctx context.Context, id uint) (models.Batch, error) {
	var batch models.Batch
	if err := r.db.WithContext(ctx).Preload("Course").First(&batch, id).Error; err != nil {
		return models.Batch{}, err
	}

	return batch, nil
}

func (r *batchRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Batch, error) {
	var batches []models.Batch
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("name ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}

	return batches, nil
}

func (r *batchRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Batch, error) {
	var batch models.Batch
	if err := r.db.WithContext(ctx).First(&batch, id).Error; err != nil {
		return models.Batch{}, err
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(&batch).Updates(updates).Error; err != nil {
			return models.Batch{}, err
		}
	}

	return batch, nil
}

func (r *batchRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Batch{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
