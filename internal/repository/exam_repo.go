package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peerval-go-api/internal/models"
)

// ExamRepository persists exams and their questions.
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (models.Exam, error)
	ListByCreator(ctx context.Context, teacherID uint) ([]models.Exam, error)
	ListByBatches(ctx context.Context, batchIDs []uint) ([]models.Exam, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Exam, error)
	// Delete removes the exam together with its questions, submissions and
	// evaluations in one transaction.
	Delete(ctx context.Context, id uint) error

	GetQuestion(ctx context.Context, examID uint, number int) (models.Question, error)
	UpdateQuestion(ctx context.Context, examID uint, number int, updates map[string]interface{}) (models.Question, error)
	ReplaceQuestions(ctx context.Context, examID uint, questions []models.Question) error
}

type examRepository struct {
	db *gorm.DB
}

// NewExamRepository constructs the exam repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) Create(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Create(exam).Error
}

func (r *examRepository) GetByID(ctx context.Context, id uint) (models.Exam, error) {
	var exam models.Exam
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Preload("Course").
		Preload("Batch").
		First(&exam, id).Error; err != nil {
		return models.Exam{}, err
	}

	return exam, nil
}

func (r *examRepository) ListByCreator(ctx context.Context, teacherID uint) ([]models.Exam, error) {
	var exams []models.Exam
	if err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Batch").
		Where("created_by = ?", teacherID).
		Order("start_time DESC").
		Find(&exams).Error; err != nil {
		return nil, err
	}

	return exams, nil
}

func (r *examRepository) ListByBatches(ctx context.Context, batchIDs []uint) ([]models.Exam, error) {
	if len(batchIDs) == 0 {
		return nil, nil
	}

	var exams []models.Exam
	if err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Batch").
		Where("batch_id IN ?", batchIDs).
		Order("start_time ASC").
		Find(&exams).Error; err != nil {
		return nil, err
	}

	return exams, nil
}

func (r *examRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Exam, error) {
	var exam models.Exam
	if err := r.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return models.Exam{}, err
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(&exam).Updates(updates).Error; err != nil {
			return models.Exam{}, err
		}
	}

	return exam, nil
}

func (r *examRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", id).Delete(&models.Evaluation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("exam_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("exam_id = ?", id).Delete(&models.Question{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Exam{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}

func (r *examRepository) GetQuestion(ctx context.Context, examID uint, number int) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).
		Where("exam_id = ? AND number = ?", examID, number).
		First(&question).Error; err != nil {
		return models.Question{}, err
	}

	return question, nil
}

func (r *examRepository) UpdateQuestion(ctx context.Context, examID uint, number int, updates map[string]interface{}) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).
		Where("exam_id = ? AND number = ?", examID, number).
		First(&question).Error; err != nil {
		return models.Question{}, err
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(&question).Updates(updates).Error; err != nil {
			return models.Question{}, err
		}
	}

	return question, nil
}

func (r *examRepository) ReplaceQuestions(ctx context.Context, examID uint, questions []models.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", examID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}

		return tx.Create(&questions).Error
	})
}
