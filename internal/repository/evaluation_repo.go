package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/peerval-go-api/internal/models"
	"github.com/noah-isme/peerval-go-api/internal/peereval"
)

// EvaluationFilter narrows evaluation listings for one evaluator.
type EvaluationFilter struct {
	ExamID *uint
	Status string
}

// EvaluationRepository persists peer evaluation tasks.
type EvaluationRepository interface {
	// CreateBatch inserts the given evaluations, silently skipping rows whose
	// (exam, evaluator, evaluatee) triple already exists. It returns how many
	// rows were actually inserted, so concurrent assignment runs converge on
	// one row per pair.
	CreateBatch(ctx context.Context, evaluations []models.Evaluation) (int64, error)
	// ExistingPairs returns every (evaluator, evaluatee) pair already
	// recorded for the exam.
	ExistingPairs(ctx context.Context, examID uint) ([]peereval.Pair, error)
	GetByID(ctx context.Context, id uint) (models.Evaluation, error)
	ListByEvaluator(ctx context.Context, evaluatorID uint, filter EvaluationFilter) ([]models.Evaluation, error)
	ListByExam(ctx context.Context, examID uint) ([]models.Evaluation, error)
	Update(ctx context.Context, evaluation *models.Evaluation) error
	// CountByExam reports how many evaluations exist for the exam and how
	// many of them are completed.
	CountByExam(ctx context.Context, examID uint) (total int64, completed int64, err error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository constructs the evaluation repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) CreateBatch(ctx context.Context, evaluations []models.Evaluation) (int64, error) {
	if len(evaluations) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "exam_id"}, {Name: "evaluator_id"}, {Name: "evaluatee_id"}},
			DoNothing: true,
		}).
		Create(&evaluations)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

func (r *evaluationRepository) ExistingPairs(ctx context.Context, examID uint) ([]peereval.Pair, error) {
	var rows []struct {
		EvaluatorID uint
		EvaluateeID uint
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Select("evaluator_id", "evaluatee_id").
		Where("exam_id = ?", examID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	pairs := make([]peereval.Pair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, peereval.Pair{Evaluator: row.EvaluatorID, Evaluatee: row.EvaluateeID})
	}

	return pairs, nil
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.db.WithContext(ctx).
		Preload("Exam").
		Preload("Evaluatee").
		First(&evaluation, id).Error; err != nil {
		return models.Evaluation{}, err
	}

	return evaluation, nil
}

func (r *evaluationRepository) ListByEvaluator(ctx context.Context, evaluatorID uint, filter EvaluationFilter) ([]models.Evaluation, error) {
	query := r.db.WithContext(ctx).
		Preload("Exam").
		Preload("Evaluatee").
		Where("evaluator_id = ?", evaluatorID)

	if filter.ExamID != nil {
		query = query.Where("exam_id = ?", *filter.ExamID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var evaluations []models.Evaluation
	if err := query.Order("created_at ASC").Find(&evaluations).Error; err != nil {
		return nil, err
	}

	return evaluations, nil
}

func (r *evaluationRepository) ListByExam(ctx context.Context, examID uint) ([]models.Evaluation, error) {
	var evaluations []models.Evaluation
	if err := r.db.WithContext(ctx).
		Preload("Evaluator").
		Preload("Evaluatee").
		Where("exam_id = ?", examID).
		Order("evaluatee_id ASC").
		Find(&evaluations).Error; err != nil {
		return nil, err
	}

	return evaluations, nil
}

func (r *evaluationRepository) Update(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Save(evaluation).Error
}

func (r *evaluationRepository) CountByExam(ctx context.Context, examID uint) (int64, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("exam_id = ?", examID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}

	var completed int64
	if err := r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("exam_id = ? AND status = ?", examID, models.EvaluationStatusCompleted).
		Count(&completed).Error; err != nil {
		return 0, 0, err
	}

	return total, completed, nil
}
