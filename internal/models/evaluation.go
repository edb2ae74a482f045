package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	// EvaluationStatusPending means the evaluatee has been assigned but no
	// marks have been submitted yet.
	EvaluationStatusPending = "pending"
	// EvaluationStatusCompleted means marks were submitted; the row is
	// immutable from then on.
	EvaluationStatusCompleted = "completed"
)

// Evaluation is one peer-marking task: Evaluator scores Evaluatee's
// submission for Exam. The (exam, evaluator, evaluatee) triple is unique so
// concurrent assignment runs cannot double-book a pair, and Marks always
// holds exactly one number per exam question.
type Evaluation struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ExamID      uint           `gorm:"not null;index;uniqueIndex:idx_evaluations_exam_pair" json:"exam_id"`
	EvaluatorID uint           `gorm:"not null;index;uniqueIndex:idx_evaluations_exam_pair" json:"evaluator_id"`
	EvaluateeID uint           `gorm:"not null;index;uniqueIndex:idx_evaluations_exam_pair" json:"evaluatee_id"`
	Marks       datatypes.JSON `gorm:"type:json" json:"marks,omitempty"`
	Feedback    string         `gorm:"type:text" json:"feedback,omitempty"`
	Status      string         `gorm:"size:16;not null;default:pending;index" json:"status"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Exam        *Exam          `gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE" json:"exam,omitempty"`
	Evaluator   *User          `gorm:"foreignKey:EvaluatorID" json:"evaluator,omitempty"`
	Evaluatee   *User          `gorm:"foreignKey:EvaluateeID" json:"evaluatee,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SetMarks stores the mark vector as JSON.
func (e *Evaluation) SetMarks(marks []float64) error {
	encoded, err := json.Marshal(marks)
	if err != nil {
		return err
	}
	e.Marks = datatypes.JSON(encoded)
	return nil
}

// MarkList decodes the stored mark vector. Pending rows hold the
// zero-initialised vector written at assignment time.
func (e *Evaluation) MarkList() []float64 {
	if len(e.Marks) == 0 {
		return nil
	}
	var marks []float64
	if err := json.Unmarshal(e.Marks, &marks); err != nil {
		return nil
	}
	return marks
}

// Completed reports whether marks have been submitted for this evaluation.
func (e *Evaluation) Completed() bool {
	return e.Status == EvaluationStatusCompleted
}

// Total sums the stored mark vector.
func (e *Evaluation) Total() float64 {
	var total float64
	for _, m := range e.MarkList() {
		total += m
	}
	return total
}
