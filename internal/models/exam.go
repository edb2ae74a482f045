package models

import "time"

// Exam is an assessment scheduled for one batch of a course. NumQuestions
// fixes the length of every mark vector recorded against the exam, and
// EvaluationsPerStudent is how many peers each submitting student is asked
// to evaluate once the window closes.
type Exam struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	CourseID              uint       `gorm:"not null;index" json:"course_id"`
	BatchID               uint       `gorm:"not null;index" json:"batch_id"`
	CreatedBy             uint       `gorm:"not null;index" json:"created_by"`
	Title                 string     `gorm:"size:160;not null" json:"title"`
	NumQuestions          int        `gorm:"not null" json:"num_questions"`
	EvaluationsPerStudent int        `gorm:"not null" json:"evaluations_per_student"`
	StartTime             time.Time  `gorm:"not null" json:"start_time"`
	EndTime               time.Time  `gorm:"not null" json:"end_time"`
	Course                *Course    `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Batch                 *Batch     `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"batch,omitempty"`
	Questions             []Question `gorm:"foreignKey:ExamID" json:"questions,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Open reports whether t falls inside the submission window.
func (e *Exam) Open(t time.Time) bool {
	return !t.Before(e.StartTime) && t.Before(e.EndTime)
}

// Ended reports whether the submission window has closed at t.
func (e *Exam) Ended(t time.Time) bool {
	return !t.Before(e.EndTime)
}

// Question is one scored item of an exam. Rows are created as placeholders
// when the exam is created and edited individually afterwards; Number is the
// 1-based position shown to evaluators.
type Question struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ExamID    uint      `gorm:"not null;index;uniqueIndex:idx_questions_exam_number" json:"exam_id"`
	Number    int       `gorm:"not null;uniqueIndex:idx_questions_exam_number" json:"number"`
	Text      string    `gorm:"size:512" json:"text"`
	MaxMarks  float64   `gorm:"not null;default:10" json:"max_marks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
