package models

import "time"

// Submission is the answer file a student uploaded for an exam. One row per
// (exam, student); re-uploads during the window overwrite the stored file
// reference in place.
type Submission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ExamID    uint      `gorm:"not null;index;uniqueIndex:idx_submissions_exam_student" json:"exam_id"`
	StudentID uint      `gorm:"not null;index;uniqueIndex:idx_submissions_exam_student" json:"student_id"`
	FileURL   string    `gorm:"size:512;not null" json:"file_url"`
	FileName  string    `gorm:"size:255" json:"file_name"`
	FileSize  int64     `json:"file_size"`
	PublicID  string    `gorm:"size:255" json:"-"`
	Exam      *Exam     `gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE" json:"exam,omitempty"`
	Student   *User     `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"student,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
