package models

import "time"

// Course is a unit of study owned by the teacher who created it.
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:32;not null;uniqueIndex" json:"code"`
	Title     string    `gorm:"size:160;not null" json:"title"`
	CreatedBy uint      `gorm:"not null;index" json:"created_by"`
	Creator   *User     `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Batch is a cohort of students taking a course together. Batch names are
// unique within their course.
type Batch struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;index;uniqueIndex:idx_batches_course_name" json:"course_id"`
	Name      string    `gorm:"size:80;not null;uniqueIndex:idx_batches_course_name" json:"name"`
	Course    *Course   `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
