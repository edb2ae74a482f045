package models

import "time"

// TeacherCourse links a teacher to the course batch they teach. Admins manage
// these rows; teachers may only operate on batches they are linked to.
type TeacherCourse struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeacherID uint      `gorm:"not null;index;uniqueIndex:idx_teacher_course_batch" json:"teacher_id"`
	CourseID  uint      `gorm:"not null;index;uniqueIndex:idx_teacher_course_batch" json:"course_id"`
	BatchID   uint      `gorm:"not null;index;uniqueIndex:idx_teacher_course_batch" json:"batch_id"`
	Teacher   *User     `gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE" json:"teacher,omitempty"`
	Course    *Course   `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Batch     *Batch    `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"batch,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Enrollment places a student in a batch. A student appears at most once per
// batch.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BatchID   uint      `gorm:"not null;index;uniqueIndex:idx_enrollments_batch_student" json:"batch_id"`
	StudentID uint      `gorm:"not null;index;uniqueIndex:idx_enrollments_batch_student" json:"student_id"`
	Batch     *Batch    `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"batch,omitempty"`
	Student   *User     `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"student,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
