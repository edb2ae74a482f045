package models

import "time"

// Roles recognised by the API. Every authenticated request carries exactly
// one of these in its token claims.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User is a platform account. The same table backs admins, teachers and
// students; Role decides which route groups accept the account's token.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:120;not null" json:"name"`
	Email        string    `gorm:"size:160;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:120;not null" json:"-"`
	Role         string    `gorm:"size:16;not null;default:student;index" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidRole reports whether r is one of the recognised role names.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}
