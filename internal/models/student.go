package models

import "gorm.io/gorm"

// Student enrollment states.
const (
	StudentStatusEnrolled    = "Enrolled"
	StudentStatusNotEnrolled = "Not Enrolled"
)

// Grade bounds accepted by the registry.
const (
	MinGrade = 7
	MaxGrade = 12
)

// Student represents a learner who can receive point evaluations.
type Student struct {
	ID          string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	EnglishName string  `gorm:"size:255;not null" json:"english_name"`
	ChineseName string  `gorm:"size:255" json:"chinese_name"`
	StudentID   string  `gorm:"size:64;uniqueIndex;not null" json:"student_id"`
	Grade       int     `gorm:"index;not null" json:"grade"`
	Status      string  `gorm:"size:32;index;not null" json:"status"`
	Note        *string `gorm:"type:text" json:"note,omitempty"`
	E2ETag      *string `gorm:"column:e2e_tag;size:128;index" json:"e2e_tag,omitempty"`
}

// TableName keeps the collection name stable.
func (Student) TableName() string {
	return "students"
}

// BeforeCreate assigns an identifier when missing.
func (s *Student) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// IsEnrolled reports whether the student is currently enrolled.
func (s Student) IsEnrolled() bool {
	return s.Status == StudentStatusEnrolled
}

// ValidStudentStatus reports whether value is a known enrollment state.
func ValidStudentStatus(value string) bool {
	return value == StudentStatusEnrolled || value == StudentStatusNotEnrolled
}
