package models

import "gorm.io/gorm"

// Evaluation is a single signed point award or deduction for a student.
// Category holds the category name, not a foreign key.
type Evaluation struct {
	ID          string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	StudentID   string  `gorm:"type:varchar(36);index;not null" json:"student_id"`
	TeacherID   string  `gorm:"type:varchar(36);index;not null" json:"teacher_id"`
	Value       int     `gorm:"not null" json:"value"`
	Category    string  `gorm:"size:255;index:idx_evaluations_category;not null" json:"category"`
	SubCategory string  `gorm:"size:255;index:idx_evaluations_category" json:"sub_category"`
	Details     string  `gorm:"type:text" json:"details"`
	Timestamp   int64   `gorm:"index;not null" json:"timestamp"`
	SemesterID  string  `gorm:"size:64" json:"semester_id"`
	E2ETag      *string `gorm:"column:e2e_tag;size:128;index" json:"e2e_tag,omitempty"`
}

// TableName keeps the collection name stable.
func (Evaluation) TableName() string {
	return "evaluations"
}

// BeforeCreate assigns an identifier when missing.
func (e *Evaluation) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
