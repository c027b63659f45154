package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Backup stores a full snapshot of the core collections.
type Backup struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Filename  string         `gorm:"size:255;not null" json:"filename"`
	Data      datatypes.JSON `gorm:"type:json" json:"data,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// TableName keeps the collection name stable.
func (Backup) TableName() string {
	return "backups"
}

// BeforeCreate assigns an identifier when missing.
func (b *Backup) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// BackupSnapshot is the payload embedded in a Backup.
type BackupSnapshot struct {
	Students    []Student       `json:"students"`
	Evaluations []Evaluation    `json:"evaluations"`
	Users       []User          `json:"users"`
	Categories  []PointCategory `json:"categories"`
	ExportedAt  time.Time       `json:"exported_at"`
}

// AllModels lists every persisted model for migrations.
func AllModels() []interface{} {
	return []interface{}{
		&Student{},
		&PointCategory{},
		&Evaluation{},
		&User{},
		&AuditLog{},
		&Backup{},
	}
}
