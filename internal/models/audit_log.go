package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit target tables.
const (
	TableStudents    = "students"
	TableEvaluations = "evaluations"
	TableCategories  = "point_categories"
	TableUsers       = "users"
	TableBackups     = "backups"
)

// AuditLog is an append-only record of an administrative or teacher action.
type AuditLog struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Action      string         `gorm:"size:64;index;not null" json:"action"`
	PerformerID string         `gorm:"type:varchar(36);index" json:"performer_id"`
	TargetTable string         `gorm:"size:64;index;not null" json:"target_table"`
	TargetID    string         `gorm:"size:64" json:"target_id"`
	OldValue    datatypes.JSON `gorm:"type:json" json:"old_value"`
	NewValue    datatypes.JSON `gorm:"type:json" json:"new_value"`
	Timestamp   int64          `gorm:"index;not null" json:"timestamp"`
}

// TableName keeps the collection name stable.
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate assigns an identifier when missing.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
