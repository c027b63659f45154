package dto

import (
	"time"

	"github.com/noah-isme/school-points-api/internal/models"
)

// BackupResponse serializes backup metadata.
type BackupResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBackupResponse converts a backup model into a DTO.
func NewBackupResponse(backup models.Backup) BackupResponse {
	return BackupResponse{ID: backup.ID, Filename: backup.Filename, CreatedAt: backup.CreatedAt}
}

// RestoreResult reports how many rows were inserted per collection. Rows that
// matched an existing business key are counted under the Reused fields instead.
type RestoreResult struct {
	Students         int `json:"students"`
	Evaluations      int `json:"evaluations"`
	Users            int `json:"users"`
	Categories       int `json:"categories"`
	ReusedStudents   int `json:"reused_students"`
	ReusedUsers      int `json:"reused_users"`
	ReusedCategories int `json:"reused_categories"`
}

// ClearResult reports how many rows a clearing operation removed.
type ClearResult struct {
	Students    int64 `json:"students"`
	Evaluations int64 `json:"evaluations"`
	Categories  int64 `json:"categories"`
	AuditLogs   int64 `json:"audit_logs"`
}

// AdvanceResult reports the outcome of the year-end rollover.
type AdvanceResult struct {
	BackupID           string `json:"backup_id"`
	GradesAdvanced     int64  `json:"grades_advanced"`
	GraduatesDeleted   int64  `json:"graduates_deleted"`
	NotEnrolledDeleted int64  `json:"not_enrolled_deleted"`
	EvaluationsCleared int64  `json:"evaluations_cleared"`
	AuditLogsCleared   int64  `json:"audit_logs_cleared"`
}

// PurgeTaggedRequest names the test-isolation tag to purge.
type PurgeTaggedRequest struct {
	E2ETag string `json:"e2e_tag" validate:"required,max=128"`
}
