package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/school-points-api/internal/models"
)

// AuditLogFilter narrows audit trail queries.
type AuditLogFilter struct {
	Limit       int
	Action      string
	PerformerID string
	TargetTable string
}

// AuditLogRepository persists audit trail entries.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, error)
	DeleteByTargetTables(ctx context.Context, tables ...string) (int64, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository constructs the audit log repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditLogRepository) List(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLog{})

	if filter.PerformerID != "" {
		query = query.Where("performer_id = ?", filter.PerformerID)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	if filter.TargetTable != "" {
		query = query.Where("target_table = ?", filter.TargetTable)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entries []models.AuditLog
	if err := query.Order("timestamp DESC").Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *auditLogRepository) DeleteByTargetTables(ctx context.Context, tables ...string) (int64, error) {
	if len(tables) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("target_table IN ?", tables).Delete(&models.AuditLog{})
	return result.RowsAffected, result.Error
}
