package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/school-points-api/internal/models"
)

// BackupRepository persists dataset snapshots.
type BackupRepository interface {
	List(ctx context.Context) ([]models.Backup, error)
	GetByID(ctx context.Context, id string) (models.Backup, error)
	Create(ctx context.Context, backup *models.Backup) error
	Delete(ctx context.Context, id string) error
}

type backupRepository struct {
	db *gorm.DB
}

// NewBackupRepository constructs a backup repository.
func NewBackupRepository(db *gorm.DB) BackupRepository {
	return &backupRepository{db: db}
}

// List returns backup metadata without the snapshot payload.
func (r *backupRepository) List(ctx context.Context) ([]models.Backup, error) {
	var backups []models.Backup
	err := r.db.WithContext(ctx).
		Select("id", "filename", "created_at").
		Order("created_at DESC").
		Find(&backups).Error
	if err != nil {
		return nil, err
	}
	return backups, nil
}

func (r *backupRepository) GetByID(ctx context.Context, id string) (models.Backup, error) {
	var backup models.Backup
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&backup).Error; err != nil {
		return models.Backup{}, err
	}
	return backup, nil
}

func (r *backupRepository) Create(ctx context.Context, backup *models.Backup) error {
	return r.db.WithContext(ctx).Create(backup).Error
}

func (r *backupRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Backup{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
