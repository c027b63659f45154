package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/school-points-api/internal/models"
)

// CategoryRepository persists point categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.PointCategory, error)
	GetByID(ctx context.Context, id string) (models.PointCategory, error)
	GetByName(ctx context.Context, name string) (models.PointCategory, error)
	Create(ctx context.Context, category *models.PointCategory) error
	Save(ctx context.Context, category *models.PointCategory) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	DeleteByTag(ctx context.Context, tag string) (int64, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository constructs a category repository.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) List(ctx context.Context) ([]models.PointCategory, error) {
	var categories []models.PointCategory
	if err := r.db.WithContext(ctx).Order("LOWER(name) ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (models.PointCategory, error) {
	var category models.PointCategory
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return models.PointCategory{}, err
	}
	return category, nil
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (models.PointCategory, error) {
	var category models.PointCategory
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		return models.PointCategory{}, err
	}
	return category, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.PointCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) Save(ctx context.Context, category *models.PointCategory) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PointCategory{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *categoryRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.PointCategory{})
	return result.RowsAffected, result.Error
}

func (r *categoryRepository) DeleteByTag(ctx context.Context, tag string) (int64, error) {
	result := r.db.WithContext(ctx).Where("e2e_tag = ?", tag).Delete(&models.PointCategory{})
	return result.RowsAffected, result.Error
}
