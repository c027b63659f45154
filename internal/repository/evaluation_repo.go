package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/school-points-api/internal/models"
)

// EvaluationFilter narrows ledger queries.
type EvaluationFilter struct {
	StudentID string
	TeacherID string
	Category  string
	// Window bounds are exclusive epoch milliseconds; zero disables a bound.
	After  int64
	Before int64
	Limit  int
}

// EvaluationRepository persists ledger rows.
type EvaluationRepository interface {
	List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, error)
	ListAll(ctx context.Context) ([]models.Evaluation, error)
	GetByID(ctx context.Context, id string) (models.Evaluation, error)
	Create(ctx context.Context, evaluation *models.Evaluation) error
	Delete(ctx context.Context, id string) error
	CountByStudent(ctx context.Context, studentID string) (int64, error)
	CountByCategory(ctx context.Context, category string) (int64, error)
	CountBySubCategory(ctx context.Context, category, subCategory string) (int64, error)
	DeleteByStudent(ctx context.Context, studentID string) (int64, error)
	DeleteByStudents(ctx context.Context, studentIDs []string) (int64, error)
	DeleteByCategory(ctx context.Context, category string) (int64, error)
	DeleteByTag(ctx context.Context, tag string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository constructs an evaluation repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, error) {
	query := r.db.WithContext(ctx).Model(&models.Evaluation{})

	if filter.StudentID != "" {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.TeacherID != "" {
		query = query.Where("teacher_id = ?", filter.TeacherID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.After > 0 {
		query = query.Where("timestamp > ?", filter.After)
	}
	if filter.Before > 0 {
		query = query.Where("timestamp < ?", filter.Before)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var evaluations []models.Evaluation
	if err := query.Order("timestamp DESC").Find(&evaluations).Error; err != nil {
		return nil, err
	}
	return evaluations, nil
}

func (r *evaluationRepository) ListAll(ctx context.Context) ([]models.Evaluation, error) {
	var evaluations []models.Evaluation
	if err := r.db.WithContext(ctx).Order("timestamp ASC").Find(&evaluations).Error; err != nil {
		return nil, err
	}
	return evaluations, nil
}

func (r *evaluationRepository) GetByID(ctx context.Context, id string) (models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&evaluation).Error; err != nil {
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *evaluationRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Evaluation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *evaluationRepository) CountByStudent(ctx context.Context, studentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Evaluation{}).Where("student_id = ?", studentID).Count(&count).Error
	return count, err
}

func (r *evaluationRepository) CountByCategory(ctx context.Context, category string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Evaluation{}).Where("category = ?", category).Count(&count).Error
	return count, err
}

func (r *evaluationRepository) CountBySubCategory(ctx context.Context, category, subCategory string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("category = ? AND sub_category = ?", category, subCategory).
		Count(&count).Error
	return count, err
}

func (r *evaluationRepository) DeleteByStudent(ctx context.Context, studentID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("student_id = ?", studentID).Delete(&models.Evaluation{})
	return result.RowsAffected, result.Error
}

func (r *evaluationRepository) DeleteByStudents(ctx context.Context, studentIDs []string) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("student_id IN ?", studentIDs).Delete(&models.Evaluation{})
	return result.RowsAffected, result.Error
}

func (r *evaluationRepository) DeleteByCategory(ctx context.Context, category string) (int64, error) {
	result := r.db.WithContext(ctx).Where("category = ?", category).Delete(&models.Evaluation{})
	return result.RowsAffected, result.Error
}

func (r *evaluationRepository) DeleteByTag(ctx context.Context, tag string) (int64, error) {
	result := r.db.WithContext(ctx).Where("e2e_tag = ?", tag).Delete(&models.Evaluation{})
	return result.RowsAffected, result.Error
}

func (r *evaluationRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Evaluation{})
	return result.RowsAffected, result.Error
}
