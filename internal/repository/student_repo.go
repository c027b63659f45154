package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/school-points-api/internal/models"
)

// StudentFilter narrows student listings.
type StudentFilter struct {
	Search string
	Status string
	Grade  *int
	E2ETag string
}

// StudentRepository persists student records.
type StudentRepository interface {
	List(ctx context.Context, filter StudentFilter) ([]models.Student, error)
	ListAll(ctx context.Context) ([]models.Student, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Student, error)
	GetByID(ctx context.Context, id string) (models.Student, error)
	GetByStudentID(ctx context.Context, studentID string) (models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Save(ctx context.Context, student *models.Student) error
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	DeleteByGrade(ctx context.Context, grade int) (int64, error)
	DeleteByStatus(ctx context.Context, status string) (int64, error)
	DeleteByTag(ctx context.Context, tag string) (int64, error)
	AdvanceGrades(ctx context.Context, minGrade, maxGrade int) (int64, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) List(ctx context.Context, filter StudentFilter) ([]models.Student, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(english_name) LIKE ? OR LOWER(chinese_name) LIKE ? OR LOWER(student_id) LIKE ?", like, like, like)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if filter.Grade != nil {
		query = query.Where("grade = ?", *filter.Grade)
	}

	if filter.E2ETag != "" {
		query = query.Where("e2e_tag = ?", filter.E2ETag)
	}

	var students []models.Student
	if err := query.Order("LOWER(english_name) ASC").Order("student_id ASC").Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.WithContext(ctx).Order("student_id ASC").Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *studentRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return []models.Student{}, nil
	}
	var students []models.Student
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&student).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) GetByStudentID(ctx context.Context, studentID string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&student).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepository) Save(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

func (r *studentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).Model(&models.Student{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *studentRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Student{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *studentRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Student{})
	return result.RowsAffected, result.Error
}

func (r *studentRepository) DeleteByGrade(ctx context.Context, grade int) (int64, error) {
	result := r.db.WithContext(ctx).Where("grade = ?", grade).Delete(&models.Student{})
	return result.RowsAffected, result.Error
}

func (r *studentRepository) DeleteByStatus(ctx context.Context, status string) (int64, error) {
	result := r.db.WithContext(ctx).Where("status = ?", status).Delete(&models.Student{})
	return result.RowsAffected, result.Error
}

func (r *studentRepository) DeleteByTag(ctx context.Context, tag string) (int64, error) {
	result := r.db.WithContext(ctx).Where("e2e_tag = ?", tag).Delete(&models.Student{})
	return result.RowsAffected, result.Error
}

// AdvanceGrades moves every enrolled student in [minGrade, maxGrade] up one grade.
func (r *studentRepository) AdvanceGrades(ctx context.Context, minGrade, maxGrade int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("status = ?", models.StudentStatusEnrolled).
		Where("grade BETWEEN ? AND ?", minGrade, maxGrade).
		UpdateColumn("grade", gorm.Expr("grade + ?", 1))
	return result.RowsAffected, result.Error
}
