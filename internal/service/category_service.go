package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/models"
	"github.com/noah-isme/school-points-api/internal/repository"
)

// CategoryService implements the point category catalog.
type CategoryService interface {
	List(ctx context.Context, viewer *Viewer) ([]dto.CategoryResponse, error)
	Create(ctx context.Context, viewer *Viewer, req dto.CategoryRequest) (dto.CategoryResponse, error)
	Update(ctx context.Context, viewer *Viewer, id string, req dto.CategoryRequest) (dto.CategoryResponse, error)
	Remove(ctx context.Context, viewer *Viewer, id string) (int64, error)
	EvaluationCount(ctx context.Context, viewer *Viewer, id string) (int64, error)
	SubCategoryEvaluationCount(ctx context.Context, viewer *Viewer, id, subCategory string) (int64, error)
}

type categoryService struct {
	store     repository.Store
	audit     AuditRecorder
	reports   ReportInvalidator
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCategoryService constructs the category catalog service.
func NewCategoryService(store repository.Store, audit AuditRecorder, reports ReportInvalidator, validate *validator.Validate, logger zerolog.Logger) CategoryService {
	return &categoryService{
		store:     store,
		audit:     audit,
		reports:   reports,
		validator: validate,
		logger:    logger.With().Str("component", "category_service").Logger(),
	}
}

func (s *categoryService) List(ctx context.Context, viewer *Viewer) ([]dto.CategoryResponse, error) {
	if !viewer.Authenticated() {
		return []dto.CategoryResponse{}, nil
	}

	categories, err := s.store.Categories().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	responses := make([]dto.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		responses = append(responses, dto.NewCategoryResponse(category))
	}
	return responses, nil
}

func (s *categoryService) Create(ctx context.Context, viewer *Viewer, req dto.CategoryRequest) (dto.CategoryResponse, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.CategoryResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.CategoryResponse{}, err
	}

	category := models.PointCategory{
		Name:          strings.TrimSpace(req.Name),
		SubCategories: models.CleanLabels(req.SubCategories),
		E2ETag:        trimmedPtr(req.E2ETag),
	}

	var entry models.AuditLog
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		if err := ensureCategoryNameFree(ctx, tx, category.Name, ""); err != nil {
			return err
		}
		if err := tx.Categories().Create(ctx, &category); err != nil {
			return fmt.Errorf("create category: %w", err)
		}

		var err error
		entry, err = s.audit.Record(ctx, tx, AuditEntry{
			Action:      ActionCreateCategory,
			PerformerID: viewer.ID,
			TargetTable: models.TableCategories,
			TargetID:    category.ID,
			NewValue:    category,
		})
		return err
	})
	if err != nil {
		return dto.CategoryResponse{}, err
	}

	s.audit.Publish(ctx, entry)
	return dto.NewCategoryResponse(category), nil
}

// Update replaces the name and sub-category list. Evaluations keep the
// category name they were recorded with.
func (s *categoryService) Update(ctx context.Context, viewer *Viewer, id string, req dto.CategoryRequest) (dto.CategoryResponse, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.CategoryResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.CategoryResponse{}, err
	}

	var (
		saved models.PointCategory
		entry models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		category, err := tx.Categories().GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrCategoryNotFound, "load category")
		}
		before := category

		name := strings.TrimSpace(req.Name)
		if name != category.Name {
			if err := ensureCategoryNameFree(ctx, tx, name, category.ID); err != nil {
				return err
			}
		}
		category.Name = name
		category.SubCategories = models.CleanLabels(req.SubCategories)

		if err := tx.Categories().Save(ctx, &category); err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		saved = category

		entry, err = s.audit.Record(ctx, tx, AuditEntry{
			Action:      ActionUpdateCategory,
			PerformerID: viewer.ID,
			TargetTable: models.TableCategories,
			TargetID:    category.ID,
			OldValue:    before,
			NewValue:    category,
		})
		return err
	})
	if err != nil {
		return dto.CategoryResponse{}, err
	}

	s.audit.Publish(ctx, entry)
	return dto.NewCategoryResponse(saved), nil
}

// Remove deletes every evaluation recorded under the category name, then the category.
func (s *categoryService) Remove(ctx context.Context, viewer *Viewer, id string) (int64, error) {
	if err := requireAdmin(viewer); err != nil {
		return 0, err
	}

	var (
		deleted int64
		entry   models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		category, err := tx.Categories().GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrCategoryNotFound, "load category")
		}

		deleted, err = tx.Evaluations().DeleteByCategory(ctx, category.Name)
		if err != nil {
			return fmt.Errorf("delete evaluations: %w", err)
		}
		if err := tx.Categories().Delete(ctx, category.ID); err != nil {
			return notFound(err, ErrCategoryNotFound, "delete category")
		}

		entry, err = s.audit.Record(ctx, tx, AuditEntry{
			Action:      ActionDeleteCategory,
			PerformerID: viewer.ID,
			TargetTable: models.TableCategories,
			TargetID:    category.ID,
			OldValue:    category,
			NewValue:    map[string]int64{"deleted_evaluations": deleted},
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	s.audit.Publish(ctx, entry)
	if s.reports != nil {
		s.reports.Invalidate(ctx)
	}
	s.logger.Info().Str("category_id", id).Int64("evaluations", deleted).Msg("category removed")
	return deleted, nil
}

func (s *categoryService) EvaluationCount(ctx context.Context, viewer *Viewer, id string) (int64, error) {
	if !viewer.Authenticated() {
		return 0, nil
	}

	category, err := s.store.Categories().GetByID(ctx, id)
	if err != nil {
		return 0, notFound(err, ErrCategoryNotFound, "load category")
	}
	count, err := s.store.Evaluations().CountByCategory(ctx, category.Name)
	if err != nil {
		return 0, fmt.Errorf("count evaluations: %w", err)
	}
	return count, nil
}

func (s *categoryService) SubCategoryEvaluationCount(ctx context.Context, viewer *Viewer, id, subCategory string) (int64, error) {
	if !viewer.Authenticated() {
		return 0, nil
	}

	category, err := s.store.Categories().GetByID(ctx, id)
	if err != nil {
		return 0, notFound(err, ErrCategoryNotFound, "load category")
	}
	count, err := s.store.Evaluations().CountBySubCategory(ctx, category.Name, strings.TrimSpace(subCategory))
	if err != nil {
		return 0, fmt.Errorf("count evaluations: %w", err)
	}
	return count, nil
}

func ensureCategoryNameFree(ctx context.Context, tx repository.Store, name, selfID string) error {
	existing, err := tx.Categories().GetByName(ctx, name)
	if err == nil && existing.ID != selfID {
		return ErrCategoryExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup category name: %w", err)
	}
	return nil
}
