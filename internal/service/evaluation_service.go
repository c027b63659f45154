package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/models"
	"github.com/noah-isme/school-points-api/internal/observability"
	"github.com/noah-isme/school-points-api/internal/repository"
)

// EvaluationService implements the evaluation ledger.
type EvaluationService interface {
	Create(ctx context.Context, viewer *Viewer, req dto.EvaluationCreateRequest) ([]string, error)
	Remove(ctx context.Context, viewer *Viewer, id string) error
	ListRecent(ctx context.Context, viewer *Viewer, limit int) ([]dto.EvaluationResponse, error)
	StudentEvaluationsByTeacher(ctx context.Context, viewer *Viewer, studentID string) ([]dto.EvaluationResponse, error)
	StudentEvaluationsAll(ctx context.Context, viewer *Viewer, studentID string) ([]dto.EvaluationResponse, error)
}

type evaluationService struct {
	store       repository.Store
	audit       AuditRecorder
	reports     ReportInvalidator
	validator   *validator.Validate
	sanitizer   textSanitizer
	recentLimit int
	logger      zerolog.Logger
	now         func() int64
}

// NewEvaluationService constructs the ledger service.
func NewEvaluationService(store repository.Store, audit AuditRecorder, reports ReportInvalidator, validate *validator.Validate, recentLimit int, logger zerolog.Logger) EvaluationService {
	if recentLimit <= 0 {
		recentLimit = 20
	}
	return &evaluationService{
		store:       store,
		audit:       audit,
		reports:     reports,
		validator:   validate,
		sanitizer:   newTextSanitizer(),
		recentLimit: recentLimit,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		now:         models.NowMillis,
	}
}

// Create inserts one evaluation per listed student, all stamped with the same server time.
func (s *evaluationService) Create(ctx context.Context, viewer *Viewer, req dto.EvaluationCreateRequest) ([]string, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	studentIDs := uniqueStrings(req.StudentIDs)
	categoryName := strings.TrimSpace(req.Category)
	subCategory := strings.TrimSpace(req.SubCategory)
	details := s.sanitizer.Clean(req.Details)
	timestamp := s.now()

	ids := make([]string, 0, len(studentIDs))
	entries := make([]models.AuditLog, 0, len(studentIDs))
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		category, err := tx.Categories().GetByName(ctx, categoryName)
		if err != nil {
			return notFound(err, ErrCategoryNotFound, "load category")
		}
		if subCategory != "" && len(category.SubCategories) > 0 && !category.HasSubCategory(subCategory) {
			return ErrSubCategoryNotFound
		}

		students, err := tx.Students().ListByIDs(ctx, studentIDs)
		if err != nil {
			return fmt.Errorf("load students: %w", err)
		}
		if len(students) != len(studentIDs) {
			return ErrStudentNotFound
		}

		for _, studentID := range studentIDs {
			evaluation := models.Evaluation{
				StudentID:   studentID,
				TeacherID:   viewer.ID,
				Value:       req.Value,
				Category:    category.Name,
				SubCategory: subCategory,
				Details:     details,
				Timestamp:   timestamp,
				SemesterID:  strings.TrimSpace(req.SemesterID),
				E2ETag:      trimmedPtr(req.E2ETag),
			}
			if err := tx.Evaluations().Create(ctx, &evaluation); err != nil {
				return fmt.Errorf("create evaluation: %w", err)
			}

			entry, err := s.audit.Record(ctx, tx, AuditEntry{
				Action:      ActionCreateEvaluation,
				PerformerID: viewer.ID,
				TargetTable: models.TableEvaluations,
				TargetID:    evaluation.ID,
				NewValue:    evaluation,
			})
			if err != nil {
				return err
			}
			ids = append(ids, evaluation.ID)
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.EvaluationsRecorded().Add(float64(len(ids)))
	s.afterMutation(ctx, entries...)
	s.logger.Info().Str("teacher_id", viewer.ID).Int("count", len(ids)).Str("category", categoryName).Msg("evaluations recorded")
	return ids, nil
}

// Remove deletes a single evaluation. Teachers may only remove their own rows.
func (s *evaluationService) Remove(ctx context.Context, viewer *Viewer, id string) error {
	if err := requireViewer(viewer); err != nil {
		return err
	}

	var entry models.AuditLog
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		evaluation, err := tx.Evaluations().GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrEvaluationNotFound, "load evaluation")
		}
		if evaluation.TeacherID != viewer.ID && !viewer.IsAdmin() {
			return ErrForbiddenOwner
		}

		if err := tx.Evaluations().Delete(ctx, evaluation.ID); err != nil {
			return notFound(err, ErrEvaluationNotFound, "delete evaluation")
		}

		entry, err = s.audit.Record(ctx, tx, AuditEntry{
			Action:      ActionDeleteEvaluation,
			PerformerID: viewer.ID,
			TargetTable: models.TableEvaluations,
			TargetID:    evaluation.ID,
			OldValue:    evaluation,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, entry)
	return nil
}

func (s *evaluationService) ListRecent(ctx context.Context, viewer *Viewer, limit int) ([]dto.EvaluationResponse, error) {
	if !viewer.Authenticated() {
		return []dto.EvaluationResponse{}, nil
	}
	if limit <= 0 {
		limit = s.recentLimit
	}

	evaluations, err := s.store.Evaluations().List(ctx, repository.EvaluationFilter{TeacherID: viewer.ID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return s.enrich(ctx, evaluations)
}

func (s *evaluationService) StudentEvaluationsByTeacher(ctx context.Context, viewer *Viewer, studentID string) ([]dto.EvaluationResponse, error) {
	if !viewer.Authenticated() {
		return []dto.EvaluationResponse{}, nil
	}

	evaluations, err := s.store.Evaluations().List(ctx, repository.EvaluationFilter{StudentID: studentID, TeacherID: viewer.ID})
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return s.enrich(ctx, evaluations)
}

func (s *evaluationService) StudentEvaluationsAll(ctx context.Context, viewer *Viewer, studentID string) ([]dto.EvaluationResponse, error) {
	if !viewer.IsAdmin() {
		return []dto.EvaluationResponse{}, nil
	}

	evaluations, err := s.store.Evaluations().List(ctx, repository.EvaluationFilter{StudentID: studentID})
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return s.enrich(ctx, evaluations)
}

func (s *evaluationService) enrich(ctx context.Context, evaluations []models.Evaluation) ([]dto.EvaluationResponse, error) {
	studentIDs := make([]string, 0, len(evaluations))
	teacherIDs := make([]string, 0, len(evaluations))
	for _, evaluation := range evaluations {
		studentIDs = append(studentIDs, evaluation.StudentID)
		teacherIDs = append(teacherIDs, evaluation.TeacherID)
	}

	students, err := s.store.Students().ListByIDs(ctx, uniqueStrings(studentIDs))
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	teachers, err := s.store.Users().ListByIDs(ctx, uniqueStrings(teacherIDs))
	if err != nil {
		return nil, fmt.Errorf("load teachers: %w", err)
	}

	studentByID := make(map[string]*models.Student, len(students))
	for i := range students {
		studentByID[students[i].ID] = &students[i]
	}
	teacherByID := make(map[string]*models.User, len(teachers))
	for i := range teachers {
		teacherByID[teachers[i].ID] = &teachers[i]
	}

	responses := make([]dto.EvaluationResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		responses = append(responses, dto.NewEvaluationResponse(evaluation, studentByID[evaluation.StudentID], teacherByID[evaluation.TeacherID]))
	}
	return responses, nil
}

func (s *evaluationService) afterMutation(ctx context.Context, entries ...models.AuditLog) {
	s.audit.Publish(ctx, entries...)
	if s.reports != nil {
		s.reports.Invalidate(ctx)
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
