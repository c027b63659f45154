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

// StudentService implements the student registry.
type StudentService interface {
	List(ctx context.Context, viewer *Viewer, req dto.StudentListRequest) ([]dto.StudentResponse, error)
	Get(ctx context.Context, viewer *Viewer, id string) (*dto.StudentResponse, error)
	Exists(ctx context.Context, viewer *Viewer, studentID string) (bool, error)
	EvaluationCount(ctx context.Context, viewer *Viewer, id string) (int64, error)
	Create(ctx context.Context, viewer *Viewer, req dto.StudentCreateRequest) (dto.StudentResponse, error)
	Update(ctx context.Context, viewer *Viewer, id string, req dto.StudentUpdateRequest) (dto.StudentResponse, error)
	Remove(ctx context.Context, viewer *Viewer, id string) error
	RemoveWithCascade(ctx context.Context, viewer *Viewer, id string) (dto.StudentCascadeResult, error)
	ChangeStatus(ctx context.Context, viewer *Viewer, id, status string) (dto.StudentResponse, error)
	Disable(ctx context.Context, viewer *Viewer, id string) (dto.StudentResponse, error)
}

type studentService struct {
	store     repository.Store
	audit     AuditRecorder
	reports   ReportInvalidator
	validator *validator.Validate
	sanitizer textSanitizer
	logger    zerolog.Logger
}

// NewStudentService constructs the student registry service.
func NewStudentService(store repository.Store, audit AuditRecorder, reports ReportInvalidator, validate *validator.Validate, logger zerolog.Logger) StudentService {
	return &studentService{
		store:     store,
		audit:     audit,
		reports:   reports,
		validator: validate,
		sanitizer: newTextSanitizer(),
		logger:    logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) List(ctx context.Context, viewer *Viewer, req dto.StudentListRequest) ([]dto.StudentResponse, error) {
	if !viewer.Authenticated() {
		return []dto.StudentResponse{}, nil
	}

	students, err := s.store.Students().List(ctx, repository.StudentFilter{
		Search: req.Search,
		Status: strings.TrimSpace(req.Status),
		Grade:  req.Grade,
	})
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return dto.NewStudentResponseSlice(students), nil
}

func (s *studentService) Get(ctx context.Context, viewer *Viewer, id string) (*dto.StudentResponse, error) {
	if !viewer.Authenticated() {
		return nil, nil
	}

	student, err := s.store.Students().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStudentNotFound, "load student")
	}
	response := dto.NewStudentResponse(student)
	return &response, nil
}

func (s *studentService) Exists(ctx context.Context, viewer *Viewer, studentID string) (bool, error) {
	if !viewer.Authenticated() {
		return false, nil
	}

	_, err := s.store.Students().GetByStudentID(ctx, strings.TrimSpace(studentID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("lookup student id: %w", err)
}

func (s *studentService) EvaluationCount(ctx context.Context, viewer *Viewer, id string) (int64, error) {
	if !viewer.Authenticated() {
		return 0, nil
	}
	count, err := s.store.Evaluations().CountByStudent(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("count evaluations: %w", err)
	}
	return count, nil
}

func (s *studentService) Create(ctx context.Context, viewer *Viewer, req dto.StudentCreateRequest) (dto.StudentResponse, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.StudentResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}
	if !validGrade(req.Grade) {
		return dto.StudentResponse{}, ErrInvalidGrade
	}

	status := req.Status
	if status == "" {
		status = models.StudentStatusEnrolled
	}

	candidate := models.Student{
		EnglishName: strings.TrimSpace(req.EnglishName),
		ChineseName: strings.TrimSpace(req.ChineseName),
		StudentID:   strings.TrimSpace(req.StudentID),
		Grade:       req.Grade,
		Status:      status,
		Note:        s.sanitizer.CleanPtr(req.Note),
		E2ETag:      trimmedPtr(req.E2ETag),
	}

	var (
		saved models.Student
		entry models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		existing, err := tx.Students().GetByStudentID(ctx, candidate.StudentID)
		switch {
		case err == nil:
			if !req.Upsert {
				return ErrStudentIDExists
			}
			before := existing
			existing.EnglishName = candidate.EnglishName
			existing.ChineseName = candidate.ChineseName
			existing.Grade = candidate.Grade
			existing.Status = candidate.Status
			existing.Note = candidate.Note
			if err := tx.Students().Save(ctx, &existing); err != nil {
				return fmt.Errorf("upsert student: %w", err)
			}
			saved = existing
			entry, err = s.audit.Record(ctx, tx, AuditEntry{
				Action:      ActionUpdateStudent,
				PerformerID: viewer.ID,
				TargetTable: models.TableStudents,
				TargetID:    saved.ID,
				OldValue:    before,
				NewValue:    saved,
			})
			return err
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("lookup student id: %w", err)
		}

		saved = candidate
		if err := tx.Students().Create(ctx, &saved); err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		entry, err = s.audit.Record(ctx, tx, AuditEntry{
			Action:      ActionCreateStudent,
			PerformerID: viewer.ID,
			TargetTable: models.TableStudents,
			TargetID:    saved.ID,
			NewValue:    saved,
		})
		return err
	})
	if err != nil {
		return dto.StudentResponse{}, err
	}

	s.afterMutation(ctx, entry)
	return dto.NewStudentResponse(saved), nil
}

func (s *studentService) Update(ctx context.Context, viewer *Viewer, id string, req dto.StudentUpdateRequest) (dto.StudentResponse, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.StudentResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}
	if req.Grade != nil && !validGrade(*req.Grade) {
		return dto.StudentResponse{}, ErrInvalidGrade
	}

	var (
		saved models.Student
		entry models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		student, err := tx.Students().GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrStudentNotFound, "load student")
		}
		before := student

		if req.StudentID != nil {
			code := strings.TrimSpace(*req.StudentID)
			if code != student.StudentID {
				other, err := tx.Students().GetByStudentID(ctx, code)
				if err == nil && other.ID != student.ID {
					return ErrStudentIDExists
				}
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("lookup student id: %w", err)
				}
				student.StudentID = code
			}
		}
		if req.EnglishName != nil {
			student.EnglishName = strings.TrimSpace(*req.EnglishName)
		}
		if req.ChineseName != nil {
			student.ChineseName = strings.TrimSpace(*req.ChineseName)
		}
		if req.Grade != nil {
			student.Grade = *req.Grade
		}
		if req.Status != nil {
			student.Status = *req.Status
		}
		if req.Note != nil {
			student.Note = s.sanitizer.CleanPtr(req.Note)
		}

		if err := tx.Students().Save(ctx, &student); err != nil {
			return fmt.Errorf("update student: %w", err)
		}
		saved = student

		entry, err = s.audit.Record(ctx, tx, AuditEntry{
			Action:      ActionUpdateStudent,
			PerformerID: viewer.ID,
			TargetTable: models.TableStudents,
			TargetID:    student.ID,
			OldValue:    before,
			NewValue:    student,
		})
		return err
	})
	if err != nil {
		return dto.StudentResponse{}, err
	}

	s.afterMutation(ctx, entry)
	return dto.NewStudentResponse(saved), nil
}

func (s *studentService) Remove(ctx context.Context, viewer *Viewer, id string) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}

	var entry models.AuditLog
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		student, err := tx.Students().GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrStudentNotFound, "load student")
		}

		count, err := tx.Evaluations().CountByStudent(ctx, student.ID)
		if err != nil {
			return fmt.Errorf("count evaluations: %w", err)
		}
		if count > 0 {
			return ErrStudentHasEvaluations
		}

		if err := tx.Students().Delete(ctx, student.ID); err != nil {
			return notFound(err, ErrStudentNotFound, "delete student")
		}

		entry, err = s.audit.Record(ctx, tx, AuditEntry{
			Action:      ActionDeleteStudent,
			PerformerID: viewer.ID,
			TargetTable: models.TableStudents,
			TargetID:    student.ID,
			OldValue:    student,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, entry)
	return nil
}

func (s *studentService) RemoveWithCascade(ctx context.Context, viewer *Viewer, id string) (dto.StudentCascadeResult, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.StudentCascadeResult{}, err
	}

	var (
		result dto.StudentCascadeResult
		entry  models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		student, err := tx.Students().GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrStudentNotFound, "load student")
		}

		deleted, err := tx.Evaluations().DeleteByStudent(ctx, student.ID)
		if err != nil {
			return fmt.Errorf("delete evaluations: %w", err)
		}
		if err := tx.Students().Delete(ctx, student.ID); err != nil {
			return notFound(err, ErrStudentNotFound, "delete student")
		}

		result = dto.StudentCascadeResult{DeletedStudent: true, DeletedEvaluations: deleted}
		entry, err = s.audit.Record(ctx, tx, AuditEntry{
			Action:      ActionDeleteStudentCascade,
			PerformerID: viewer.ID,
			TargetTable: models.TableStudents,
			TargetID:    student.ID,
			OldValue:    student,
			NewValue:    result,
		})
		return err
	})
	if err != nil {
		return dto.StudentCascadeResult{}, err
	}

	s.afterMutation(ctx, entry)
	s.logger.Info().Str("student_id", id).Int64("evaluations", result.DeletedEvaluations).Msg("student removed with cascade")
	return result, nil
}

func (s *studentService) ChangeStatus(ctx context.Context, viewer *Viewer, id, status string) (dto.StudentResponse, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.StudentResponse{}, err
	}
	if !models.ValidStudentStatus(status) {
		return dto.StudentResponse{}, ErrInvalidStatus
	}

	var (
		saved models.Student
		entry models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		student, err := tx.Students().GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrStudentNotFound, "load student")
		}
		previous := student.Status

		if err := tx.Students().UpdateStatus(ctx, student.ID, status); err != nil {
			return notFound(err, ErrStudentNotFound, "update status")
		}
		student.Status = status
		saved = student

		entry, err = s.audit.Record(ctx, tx, AuditEntry{
			Action:      ActionChangeStudentStatus,
			PerformerID: viewer.ID,
			TargetTable: models.TableStudents,
			TargetID:    student.ID,
			OldValue:    map[string]string{"status": previous},
			NewValue:    map[string]string{"status": status},
		})
		return err
	})
	if err != nil {
		return dto.StudentResponse{}, err
	}

	s.afterMutation(ctx, entry)
	return dto.NewStudentResponse(saved), nil
}

func (s *studentService) Disable(ctx context.Context, viewer *Viewer, id string) (dto.StudentResponse, error) {
	return s.ChangeStatus(ctx, viewer, id, models.StudentStatusNotEnrolled)
}

func (s *studentService) afterMutation(ctx context.Context, entries ...models.AuditLog) {
	s.audit.Publish(ctx, entries...)
	if s.reports != nil {
		s.reports.Invalidate(ctx)
	}
}

func validGrade(grade int) bool {
	return grade >= models.MinGrade && grade <= models.MaxGrade
}
