package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/models"
	"github.com/noah-isme/school-points-api/internal/observability"
	"github.com/noah-isme/school-points-api/internal/repository"
)

// Batch audit actions, recorded against the backups table so clearing
// operations never remove their own trail.
const (
	ActionCreateBackup     = "create_backup"
	ActionDeleteBackup     = "delete_backup"
	ActionImportBackup     = "import_backup"
	ActionRestoreBackup    = "restore_backup"
	ActionClearAllData     = "clear_all_data"
	ActionClearEvaluations = "clear_evaluations"
	ActionAdvanceGrades    = "advance_grades"
	ActionPurgeTagged      = "purge_tagged"
)

const backupTracerName = "github.com/noah-isme/school-points-api/internal/service/backup"

// BackupService implements the administrative batch operations.
type BackupService interface {
	Export(ctx context.Context, viewer *Viewer) (models.BackupSnapshot, error)
	Create(ctx context.Context, viewer *Viewer) (dto.BackupResponse, error)
	List(ctx context.Context, viewer *Viewer) ([]dto.BackupResponse, error)
	Get(ctx context.Context, viewer *Viewer, id string) (models.Backup, error)
	Delete(ctx context.Context, viewer *Viewer, id string) error
	Import(ctx context.Context, viewer *Viewer, filename string, payload []byte) (dto.BackupResponse, error)
	Restore(ctx context.Context, viewer *Viewer, id string) (dto.RestoreResult, error)
	ClearAll(ctx context.Context, viewer *Viewer) (dto.ClearResult, error)
	ClearEvaluations(ctx context.Context, viewer *Viewer) (dto.ClearResult, error)
	AdvanceYear(ctx context.Context, viewer *Viewer) (dto.AdvanceResult, error)
	PurgeTagged(ctx context.Context, viewer *Viewer, req dto.PurgeTaggedRequest) (dto.ClearResult, error)
}

type backupService struct {
	store     repository.Store
	audit     AuditRecorder
	reports   ReportInvalidator
	archiver  BackupArchiver
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewBackupService constructs the batch operations service. archiver may be nil.
func NewBackupService(store repository.Store, audit AuditRecorder, reports ReportInvalidator, archiver BackupArchiver, validate *validator.Validate, logger zerolog.Logger) BackupService {
	return &backupService{
		store:     store,
		audit:     audit,
		reports:   reports,
		archiver:  archiver,
		validator: validate,
		logger:    logger.With().Str("component", "backup_service").Logger(),
		now:       time.Now,
	}
}

func (s *backupService) Export(ctx context.Context, viewer *Viewer) (models.BackupSnapshot, error) {
	if err := requireAdmin(viewer); err != nil {
		return models.BackupSnapshot{}, err
	}
	return s.snapshot(ctx, s.store)
}

func (s *backupService) snapshot(ctx context.Context, tx repository.Store) (models.BackupSnapshot, error) {
	students, err := tx.Students().ListAll(ctx)
	if err != nil {
		return models.BackupSnapshot{}, fmt.Errorf("snapshot students: %w", err)
	}
	evaluations, err := tx.Evaluations().ListAll(ctx)
	if err != nil {
		return models.BackupSnapshot{}, fmt.Errorf("snapshot evaluations: %w", err)
	}
	users, err := tx.Users().List(ctx)
	if err != nil {
		return models.BackupSnapshot{}, fmt.Errorf("snapshot users: %w", err)
	}
	categories, err := tx.Categories().List(ctx)
	if err != nil {
		return models.BackupSnapshot{}, fmt.Errorf("snapshot categories: %w", err)
	}

	return models.BackupSnapshot{
		Students:    students,
		Evaluations: evaluations,
		Users:       users,
		Categories:  categories,
		ExportedAt:  s.now().UTC(),
	}, nil
}

// persistSnapshot captures the current data set as a new Backup row.
func (s *backupService) persistSnapshot(ctx context.Context, tx repository.Store, prefix string) (models.Backup, error) {
	snapshot, err := s.snapshot(ctx, tx)
	if err != nil {
		return models.Backup{}, err
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return models.Backup{}, fmt.Errorf("encode snapshot: %w", err)
	}

	backup := models.Backup{
		Filename:  fmt.Sprintf("%s-%s.json", prefix, snapshot.ExportedAt.Format("2006-01-02T15-04-05")),
		Data:      datatypes.JSON(payload),
		CreatedAt: snapshot.ExportedAt,
	}
	if err := tx.Backups().Create(ctx, &backup); err != nil {
		return models.Backup{}, fmt.Errorf("store backup: %w", err)
	}
	return backup, nil
}

func (s *backupService) Create(ctx context.Context, viewer *Viewer) (dto.BackupResponse, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.BackupResponse{}, err
	}

	ctx, span := s.startSpan(ctx, "backup.create")
	defer span.End()

	var (
		backup models.Backup
		entry  models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		var err error
		backup, err = s.persistSnapshot(ctx, tx, "backup")
		if err != nil {
			return err
		}
		entry, err = s.recordBatch(ctx, tx, viewer, ActionCreateBackup, backup.ID, map[string]string{"filename": backup.Filename})
		return err
	})
	if err != nil {
		return dto.BackupResponse{}, s.fail(span, "create_failed", err)
	}

	s.finishBatch(ctx, "create_backup", false, entry)
	s.archive(ctx, backup)
	return dto.NewBackupResponse(backup), nil
}

func (s *backupService) List(ctx context.Context, viewer *Viewer) ([]dto.BackupResponse, error) {
	if !viewer.Authenticated() {
		return []dto.BackupResponse{}, nil
	}

	backups, err := s.store.Backups().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	responses := make([]dto.BackupResponse, 0, len(backups))
	for _, backup := range backups {
		responses = append(responses, dto.NewBackupResponse(backup))
	}
	return responses, nil
}

func (s *backupService) Get(ctx context.Context, viewer *Viewer, id string) (models.Backup, error) {
	if err := requireAdmin(viewer); err != nil {
		return models.Backup{}, err
	}

	backup, err := s.store.Backups().GetByID(ctx, id)
	if err != nil {
		return models.Backup{}, notFound(err, ErrBackupNotFound, "load backup")
	}
	return backup, nil
}

func (s *backupService) Delete(ctx context.Context, viewer *Viewer, id string) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}

	var entry models.AuditLog
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		backup, err := tx.Backups().GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrBackupNotFound, "load backup")
		}
		if err := tx.Backups().Delete(ctx, backup.ID); err != nil {
			return notFound(err, ErrBackupNotFound, "delete backup")
		}
		entry, err = s.recordBatch(ctx, tx, viewer, ActionDeleteBackup, backup.ID, map[string]string{"filename": backup.Filename})
		return err
	})
	if err != nil {
		return err
	}

	s.finishBatch(ctx, "delete_backup", false, entry)
	return nil
}

func (s *backupService) Import(ctx context.Context, viewer *Viewer, filename string, payload []byte) (dto.BackupResponse, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.BackupResponse{}, err
	}

	snapshot, err := DecodeSnapshotFile(payload)
	if err != nil {
		return dto.BackupResponse{}, err
	}
	if snapshot.ExportedAt.IsZero() {
		snapshot.ExportedAt = s.now().UTC()
	}

	normalized, err := json.Marshal(snapshot)
	if err != nil {
		return dto.BackupResponse{}, fmt.Errorf("encode snapshot: %w", err)
	}

	name := strings.TrimSpace(filepath.Base(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = fmt.Sprintf("import-%s.json", s.now().UTC().Format("2006-01-02T15-04-05"))
	}

	backup := models.Backup{
		Filename:  name,
		Data:      datatypes.JSON(normalized),
		CreatedAt: s.now().UTC(),
	}

	var entry models.AuditLog
	err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		if err := tx.Backups().Create(ctx, &backup); err != nil {
			return fmt.Errorf("store backup: %w", err)
		}
		var err error
		entry, err = s.recordBatch(ctx, tx, viewer, ActionImportBackup, backup.ID, map[string]interface{}{
			"filename":    backup.Filename,
			"students":    len(snapshot.Students),
			"evaluations": len(snapshot.Evaluations),
		})
		return err
	})
	if err != nil {
		return dto.BackupResponse{}, err
	}

	s.finishBatch(ctx, "import_backup", false, entry)
	return dto.NewBackupResponse(backup), nil
}

// Restore re-inserts every snapshot record as a new row. Users, categories
// and students that already exist under the same business key are reused,
// and evaluations are pointed at the rows now holding their student and teacher.
func (s *backupService) Restore(ctx context.Context, viewer *Viewer, id string) (dto.RestoreResult, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.RestoreResult{}, err
	}

	ctx, span := s.startSpan(ctx, "backup.restore")
	span.SetAttributes(attribute.String("backup.id", id))
	defer span.End()

	var (
		result dto.RestoreResult
		entry  models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		backup, err := tx.Backups().GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrBackupNotFound, "load backup")
		}

		var snapshot models.BackupSnapshot
		if err := json.Unmarshal(backup.Data, &snapshot); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}

		result, err = restoreSnapshot(ctx, tx, snapshot)
		if err != nil {
			return err
		}

		entry, err = s.recordBatch(ctx, tx, viewer, ActionRestoreBackup, backup.ID, result)
		return err
	})
	if err != nil {
		return dto.RestoreResult{}, s.fail(span, "restore_failed", err)
	}

	span.SetAttributes(
		attribute.Int("backup.students", result.Students),
		attribute.Int("backup.evaluations", result.Evaluations),
	)
	s.finishBatch(ctx, "restore_backup", true, entry)
	return result, nil
}

func restoreSnapshot(ctx context.Context, tx repository.Store, snapshot models.BackupSnapshot) (dto.RestoreResult, error) {
	var result dto.RestoreResult

	userIDs := make(map[string]string, len(snapshot.Users))
	for _, user := range snapshot.Users {
		oldID := user.ID
		existing, err := tx.Users().GetByAuthID(ctx, user.AuthID)
		switch {
		case err == nil:
			userIDs[oldID] = existing.ID
			result.ReusedUsers++
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return dto.RestoreResult{}, fmt.Errorf("lookup user: %w", err)
		}
		user.ID = ""
		if err := tx.Users().Create(ctx, &user); err != nil {
			return dto.RestoreResult{}, fmt.Errorf("restore user: %w", err)
		}
		userIDs[oldID] = user.ID
		result.Users++
	}

	for _, category := range snapshot.Categories {
		_, err := tx.Categories().GetByName(ctx, category.Name)
		if err == nil {
			result.ReusedCategories++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RestoreResult{}, fmt.Errorf("lookup category: %w", err)
		}
		category.ID = ""
		if err := tx.Categories().Create(ctx, &category); err != nil {
			return dto.RestoreResult{}, fmt.Errorf("restore category: %w", err)
		}
		result.Categories++
	}

	studentIDs := make(map[string]string, len(snapshot.Students))
	for _, student := range snapshot.Students {
		oldID := student.ID
		existing, err := tx.Students().GetByStudentID(ctx, student.StudentID)
		switch {
		case err == nil:
			studentIDs[oldID] = existing.ID
			result.ReusedStudents++
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return dto.RestoreResult{}, fmt.Errorf("lookup student: %w", err)
		}
		if !validGrade(student.Grade) {
			return dto.RestoreResult{}, fmt.Errorf("%w: student %s has grade %d", ErrInvalidBackup, student.StudentID, student.Grade)
		}
		student.ID = ""
		if err := tx.Students().Create(ctx, &student); err != nil {
			return dto.RestoreResult{}, fmt.Errorf("restore student: %w", err)
		}
		studentIDs[oldID] = student.ID
		result.Students++
	}

	for _, evaluation := range snapshot.Evaluations {
		studentID, err := resolveRestoredID(ctx, studentIDs, evaluation.StudentID, func(ctx context.Context, id string) error {
			_, err := tx.Students().GetByID(ctx, id)
			return err
		})
		if err != nil {
			return dto.RestoreResult{}, fmt.Errorf("evaluation student %q: %w", evaluation.StudentID, err)
		}
		teacherID, err := resolveRestoredID(ctx, userIDs, evaluation.TeacherID, func(ctx context.Context, id string) error {
			_, err := tx.Users().GetByID(ctx, id)
			return err
		})
		if err != nil {
			return dto.RestoreResult{}, fmt.Errorf("evaluation teacher %q: %w", evaluation.TeacherID, err)
		}

		evaluation.ID = ""
		evaluation.StudentID = studentID
		evaluation.TeacherID = teacherID
		if err := tx.Evaluations().Create(ctx, &evaluation); err != nil {
			return dto.RestoreResult{}, fmt.Errorf("restore evaluation: %w", err)
		}
		result.Evaluations++
	}

	return result, nil
}

// resolveRestoredID maps a snapshot identifier onto a live row: first through
// the rows restored or reused in this run, then by looking the id up directly.
// An id that resolves to nothing makes the whole backup invalid.
func resolveRestoredID(ctx context.Context, mapped map[string]string, id string, lookup func(context.Context, string) error) (string, error) {
	if live, ok := mapped[id]; ok {
		return live, nil
	}
	if id == "" {
		return "", ErrInvalidBackup
	}
	err := lookup(ctx, id)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", ErrInvalidBackup
	default:
		return "", fmt.Errorf("lookup reference: %w", err)
	}
}

// ClearAll removes students, evaluations, categories and the audit history
// describing students and evaluations. Users and their history are kept.
func (s *backupService) ClearAll(ctx context.Context, viewer *Viewer) (dto.ClearResult, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.ClearResult{}, err
	}

	ctx, span := s.startSpan(ctx, "backup.clear_all")
	defer span.End()

	var (
		result dto.ClearResult
		entry  models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		var err error
		if result.Evaluations, err = tx.Evaluations().DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear evaluations: %w", err)
		}
		if result.Students, err = tx.Students().DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear students: %w", err)
		}
		if result.Categories, err = tx.Categories().DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear categories: %w", err)
		}
		if result.AuditLogs, err = tx.AuditLogs().DeleteByTargetTables(ctx, models.TableStudents, models.TableEvaluations); err != nil {
			return fmt.Errorf("clear audit logs: %w", err)
		}
		entry, err = s.recordBatch(ctx, tx, viewer, ActionClearAllData, "", result)
		return err
	})
	if err != nil {
		return dto.ClearResult{}, s.fail(span, "clear_all_failed", err)
	}

	s.finishBatch(ctx, "clear_all", true, entry)
	s.logger.Warn().Str("performer_id", viewer.ID).Int64("students", result.Students).Int64("evaluations", result.Evaluations).Msg("all data cleared")
	return result, nil
}

func (s *backupService) ClearEvaluations(ctx context.Context, viewer *Viewer) (dto.ClearResult, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.ClearResult{}, err
	}

	ctx, span := s.startSpan(ctx, "backup.clear_evaluations")
	defer span.End()

	var (
		result dto.ClearResult
		entry  models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		var err error
		if result.Evaluations, err = tx.Evaluations().DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear evaluations: %w", err)
		}
		if result.AuditLogs, err = tx.AuditLogs().DeleteByTargetTables(ctx, models.TableEvaluations); err != nil {
			return fmt.Errorf("clear audit logs: %w", err)
		}
		entry, err = s.recordBatch(ctx, tx, viewer, ActionClearEvaluations, "", result)
		return err
	})
	if err != nil {
		return dto.ClearResult{}, s.fail(span, "clear_evaluations_failed", err)
	}

	s.finishBatch(ctx, "clear_evaluations", true, entry)
	return result, nil
}

// AdvanceYear runs the year-end rollover. The steps are order-sensitive:
// graduates are removed before the remaining band is advanced.
func (s *backupService) AdvanceYear(ctx context.Context, viewer *Viewer) (dto.AdvanceResult, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.AdvanceResult{}, err
	}

	ctx, span := s.startSpan(ctx, "backup.advance_year")
	defer span.End()

	var (
		result dto.AdvanceResult
		backup models.Backup
		entry  models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		var err error
		backup, err = s.persistSnapshot(ctx, tx, "pre-advance")
		if err != nil {
			return err
		}
		result.BackupID = backup.ID

		if result.EvaluationsCleared, err = tx.Evaluations().DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear evaluations: %w", err)
		}
		if result.AuditLogsCleared, err = tx.AuditLogs().DeleteByTargetTables(ctx, models.TableEvaluations); err != nil {
			return fmt.Errorf("clear audit logs: %w", err)
		}
		if result.GraduatesDeleted, err = tx.Students().DeleteByGrade(ctx, models.MaxGrade); err != nil {
			return fmt.Errorf("delete graduates: %w", err)
		}
		if result.NotEnrolledDeleted, err = tx.Students().DeleteByStatus(ctx, models.StudentStatusNotEnrolled); err != nil {
			return fmt.Errorf("delete inactive students: %w", err)
		}
		if result.GradesAdvanced, err = tx.Students().AdvanceGrades(ctx, models.MinGrade, models.MaxGrade-1); err != nil {
			return fmt.Errorf("advance grades: %w", err)
		}

		entry, err = s.recordBatch(ctx, tx, viewer, ActionAdvanceGrades, backup.ID, result)
		return err
	})
	if err != nil {
		return dto.AdvanceResult{}, s.fail(span, "advance_failed", err)
	}

	span.SetAttributes(
		attribute.Int64("advance.grades_advanced", result.GradesAdvanced),
		attribute.Int64("advance.graduates_deleted", result.GraduatesDeleted),
		attribute.Int64("advance.evaluations_cleared", result.EvaluationsCleared),
	)
	s.finishBatch(ctx, "advance_year", true, entry)
	s.archive(ctx, backup)
	s.logger.Info().
		Str("backup_id", backup.ID).
		Int64("grades_advanced", result.GradesAdvanced).
		Int64("graduates_deleted", result.GraduatesDeleted).
		Int64("not_enrolled_deleted", result.NotEnrolledDeleted).
		Msg("academic year advanced")
	return result, nil
}

// PurgeTagged removes test data carrying the given tag, including evaluations of tagged students.
func (s *backupService) PurgeTagged(ctx context.Context, viewer *Viewer, req dto.PurgeTaggedRequest) (dto.ClearResult, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.ClearResult{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ClearResult{}, err
	}
	tag := strings.TrimSpace(req.E2ETag)

	var (
		result dto.ClearResult
		entry  models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		tagged, err := tx.Students().List(ctx, repository.StudentFilter{E2ETag: tag})
		if err != nil {
			return fmt.Errorf("list tagged students: %w", err)
		}
		ids := make([]string, 0, len(tagged))
		for _, student := range tagged {
			ids = append(ids, student.ID)
		}

		byStudent, err := tx.Evaluations().DeleteByStudents(ctx, ids)
		if err != nil {
			return fmt.Errorf("purge evaluations of tagged students: %w", err)
		}
		byTag, err := tx.Evaluations().DeleteByTag(ctx, tag)
		if err != nil {
			return fmt.Errorf("purge tagged evaluations: %w", err)
		}
		result.Evaluations = byStudent + byTag

		if result.Students, err = tx.Students().DeleteByTag(ctx, tag); err != nil {
			return fmt.Errorf("purge tagged students: %w", err)
		}
		if result.Categories, err = tx.Categories().DeleteByTag(ctx, tag); err != nil {
			return fmt.Errorf("purge tagged categories: %w", err)
		}

		entry, err = s.recordBatch(ctx, tx, viewer, ActionPurgeTagged, tag, result)
		return err
	})
	if err != nil {
		return dto.ClearResult{}, err
	}

	s.finishBatch(ctx, "purge_tagged", true, entry)
	return result, nil
}

func (s *backupService) recordBatch(ctx context.Context, tx repository.Store, viewer *Viewer, action, targetID string, value interface{}) (models.AuditLog, error) {
	return s.audit.Record(ctx, tx, AuditEntry{
		Action:      action,
		PerformerID: viewer.ID,
		TargetTable: models.TableBackups,
		TargetID:    targetID,
		NewValue:    value,
	})
}

func (s *backupService) finishBatch(ctx context.Context, operation string, dataChanged bool, entries ...models.AuditLog) {
	observability.BatchOperations().WithLabelValues(operation).Inc()
	s.audit.Publish(ctx, entries...)
	if dataChanged && s.reports != nil {
		s.reports.Invalidate(ctx)
	}
}

func (s *backupService) archive(ctx context.Context, backup models.Backup) {
	if s.archiver == nil {
		return
	}
	location, err := s.archiver.Upload(ctx, backup.Filename, bytes.NewReader(backup.Data))
	if err != nil {
		s.logger.Warn().Err(err).Str("backup_id", backup.ID).Msg("failed to archive backup off-site")
		return
	}
	s.logger.Info().Str("backup_id", backup.ID).Str("location", location).Msg("backup archived off-site")
}

func (s *backupService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(backupTracerName).Start(ctx, name)
}

func (s *backupService) fail(span trace.Span, status string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	return err
}
