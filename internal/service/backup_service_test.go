package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/models"
)

type recordingArchiver struct {
	names    []string
	payloads [][]byte
	err      error
}

func (a *recordingArchiver) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	payload, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	a.names = append(a.names, name)
	a.payloads = append(a.payloads, payload)
	return "archive://" + name, nil
}

func newBackupServiceForTest(f *fixture, archiver BackupArchiver) BackupService {
	return NewBackupService(f.store, f.audit, nil, archiver, f.validate, testLogger())
}

func TestBackupServiceAdvanceYear(t *testing.T) {
	f := newFixture(t)
	archiver := &recordingArchiver{}
	svc := newBackupServiceForTest(f, archiver)
	ctx := context.Background()

	seven := f.seedStudent(t, "S07", "Seven", 7, models.StudentStatusEnrolled)
	eleven := f.seedStudent(t, "S11", "Eleven", 11, models.StudentStatusEnrolled)
	f.seedStudent(t, "S12", "Twelve", 12, models.StudentStatusEnrolled)
	f.seedStudent(t, "S12N", "Twelve Inactive", 12, models.StudentStatusNotEnrolled)
	f.seedStudent(t, "S10N", "Ten Inactive", 10, models.StudentStatusNotEnrolled)
	f.seedEvaluation(t, seven.ID, f.teacher.ID, "Behaviour", 1, 100)
	f.seedEvaluation(t, eleven.ID, f.teacher.ID, "Behaviour", 1, 200)
	_, err := f.audit.Record(ctx, nil, AuditEntry{Action: ActionCreateEvaluation, PerformerID: f.teacher.ID, TargetTable: models.TableEvaluations})
	require.NoError(t, err)

	result, err := svc.AdvanceYear(ctx, f.admin)
	require.NoError(t, err)
	require.EqualValues(t, 2, result.GradesAdvanced)
	require.EqualValues(t, 2, result.GraduatesDeleted)
	require.EqualValues(t, 1, result.NotEnrolledDeleted)
	require.EqualValues(t, 2, result.EvaluationsCleared)
	require.EqualValues(t, 1, result.AuditLogsCleared)

	var students []models.Student
	require.NoError(t, f.db.Order("student_id ASC").Find(&students).Error)
	require.Len(t, students, 2)
	require.Equal(t, "S07", students[0].StudentID)
	require.Equal(t, 8, students[0].Grade)
	require.Equal(t, "S11", students[1].StudentID)
	require.Equal(t, 12, students[1].Grade)
	require.Zero(t, f.count(t, &models.Evaluation{}))

	var backups []models.Backup
	require.NoError(t, f.db.Find(&backups).Error)
	require.Len(t, backups, 1)
	require.Equal(t, result.BackupID, backups[0].ID)

	var snapshot models.BackupSnapshot
	require.NoError(t, json.Unmarshal(backups[0].Data, &snapshot))
	require.Len(t, snapshot.Students, 5)
	require.Len(t, snapshot.Evaluations, 2)

	require.Len(t, archiver.names, 1)
	require.Equal(t, backups[0].Filename, archiver.names[0])
}

func TestBackupServiceRoundTrip(t *testing.T) {
	f := newFixture(t)
	svc := newBackupServiceForTest(f, nil)
	ctx := context.Background()

	f.seedCategory(t, "Behaviour", "Helping", "Respect")
	alice := f.seedStudent(t, "S001", "Alice", 8, models.StudentStatusEnrolled)
	bella := f.seedStudent(t, "S002", "Bella", 9, models.StudentStatusEnrolled)
	f.seedEvaluation(t, alice.ID, f.teacher.ID, "Behaviour", 2, 100)
	f.seedEvaluation(t, bella.ID, f.teacher.ID, "Behaviour", 1, 200)

	exported, err := svc.Export(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, exported.Students, 2)
	require.Len(t, exported.Users, 2)

	backup, err := svc.Create(ctx, f.admin)
	require.NoError(t, err)

	cleared, err := svc.ClearAll(ctx, f.admin)
	require.NoError(t, err)
	require.EqualValues(t, 2, cleared.Students)
	require.EqualValues(t, 2, cleared.Evaluations)
	require.EqualValues(t, 1, cleared.Categories)
	require.EqualValues(t, 2, f.count(t, &models.User{}))

	result, err := svc.Restore(ctx, f.admin, backup.ID)
	require.NoError(t, err)
	require.Equal(t, dto.RestoreResult{Students: 2, Evaluations: 2, Categories: 1, ReusedUsers: 2}, result)

	require.EqualValues(t, 2, f.count(t, &models.Student{}))
	require.EqualValues(t, 2, f.count(t, &models.Evaluation{}))
	require.EqualValues(t, 2, f.count(t, &models.User{}))
	require.EqualValues(t, 1, f.count(t, &models.PointCategory{}))

	var restored models.Student
	require.NoError(t, f.db.Where("student_id = ?", "S001").First(&restored).Error)
	require.NotEqual(t, alice.ID, restored.ID)

	var evaluation models.Evaluation
	require.NoError(t, f.db.Where("student_id = ?", restored.ID).First(&evaluation).Error)
	require.Equal(t, 2, evaluation.Value)
	require.Equal(t, f.teacher.ID, evaluation.TeacherID)

	var category models.PointCategory
	require.NoError(t, f.db.First(&category).Error)
	require.Equal(t, []string{"Helping", "Respect"}, category.SubCategories)

	_, err = svc.Restore(ctx, f.admin, "missing")
	require.ErrorIs(t, err, ErrBackupNotFound)
	require.Equal(t, "Backup not found", err.Error())
}

func TestBackupServiceClearEvaluationsKeepsOtherAudit(t *testing.T) {
	f := newFixture(t)
	svc := newBackupServiceForTest(f, nil)
	ctx := context.Background()

	student := f.seedStudent(t, "S001", "Alice", 8, models.StudentStatusEnrolled)
	f.seedEvaluation(t, student.ID, f.teacher.ID, "Behaviour", 2, 100)
	_, err := f.audit.Record(ctx, nil, AuditEntry{Action: ActionCreateEvaluation, PerformerID: f.teacher.ID, TargetTable: models.TableEvaluations})
	require.NoError(t, err)
	_, err = f.audit.Record(ctx, nil, AuditEntry{Action: ActionCreateStudent, PerformerID: f.admin.ID, TargetTable: models.TableStudents})
	require.NoError(t, err)

	result, err := svc.ClearEvaluations(ctx, f.admin)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.Evaluations)
	require.EqualValues(t, 1, result.AuditLogs)
	require.EqualValues(t, 1, f.count(t, &models.Student{}))
	require.Equal(t, []string{ActionCreateStudent, ActionClearEvaluations}, f.auditActions(t))
}

func TestBackupServiceRoleGating(t *testing.T) {
	f := newFixture(t)
	svc := newBackupServiceForTest(f, nil)
	ctx := context.Background()
	f.seedStudent(t, "S001", "Alice", 8, models.StudentStatusEnrolled)

	_, err := svc.Create(ctx, f.teacher)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ClearAll(ctx, f.teacher)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.AdvanceYear(ctx, f.teacher)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Export(ctx, f.teacher)
	require.ErrorIs(t, err, ErrForbidden)

	require.EqualValues(t, 1, f.count(t, &models.Student{}))
	require.Zero(t, f.count(t, &models.Backup{}))

	backups, err := svc.List(ctx, f.teacher)
	require.NoError(t, err)
	require.Empty(t, backups)

	backups, err = svc.List(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, backups)
}

func TestBackupServiceListAndDelete(t *testing.T) {
	f := newFixture(t)
	archiver := &recordingArchiver{err: errors.New("bucket unavailable")}
	svc := newBackupServiceForTest(f, archiver)
	ctx := context.Background()

	backup, err := svc.Create(ctx, f.admin)
	require.NoError(t, err)

	listed, err := svc.List(ctx, f.teacher)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, backup.ID, listed[0].ID)

	full, err := svc.Get(ctx, f.admin, backup.ID)
	require.NoError(t, err)
	require.NotEmpty(t, full.Data)

	require.NoError(t, svc.Delete(ctx, f.admin, backup.ID))
	require.ErrorIs(t, svc.Delete(ctx, f.admin, backup.ID), ErrBackupNotFound)
}

func TestBackupServiceImport(t *testing.T) {
	f := newFixture(t)
	svc := newBackupServiceForTest(f, nil)
	ctx := context.Background()

	valid := []byte(`{
		"students": [{"id": "old-1", "english_name": "Amy", "student_id": "S100", "grade": 9, "status": "Enrolled"}],
		"evaluations": [{"student_id": "old-1", "teacher_id": "old-t", "value": 3, "category": "Behaviour", "timestamp": 1700000000000}],
		"users": [{"id": "old-t", "auth_id": "auth-teacher", "name": "Tom", "role": "teacher", "status": "active"}],
		"categories": [{"name": "Behaviour", "sub_categories": ["Helping"]}]
	}`)

	imported, err := svc.Import(ctx, f.admin, "../../snapshot.json", valid)
	require.NoError(t, err)
	require.Equal(t, "snapshot.json", imported.Filename)

	result, err := svc.Restore(ctx, f.admin, imported.ID)
	require.NoError(t, err)
	require.Equal(t, 1, result.Evaluations)

	var evaluation models.Evaluation
	require.NoError(t, f.db.First(&evaluation).Error)
	require.Equal(t, f.teacher.ID, evaluation.TeacherID)

	_, err = svc.Import(ctx, f.admin, "bad.json", []byte(`{"students": []}`))
	require.ErrorIs(t, err, ErrInvalidBackup)

	_, err = svc.Import(ctx, f.admin, "bad.png", append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...))
	require.ErrorIs(t, err, ErrInvalidBackup)

	_, err = svc.Import(ctx, f.teacher, "snapshot.json", valid)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestBackupServiceRestoreRejectsBrokenSnapshots(t *testing.T) {
	f := newFixture(t)
	svc := newBackupServiceForTest(f, nil)
	ctx := context.Background()

	outOfRange := []byte(`{
		"students": [{"id": "old-1", "english_name": "Amy", "student_id": "S100", "grade": 99, "status": "Enrolled"}],
		"evaluations": [], "users": [], "categories": []
	}`)
	_, err := svc.Import(ctx, f.admin, "grade.json", outOfRange)
	require.ErrorIs(t, err, ErrInvalidBackup)

	orphan := []byte(`{
		"students": [{"id": "old-1", "english_name": "Amy", "student_id": "S100", "grade": 9, "status": "Enrolled"}],
		"evaluations": [{"student_id": "ghost", "teacher_id": "nobody", "value": 1, "category": "Behaviour", "timestamp": 1700000000000}],
		"users": [], "categories": []
	}`)
	imported, err := svc.Import(ctx, f.admin, "orphan.json", orphan)
	require.NoError(t, err)

	_, err = svc.Restore(ctx, f.admin, imported.ID)
	require.ErrorIs(t, err, ErrInvalidBackup)
	require.Zero(t, f.count(t, &models.Student{}))
	require.Zero(t, f.count(t, &models.Evaluation{}))

	// Stored backups bypass the import schema, so restore checks grades itself.
	stored := models.Backup{Filename: "stored.json", Data: datatypes.JSON(outOfRange)}
	require.NoError(t, f.db.Create(&stored).Error)
	_, err = svc.Restore(ctx, f.admin, stored.ID)
	require.ErrorIs(t, err, ErrInvalidBackup)
	require.Zero(t, f.count(t, &models.Student{}))
}

func TestBackupServiceRestoreCountsReusedRows(t *testing.T) {
	f := newFixture(t)
	svc := newBackupServiceForTest(f, nil)
	ctx := context.Background()

	f.seedCategory(t, "Behaviour")
	alice := f.seedStudent(t, "S001", "Alice", 8, models.StudentStatusEnrolled)
	f.seedEvaluation(t, alice.ID, f.teacher.ID, "Behaviour", 1, 100)

	backup, err := svc.Create(ctx, f.admin)
	require.NoError(t, err)

	result, err := svc.Restore(ctx, f.admin, backup.ID)
	require.NoError(t, err)
	require.Equal(t, dto.RestoreResult{Evaluations: 1, ReusedStudents: 1, ReusedUsers: 2, ReusedCategories: 1}, result)
	require.EqualValues(t, 1, f.count(t, &models.Student{}))
	require.EqualValues(t, 2, f.count(t, &models.Evaluation{}))
}

func TestBackupServicePurgeTagged(t *testing.T) {
	f := newFixture(t)
	svc := newBackupServiceForTest(f, nil)
	ctx := context.Background()
	tag := "run-42"

	tagged := models.Student{EnglishName: "Tagged", StudentID: "T1", Grade: 8, Status: models.StudentStatusEnrolled, E2ETag: &tag}
	require.NoError(t, f.db.Create(&tagged).Error)
	kept := f.seedStudent(t, "K1", "Kept", 8, models.StudentStatusEnrolled)
	f.seedEvaluation(t, tagged.ID, f.teacher.ID, "Behaviour", 1, 100)
	f.seedEvaluation(t, kept.ID, f.teacher.ID, "Behaviour", 1, 200)
	taggedEval := models.Evaluation{StudentID: kept.ID, TeacherID: f.teacher.ID, Value: 1, Category: "Behaviour", Timestamp: 300, E2ETag: &tag}
	require.NoError(t, f.db.Create(&taggedEval).Error)
	taggedCategory := models.PointCategory{Name: "E2E", E2ETag: &tag}
	require.NoError(t, f.db.Create(&taggedCategory).Error)

	result, err := svc.PurgeTagged(ctx, f.admin, dto.PurgeTaggedRequest{E2ETag: tag})
	require.NoError(t, err)
	require.EqualValues(t, 1, result.Students)
	require.EqualValues(t, 2, result.Evaluations)
	require.EqualValues(t, 1, result.Categories)

	require.EqualValues(t, 1, f.count(t, &models.Student{}))
	require.EqualValues(t, 1, f.count(t, &models.Evaluation{}))
	require.Zero(t, f.count(t, &models.PointCategory{}))

	_, err = svc.PurgeTagged(ctx, f.admin, dto.PurgeTaggedRequest{})
	require.Error(t, err)
}
