package handler_test

import (
	"context"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/models"
	"github.com/noah-isme/school-points-api/internal/service"
)

type fakeStudentService struct {
	viewer     *service.Viewer
	listReq    dto.StudentListRequest
	createReq  dto.StudentCreateRequest
	statusArg  string
	students   []dto.StudentResponse
	student    dto.StudentResponse
	exists     bool
	count      int64
	cascade    dto.StudentCascadeResult
	err        error
	removedIDs []string
}

func (f *fakeStudentService) List(_ context.Context, viewer *service.Viewer, req dto.StudentListRequest) ([]dto.StudentResponse, error) {
	f.viewer, f.listReq = viewer, req
	if !viewer.Authenticated() {
		return []dto.StudentResponse{}, nil
	}
	return f.students, f.err
}

func (f *fakeStudentService) Get(_ context.Context, viewer *service.Viewer, _ string) (*dto.StudentResponse, error) {
	f.viewer = viewer
	if f.err != nil {
		return nil, f.err
	}
	return &f.student, nil
}

func (f *fakeStudentService) Exists(_ context.Context, viewer *service.Viewer, _ string) (bool, error) {
	f.viewer = viewer
	return f.exists, f.err
}

func (f *fakeStudentService) EvaluationCount(_ context.Context, viewer *service.Viewer, _ string) (int64, error) {
	f.viewer = viewer
	return f.count, f.err
}

func (f *fakeStudentService) Create(_ context.Context, viewer *service.Viewer, req dto.StudentCreateRequest) (dto.StudentResponse, error) {
	f.viewer, f.createReq = viewer, req
	return f.student, f.err
}

func (f *fakeStudentService) Update(_ context.Context, viewer *service.Viewer, _ string, _ dto.StudentUpdateRequest) (dto.StudentResponse, error) {
	f.viewer = viewer
	return f.student, f.err
}

func (f *fakeStudentService) Remove(_ context.Context, viewer *service.Viewer, id string) error {
	f.viewer = viewer
	f.removedIDs = append(f.removedIDs, id)
	return f.err
}

func (f *fakeStudentService) RemoveWithCascade(_ context.Context, viewer *service.Viewer, id string) (dto.StudentCascadeResult, error) {
	f.viewer = viewer
	f.removedIDs = append(f.removedIDs, id)
	return f.cascade, f.err
}

func (f *fakeStudentService) ChangeStatus(_ context.Context, viewer *service.Viewer, _ string, status string) (dto.StudentResponse, error) {
	f.viewer, f.statusArg = viewer, status
	return f.student, f.err
}

func (f *fakeStudentService) Disable(_ context.Context, viewer *service.Viewer, _ string) (dto.StudentResponse, error) {
	f.viewer = viewer
	return f.student, f.err
}

type fakeEvaluationService struct {
	viewer    *service.Viewer
	createReq dto.EvaluationCreateRequest
	limit     int
	ids       []string
	rows      []dto.EvaluationResponse
	err       error
}

func (f *fakeEvaluationService) Create(_ context.Context, viewer *service.Viewer, req dto.EvaluationCreateRequest) ([]string, error) {
	f.viewer, f.createReq = viewer, req
	return f.ids, f.err
}

func (f *fakeEvaluationService) Remove(_ context.Context, viewer *service.Viewer, _ string) error {
	f.viewer = viewer
	return f.err
}

func (f *fakeEvaluationService) ListRecent(_ context.Context, viewer *service.Viewer, limit int) ([]dto.EvaluationResponse, error) {
	f.viewer, f.limit = viewer, limit
	return f.rows, f.err
}

func (f *fakeEvaluationService) StudentEvaluationsByTeacher(_ context.Context, viewer *service.Viewer, _ string) ([]dto.EvaluationResponse, error) {
	f.viewer = viewer
	return f.rows, f.err
}

func (f *fakeEvaluationService) StudentEvaluationsAll(_ context.Context, viewer *service.Viewer, _ string) ([]dto.EvaluationResponse, error) {
	f.viewer = viewer
	return f.rows, f.err
}

type fakeCategoryService struct {
	viewer   *service.Viewer
	req      dto.CategoryRequest
	subArg   string
	category dto.CategoryResponse
	deleted  int64
	count    int64
	err      error
}

func (f *fakeCategoryService) List(_ context.Context, viewer *service.Viewer) ([]dto.CategoryResponse, error) {
	f.viewer = viewer
	return []dto.CategoryResponse{f.category}, f.err
}

func (f *fakeCategoryService) Create(_ context.Context, viewer *service.Viewer, req dto.CategoryRequest) (dto.CategoryResponse, error) {
	f.viewer, f.req = viewer, req
	return f.category, f.err
}

func (f *fakeCategoryService) Update(_ context.Context, viewer *service.Viewer, _ string, req dto.CategoryRequest) (dto.CategoryResponse, error) {
	f.viewer, f.req = viewer, req
	return f.category, f.err
}

func (f *fakeCategoryService) Remove(_ context.Context, viewer *service.Viewer, _ string) (int64, error) {
	f.viewer = viewer
	return f.deleted, f.err
}

func (f *fakeCategoryService) EvaluationCount(_ context.Context, viewer *service.Viewer, _ string) (int64, error) {
	f.viewer = viewer
	return f.count, f.err
}

func (f *fakeCategoryService) SubCategoryEvaluationCount(_ context.Context, viewer *service.Viewer, _ string, subCategory string) (int64, error) {
	f.viewer, f.subArg = viewer, subCategory
	return f.count, f.err
}

type fakeReportService struct {
	friday   int64
	weeks    []dto.WeeklyReportSummary
	rows     []dto.WeeklyReportStudent
	payload  []byte
	filename string
	err      error
}

func (f *fakeReportService) Invalidate(context.Context) {}

func (f *fakeReportService) WeeklyList(context.Context, *service.Viewer) ([]dto.WeeklyReportSummary, error) {
	return f.weeks, f.err
}

func (f *fakeReportService) WeeklyDetail(_ context.Context, _ *service.Viewer, friday int64) ([]dto.WeeklyReportStudent, error) {
	f.friday = friday
	return f.rows, f.err
}

func (f *fakeReportService) ExportWeekly(_ context.Context, _ *service.Viewer, friday int64) ([]byte, string, error) {
	f.friday = friday
	return f.payload, f.filename, f.err
}

type fakeBackupService struct {
	viewer        *service.Viewer
	importName    string
	importPayload []byte
	purgeReq      dto.PurgeTaggedRequest
	backup        models.Backup
	response      dto.BackupResponse
	restore       dto.RestoreResult
	clear         dto.ClearResult
	advance       dto.AdvanceResult
	err           error
}

func (f *fakeBackupService) Export(_ context.Context, viewer *service.Viewer) (models.BackupSnapshot, error) {
	f.viewer = viewer
	return models.BackupSnapshot{}, f.err
}

func (f *fakeBackupService) Create(_ context.Context, viewer *service.Viewer) (dto.BackupResponse, error) {
	f.viewer = viewer
	return f.response, f.err
}

func (f *fakeBackupService) List(_ context.Context, viewer *service.Viewer) ([]dto.BackupResponse, error) {
	f.viewer = viewer
	return []dto.BackupResponse{f.response}, f.err
}

func (f *fakeBackupService) Get(_ context.Context, viewer *service.Viewer, _ string) (models.Backup, error) {
	f.viewer = viewer
	return f.backup, f.err
}

func (f *fakeBackupService) Delete(_ context.Context, viewer *service.Viewer, _ string) error {
	f.viewer = viewer
	return f.err
}

func (f *fakeBackupService) Import(_ context.Context, viewer *service.Viewer, filename string, payload []byte) (dto.BackupResponse, error) {
	f.viewer, f.importName, f.importPayload = viewer, filename, payload
	return f.response, f.err
}

func (f *fakeBackupService) Restore(_ context.Context, viewer *service.Viewer, _ string) (dto.RestoreResult, error) {
	f.viewer = viewer
	return f.restore, f.err
}

func (f *fakeBackupService) ClearAll(_ context.Context, viewer *service.Viewer) (dto.ClearResult, error) {
	f.viewer = viewer
	return f.clear, f.err
}

func (f *fakeBackupService) ClearEvaluations(_ context.Context, viewer *service.Viewer) (dto.ClearResult, error) {
	f.viewer = viewer
	return f.clear, f.err
}

func (f *fakeBackupService) AdvanceYear(_ context.Context, viewer *service.Viewer) (dto.AdvanceResult, error) {
	f.viewer = viewer
	return f.advance, f.err
}

func (f *fakeBackupService) PurgeTagged(_ context.Context, viewer *service.Viewer, req dto.PurgeTaggedRequest) (dto.ClearResult, error) {
	f.viewer, f.purgeReq = viewer, req
	return f.clear, f.err
}
