package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/handler"
	"github.com/noah-isme/school-points-api/internal/service"
)

func newStudentApp(viewer *service.Viewer, students *fakeStudentService, evaluations *fakeEvaluationService) *fiber.App {
	h := handler.NewStudentHandler(students, evaluations, testLogger())
	return newTestApp("/api/v1/students", viewer, h.Register)
}

func TestStudentHandler_ListPassesFilters(t *testing.T) {
	students := &fakeStudentService{students: []dto.StudentResponse{{ID: "s-1", StudentID: "S001", EnglishName: "Amy", Grade: 8}}}
	app := newStudentApp(teacherViewer, students, &fakeEvaluationService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/students?search=am&status=Enrolled&grade=8", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var rows []dto.StudentResponse
	env := decodeEnvelope(t, resp, &rows)
	require.True(t, env.Success)
	require.Len(t, rows, 1)
	require.Equal(t, "am", students.listReq.Search)
	require.Equal(t, "Enrolled", students.listReq.Status)
	require.NotNil(t, students.listReq.Grade)
	require.Equal(t, 8, *students.listReq.Grade)
	require.Equal(t, teacherViewer, students.viewer)
}

func TestStudentHandler_ListFailsOpenWithoutViewer(t *testing.T) {
	students := &fakeStudentService{students: []dto.StudentResponse{{ID: "s-1"}}}
	app := newStudentApp(nil, students, &fakeEvaluationService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/students", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var rows []dto.StudentResponse
	decodeEnvelope(t, resp, &rows)
	require.Empty(t, rows)
	require.Nil(t, students.viewer)
}

func TestStudentHandler_ListRejectsBadGrade(t *testing.T) {
	app := newStudentApp(teacherViewer, &fakeStudentService{}, &fakeEvaluationService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/students?grade=seven", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStudentHandler_CreateStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"created", nil, fiber.StatusCreated},
		{"duplicate", service.ErrStudentIDExists, fiber.StatusConflict},
		{"bad grade", service.ErrInvalidGrade, fiber.StatusBadRequest},
		{"anonymous", service.ErrUnauthorized, fiber.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			students := &fakeStudentService{student: dto.StudentResponse{ID: "s-1", StudentID: "S001"}, err: tc.err}
			app := newStudentApp(adminViewer, students, &fakeEvaluationService{})

			body, err := json.Marshal(map[string]interface{}{"english_name": "Amy", "student_id": "S001", "grade": 8, "upsert": true})
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/students", bytes.NewReader(body))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			env := decodeEnvelope(t, resp, nil)
			if tc.err != nil {
				require.False(t, env.Success)
				require.Equal(t, tc.err.Error(), env.Message)
			}
			require.Equal(t, "S001", students.createReq.StudentID)
			require.True(t, students.createReq.Upsert)
		})
	}
}

func TestStudentHandler_RemoveWithEvaluationsIsUnprocessable(t *testing.T) {
	students := &fakeStudentService{err: service.ErrStudentHasEvaluations}
	app := newStudentApp(adminViewer, students, &fakeEvaluationService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/students/s-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	env := decodeEnvelope(t, resp, nil)
	require.Equal(t, "Cannot delete student with existing evaluations", env.Message)
	require.Equal(t, []string{"s-1"}, students.removedIDs)
}

func TestStudentHandler_CascadeRouteIsDistinct(t *testing.T) {
	students := &fakeStudentService{cascade: dto.StudentCascadeResult{DeletedStudent: true, DeletedEvaluations: 4}}
	app := newStudentApp(adminViewer, students, &fakeEvaluationService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/students/s-1/cascade", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result dto.StudentCascadeResult
	decodeEnvelope(t, resp, &result)
	require.Equal(t, int64(4), result.DeletedEvaluations)
}

func TestStudentHandler_ChangeStatusAndExists(t *testing.T) {
	students := &fakeStudentService{exists: true}
	app := newStudentApp(adminViewer, students, &fakeEvaluationService{})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/students/s-1/status", bytes.NewReader([]byte(`{"status":"Not Enrolled"}`)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Not Enrolled", students.statusArg)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/students/exists", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/students/exists?student_id=S001", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Exists bool `json:"exists"`
	}
	decodeEnvelope(t, resp, &payload)
	require.True(t, payload.Exists)
}

func TestStudentHandler_EvaluationsAllForbiddenForTeacher(t *testing.T) {
	evaluations := &fakeEvaluationService{err: service.ErrForbidden}
	app := newStudentApp(teacherViewer, &fakeStudentService{}, evaluations)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/students/s-1/evaluations/all", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
