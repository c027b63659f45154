package handler_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-points-api/internal/auth"
	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/handler"
	"github.com/noah-isme/school-points-api/internal/service"
)

type fakeUserService struct {
	viewer    *service.Viewer
	updateID  string
	updateReq dto.UserUpdateRequest
	err       error
}

func (f *fakeUserService) ResolveProfile(context.Context, auth.Identity) (*service.Viewer, error) {
	return nil, nil
}

func (f *fakeUserService) Me(_ context.Context, viewer *service.Viewer) (*dto.UserResponse, error) {
	f.viewer = viewer
	if viewer == nil {
		return nil, nil
	}
	return &dto.UserResponse{ID: viewer.ID, Name: viewer.Name, Role: viewer.Role, Status: viewer.Status}, nil
}

func (f *fakeUserService) List(_ context.Context, viewer *service.Viewer) ([]dto.UserResponse, error) {
	f.viewer = viewer
	return []dto.UserResponse{}, f.err
}

func (f *fakeUserService) Update(_ context.Context, viewer *service.Viewer, id string, req dto.UserUpdateRequest) (dto.UserResponse, error) {
	f.viewer, f.updateID, f.updateReq = viewer, id, req
	return dto.UserResponse{ID: id}, f.err
}

func TestUserHandler_MeReturnsViewerProfile(t *testing.T) {
	users := &fakeUserService{}
	app := newTestApp("/api/v1/users", adminViewer, handler.NewUserHandler(users, testLogger()).Register)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var profile dto.UserResponse
	decodeEnvelope(t, resp, &profile)
	require.Equal(t, "u-admin", profile.ID)
	require.Equal(t, "Ada Admin", profile.Name)
}

func TestUserHandler_MeIsNullWhenAnonymous(t *testing.T) {
	app := newTestApp("/api/v1/users", nil, handler.NewUserHandler(&fakeUserService{}, testLogger()).Register)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp, nil)
	require.True(t, env.Success)
	require.Equal(t, "null", string(env.Data))
}

func TestUserHandler_UpdateMapsSuperGuard(t *testing.T) {
	users := &fakeUserService{err: service.ErrForbiddenSuper}
	app := newTestApp("/api/v1/users", adminViewer, handler.NewUserHandler(users, testLogger()).Register)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/u-2", bytes.NewReader([]byte(`{"role":"super"}`)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "u-2", users.updateID)
	require.NotNil(t, users.updateReq.Role)
	require.Equal(t, "super", *users.updateReq.Role)
}
