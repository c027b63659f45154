package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-points-api/internal/middleware"
	"github.com/noah-isme/school-points-api/internal/models"
	"github.com/noah-isme/school-points-api/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

var (
	adminViewer   = &service.Viewer{ID: "u-admin", AuthID: "auth-admin", Name: "Ada Admin", Role: models.RoleAdmin, Status: models.UserStatusActive}
	teacherViewer = &service.Viewer{ID: "u-teacher", AuthID: "auth-teacher", Name: "Tom Teacher", Role: models.RoleTeacher, Status: models.UserStatusActive}
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// newTestApp mounts a route group with viewer preloaded into locals, as Identify would.
func newTestApp(prefix string, viewer *service.Viewer, register func(fiber.Router)) *fiber.App {
	app := fiber.New()
	group := app.Group(prefix, func(c *fiber.Ctx) error {
		if viewer != nil {
			c.Locals(middleware.ViewerLocalKey, viewer)
		}
		return c.Next()
	})
	register(group)
	return app
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, target))
}

func decodeEnvelope(t *testing.T, resp *http.Response, data interface{}) envelope {
	t.Helper()
	var env envelope
	decodeResponse(t, resp, &env)
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}
