package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func correlationApp(captured *string) *fiber.App {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		*captured = CorrelationIDFromContext(c.UserContext())
		return c.SendString(GetCorrelationID(c))
	})
	return app
}

func TestCorrelationIDKeepsValidHeader(t *testing.T) {
	var captured string
	app := correlationApp(&captured)

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(correlationHeader, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-123", resp.Header.Get(correlationHeader))
	require.Equal(t, "req-123", captured)
}

func TestCorrelationIDReplacesMissingOrHostileValues(t *testing.T) {
	var captured string
	app := correlationApp(&captured)

	for _, value := range []string{"", strings.Repeat("x", maxCorrelationLen+1), "has space"} {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		if value != "" {
			req.Header.Set(correlationHeader, value)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)

		got := resp.Header.Get(correlationHeader)
		_, parseErr := uuid.Parse(got)
		require.NoError(t, parseErr, "value %q should be replaced", value)
		require.Equal(t, got, captured)
	}
}
