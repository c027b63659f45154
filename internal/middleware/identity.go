package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-points-api/internal/auth"
	"github.com/noah-isme/school-points-api/internal/service"
)

// ViewerLocalKey is the fiber locals key holding the resolved *service.Viewer.
const ViewerLocalKey = "viewer"

// Identify resolves the caller once per request. Requests without a usable
// identity continue with a nil viewer so read endpoints can answer empty and
// mutations can refuse inside the service layer.
func Identify(resolver auth.Resolver, profiles service.ProfileResolver, logger zerolog.Logger) fiber.Handler {
	log := logger.With().Str("component", "identity_middleware").Logger()

	return func(c *fiber.Ctx) error {
		identity, err := resolver.Resolve(c)
		if err != nil {
			if !errors.Is(err, auth.ErrNoIdentity) {
				log.Debug().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("identity rejected")
			}
			return c.Next()
		}

		viewer, err := profiles.ResolveProfile(c.UserContext(), identity)
		if err != nil {
			log.Error().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("failed to resolve profile")
			return c.Next()
		}

		c.Locals(ViewerLocalKey, viewer)
		return c.Next()
	}
}

// ViewerFromContext returns the viewer resolved for the request, or nil.
func ViewerFromContext(c *fiber.Ctx) *service.Viewer {
	if c == nil {
		return nil
	}
	viewer, _ := c.Locals(ViewerLocalKey).(*service.Viewer)
	return viewer
}

func viewerIDFromLocals(c *fiber.Ctx) string {
	if viewer := ViewerFromContext(c); viewer != nil {
		return viewer.ID
	}
	return ""
}
