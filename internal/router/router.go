package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/school-points-api/internal/config"
	"github.com/noah-isme/school-points-api/internal/handler"
	"github.com/noah-isme/school-points-api/internal/middleware"
	"github.com/noah-isme/school-points-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	UserHandler       *handler.UserHandler
	StudentHandler    *handler.StudentHandler
	CategoryHandler   *handler.CategoryHandler
	EvaluationHandler *handler.EvaluationHandler
	ReportHandler     *handler.ReportHandler
	AuditHandler      *handler.AuditHandler
	BackupHandler     *handler.BackupHandler
	// Identity resolves the request viewer; nil leaves every request anonymous.
	Identity fiber.Handler
	// Health lists the backing services pinged by /health.
	Health []handler.DependencyCheck
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.HealthCheck(cfg, deps.Health...))
	app.Get("/metrics", observability.MetricsHandler())

	identity := deps.Identity
	if identity == nil {
		identity = func(c *fiber.Ctx) error { return c.Next() }
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	}, identity)

	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users"))
	}
	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(api.Group("/students"))
	}
	if deps.CategoryHandler != nil {
		deps.CategoryHandler.Register(api.Group("/categories"))
	}
	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(api.Group("/evaluations"))
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(api.Group("/reports"))
	}
	if deps.AuditHandler != nil {
		deps.AuditHandler.Register(api.Group("/audit-logs"))
	}

	// Batch operations rewrite whole collections, so they are throttled per viewer.
	if deps.BackupHandler != nil {
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		backups := api.Group("/backups", middleware.RateLimit("backups", cfg.RateLimitMax, window))
		deps.BackupHandler.Register(backups)
	}
}
