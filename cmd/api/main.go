package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-points-api/internal/bootstrap"
	"github.com/noah-isme/school-points-api/internal/config"
	"github.com/noah-isme/school-points-api/internal/database"
	"github.com/noah-isme/school-points-api/internal/handler"
	"github.com/noah-isme/school-points-api/internal/middleware"
	"github.com/noah-isme/school-points-api/internal/router"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	container, err := bootstrap.Open(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise dependencies")
	}
	defer container.Close()

	if err := database.Migrate(container.DB); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	if cfg.TestMode {
		logger.Warn().Str("auth_id", cfg.TestAuthID).Str("role", cfg.TestRole).Msg("test mode enabled: every request runs as the test identity")
	}

	services := container.Services

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    32 << 20,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		UserHandler:       handler.NewUserHandler(services.Users, logger),
		StudentHandler:    handler.NewStudentHandler(services.Students, services.Evaluations, logger),
		CategoryHandler:   handler.NewCategoryHandler(services.Categories, logger),
		EvaluationHandler: handler.NewEvaluationHandler(services.Evaluations, logger),
		ReportHandler:     handler.NewReportHandler(services.Reports, logger),
		AuditHandler:      handler.NewAuditHandler(services.Audit, logger),
		BackupHandler:     handler.NewBackupHandler(services.Backups, logger),
		Identity:          middleware.Identify(bootstrap.IdentityResolver(cfg), services.Users, logger),
		Health:            container.DependencyChecks(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, cfg.ShutdownTimeout, logger)
}

func waitForShutdown(app *fiber.App, timeout time.Duration, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
