// Package bootstrap assembles the stores and services shared by the API server and pointsctl.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/school-points-api/internal/auth"
	"github.com/noah-isme/school-points-api/internal/config"
	"github.com/noah-isme/school-points-api/internal/database"
	"github.com/noah-isme/school-points-api/internal/handler"
	"github.com/noah-isme/school-points-api/internal/repository"
	"github.com/noah-isme/school-points-api/internal/service"
	cloud "github.com/noah-isme/school-points-api/pkg/cloudinary"
	"github.com/noah-isme/school-points-api/pkg/s3store"
)

// Services groups every domain service.
type Services struct {
	Users       service.UserService
	Students    service.StudentService
	Categories  service.CategoryService
	Evaluations service.EvaluationService
	Reports     service.ReportService
	Audit       service.AuditService
	Backups     service.BackupService
}

// Container owns the infrastructure connections behind Services.
type Container struct {
	DB       *gorm.DB
	Redis    *redis.Client
	NATS     *nats.Conn
	Store    repository.Store
	Validate *validator.Validate
	Services Services
	logger   zerolog.Logger
}

// Open connects to the configured database and optional cache, broker and archive.
// Redis and NATS are optional: a failed connection is logged and the feature disabled.
func Open(cfg config.Config, logger zerolog.Logger) (*Container, error) {
	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	c := &Container{DB: db, logger: logger}

	if cfg.RedisURL != "" {
		client, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("report cache disabled")
		} else {
			c.Redis = client
		}
	}

	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("audit fan-out disabled")
		} else {
			c.NATS = conn
		}
	}

	archiver, err := NewArchiver(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Store = repository.NewStore(db)
	c.Validate = validator.New(validator.WithRequiredStructEnabled())
	c.Services = NewServices(cfg, c.Store, c.Redis, c.NATS, archiver, c.Validate, logger)

	return c, nil
}

// NewServices wires the domain services around an existing store.
func NewServices(cfg config.Config, store repository.Store, cache *redis.Client, conn *nats.Conn, archiver service.BackupArchiver, validate *validator.Validate, logger zerolog.Logger) Services {
	audit := service.NewAuditService(store, conn, cfg.NATSSubject, logger)
	reports := service.NewReportService(store, cache, service.ReportServiceOptions{
		Location: cfg.ReportLocation,
		CacheTTL: cfg.ReportCacheTTL,
	}, logger)

	return Services{
		Users: service.NewUserService(store, audit, validate, service.UserServiceOptions{
			SuperAuthIDs: cfg.SuperAuthIDs,
			TestMode:     cfg.TestMode,
			TestRole:     cfg.TestRole,
		}, logger),
		Students:    service.NewStudentService(store, audit, reports, validate, logger),
		Categories:  service.NewCategoryService(store, audit, reports, validate, logger),
		Evaluations: service.NewEvaluationService(store, audit, reports, validate, cfg.RecentLimit, logger),
		Reports:     reports,
		Audit:       audit,
		Backups:     service.NewBackupService(store, audit, reports, archiver, validate, logger),
	}
}

// NewArchiver returns the off-site backup archive for cfg, or nil when archiving is off.
func NewArchiver(cfg config.Config, logger zerolog.Logger) (service.BackupArchiver, error) {
	switch cfg.BackupStorage {
	case config.BackupStorageS3:
		archiver, err := s3store.New(s3store.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			Prefix:    "backups",
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("configure s3 archive: %w", err)
		}
		return archiver, nil
	case config.BackupStorageCloudinary:
		archiver, err := cloud.New(cloud.Config{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
			Folder:    cfg.Cloudinary.Folder,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("configure cloudinary archive: %w", err)
		}
		return archiver, nil
	default:
		return nil, nil
	}
}

// IdentityResolver picks the request identity source for cfg.
func IdentityResolver(cfg config.Config) auth.Resolver {
	if cfg.TestMode {
		return auth.NewStaticResolver(auth.Identity{
			AuthID: cfg.TestAuthID,
			Name:   "E2E Test User",
			Email:  cfg.TestAuthID + "@test.local",
		})
	}
	return auth.NewJWTResolver(cfg.JWTSecret)
}

// DependencyChecks describes the backing services the health endpoint pings.
// Redis and NATS are optional and only listed when connected at startup.
func (c *Container) DependencyChecks() []handler.DependencyCheck {
	checks := []handler.DependencyCheck{{
		Name:     "database",
		Required: true,
		Ping: func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}

	if c.Redis != nil {
		checks = append(checks, handler.DependencyCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() },
		})
	}
	if c.NATS != nil {
		checks = append(checks, handler.DependencyCheck{
			Name: "nats",
			Ping: func(context.Context) error {
				if !c.NATS.IsConnected() {
					return errors.New("nats disconnected")
				}
				return nil
			},
		})
	}
	return checks
}

// Close releases every connection held by the container.
func (c *Container) Close() {
	if c.NATS != nil {
		if err := c.NATS.Drain(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to drain nats connection")
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
