package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/school-points-api/internal/config"
	"github.com/noah-isme/school-points-api/internal/utils"
)

const dependencyCheckTimeout = 2 * time.Second

// Health states reported by the health endpoint.
const (
	HealthOK          = "ok"
	HealthDegraded    = "degraded"
	HealthUnavailable = "unavailable"
)

// DependencyCheck pings one backing service. A failing Required check takes
// the API out of rotation; an optional one only degrades it.
type DependencyCheck struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status         string            `json:"status"`
	Timestamp      time.Time         `json:"timestamp"`
	Service        string            `json:"service"`
	Environment    string            `json:"environment"`
	TestMode       bool              `json:"test_mode"`
	DatabaseDriver string            `json:"database_driver"`
	BackupStorage  string            `json:"backup_storage"`
	Dependencies   map[string]string `json:"dependencies,omitempty"`
}

// HealthCheck reports the service identity and the reachability of its
// store, cache and event bus.
func HealthCheck(cfg config.Config, checks ...DependencyCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:         HealthOK,
			Timestamp:      time.Now().UTC(),
			Service:        cfg.AppName,
			Environment:    cfg.AppEnv,
			TestMode:       cfg.TestMode,
			DatabaseDriver: cfg.DatabaseDriver,
			BackupStorage:  cfg.BackupStorage,
		}

		if len(checks) > 0 {
			payload.Dependencies = make(map[string]string, len(checks))
		}
		for _, check := range checks {
			ctx, cancel := context.WithTimeout(c.UserContext(), dependencyCheckTimeout)
			err := check.Ping(ctx)
			cancel()

			if err == nil {
				payload.Dependencies[check.Name] = "up"
				continue
			}
			payload.Dependencies[check.Name] = "down"
			switch {
			case check.Required:
				payload.Status = HealthUnavailable
			case payload.Status == HealthOK:
				payload.Status = HealthDegraded
			}
		}

		if payload.Status == HealthUnavailable {
			return c.Status(fiber.StatusServiceUnavailable).JSON(utils.APIResponse{
				Success: false,
				Data:    payload,
				Message: "service unavailable",
			})
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
