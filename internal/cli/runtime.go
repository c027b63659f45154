package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/school-points-api/internal/bootstrap"
	"github.com/noah-isme/school-points-api/internal/config"
	"github.com/noah-isme/school-points-api/internal/repository"
	"github.com/noah-isme/school-points-api/internal/service"
)

// Runtime is what a command needs: the database, the store and the services.
type Runtime struct {
	DB       *gorm.DB
	Store    repository.Store
	Services bootstrap.Services
	Close    func()
}

// Opener builds a Runtime. Tests substitute an in-memory one.
type Opener func(ctx context.Context, verbose bool) (*Runtime, error)

// DefaultOpener loads configuration from the environment and connects to the configured stores.
func DefaultOpener(ctx context.Context, verbose bool) (*Runtime, error) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	container, err := bootstrap.Open(cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to connect", err)
	}

	return &Runtime{
		DB:       container.DB,
		Store:    container.Store,
		Services: container.Services,
		Close:    container.Close,
	}, nil
}

func openRuntime(ctx context.Context, opts *RootOptions) (*Runtime, error) {
	if opts.Open == nil {
		return nil, NewExitError(ExitCommandError, "no runtime configured")
	}
	rt, err := opts.Open(ctx, opts.Verbose)
	if err != nil {
		return nil, err
	}
	if rt.Close == nil {
		rt.Close = func() {}
	}
	return rt, nil
}

// actingViewer loads the profile named by --as. Unknown ids are an error rather than a new pending profile.
func actingViewer(ctx context.Context, rt *Runtime, authID string) (*service.Viewer, error) {
	authID = strings.TrimSpace(authID)
	if authID == "" {
		return nil, NewExitError(ExitCommandError, "--as is required")
	}

	user, err := rt.Store.Users().GetByAuthID(ctx, authID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("no profile for auth id %q", authID))
		}
		return nil, WrapExitError(ExitCommandError, "failed to load profile", err)
	}

	return service.NewViewer(user), nil
}

// withViewer opens the runtime, resolves the acting profile and runs fn.
func withViewer(ctx context.Context, opts *RootOptions, fn func(rt *Runtime, viewer *service.Viewer) error) error {
	rt, err := openRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	viewer, err := actingViewer(ctx, rt, opts.As)
	if err != nil {
		return err
	}
	return fn(rt, viewer)
}
