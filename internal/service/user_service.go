package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/school-points-api/internal/auth"
	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/models"
	"github.com/noah-isme/school-points-api/internal/repository"
)

// ProfileResolver maps an identity-provider subject to an application profile.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, identity auth.Identity) (*Viewer, error)
}

// UserService manages application profiles.
type UserService interface {
	ProfileResolver
	Me(ctx context.Context, viewer *Viewer) (*dto.UserResponse, error)
	List(ctx context.Context, viewer *Viewer) ([]dto.UserResponse, error)
	Update(ctx context.Context, viewer *Viewer, id string, req dto.UserUpdateRequest) (dto.UserResponse, error)
}

// UserServiceOptions controls how first sign-in profiles are provisioned.
type UserServiceOptions struct {
	SuperAuthIDs []string
	TestMode     bool
	TestRole     string
}

type userService struct {
	store     repository.Store
	audit     AuditRecorder
	validator *validator.Validate
	supers    map[string]struct{}
	testMode  bool
	testRole  string
	logger    zerolog.Logger
}

// NewUserService constructs the profile service.
func NewUserService(store repository.Store, audit AuditRecorder, validate *validator.Validate, opts UserServiceOptions, logger zerolog.Logger) UserService {
	supers := make(map[string]struct{}, len(opts.SuperAuthIDs))
	for _, id := range opts.SuperAuthIDs {
		supers[strings.TrimSpace(id)] = struct{}{}
	}

	testRole := strings.ToLower(strings.TrimSpace(opts.TestRole))
	if !models.ValidRole(testRole) {
		testRole = models.RoleAdmin
	}

	return &userService{
		store:     store,
		audit:     audit,
		validator: validate,
		supers:    supers,
		testMode:  opts.TestMode,
		testRole:  testRole,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) ResolveProfile(ctx context.Context, identity auth.Identity) (*Viewer, error) {
	authID := strings.TrimSpace(identity.AuthID)
	if authID == "" {
		return nil, auth.ErrNoIdentity
	}

	user, err := s.store.Users().GetByAuthID(ctx, authID)
	if err == nil {
		return NewViewer(s.refreshProfile(ctx, user, identity)), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}

	user = s.newProfile(authID, identity)
	if err := s.store.Users().Create(ctx, &user); err != nil {
		// A concurrent first sign-in may have created the row already.
		existing, lookupErr := s.store.Users().GetByAuthID(ctx, authID)
		if lookupErr != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		user = existing
	} else {
		s.logger.Info().Str("user_id", user.ID).Str("email", maskEmail(user.Email)).Str("role", user.Role).Str("status", user.Status).Msg("provisioned profile on first sign-in")
	}

	return NewViewer(user), nil
}

func (s *userService) newProfile(authID string, identity auth.Identity) models.User {
	user := models.User{
		AuthID: authID,
		Name:   strings.TrimSpace(identity.Name),
		Email:  strings.TrimSpace(identity.Email),
		Role:   models.RoleTeacher,
		Status: models.UserStatusPending,
	}
	if user.Name == "" {
		user.Name = user.Email
	}

	if _, ok := s.supers[authID]; ok {
		user.Role = models.RoleSuper
		user.Status = models.UserStatusActive
	} else if s.testMode {
		user.Role = s.testRole
		user.Status = models.UserStatusActive
	}
	return user
}

// refreshProfile fills display fields the profile was created without.
func (s *userService) refreshProfile(ctx context.Context, user models.User, identity auth.Identity) models.User {
	updates := map[string]interface{}{}
	if user.Name == "" && strings.TrimSpace(identity.Name) != "" {
		updates["name"] = strings.TrimSpace(identity.Name)
	}
	if user.Email == "" && strings.TrimSpace(identity.Email) != "" {
		updates["email"] = strings.TrimSpace(identity.Email)
	}
	if len(updates) == 0 {
		return user
	}

	updated, err := s.store.Users().Update(ctx, user.ID, updates)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to refresh profile")
		return user
	}
	return updated
}

func (s *userService) Me(ctx context.Context, viewer *Viewer) (*dto.UserResponse, error) {
	if viewer == nil || viewer.ID == "" {
		return nil, nil
	}

	user, err := s.store.Users().GetByID(ctx, viewer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	response := dto.NewUserResponse(user)
	return &response, nil
}

func (s *userService) List(ctx context.Context, viewer *Viewer) ([]dto.UserResponse, error) {
	if !viewer.IsAdmin() {
		return []dto.UserResponse{}, nil
	}

	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, dto.NewUserResponse(user))
	}
	return responses, nil
}

func (s *userService) Update(ctx context.Context, viewer *Viewer, id string, req dto.UserUpdateRequest) (dto.UserResponse, error) {
	if err := requireAdmin(viewer); err != nil {
		return dto.UserResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	var (
		updated models.User
		entries []models.AuditLog
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		target, err := tx.Users().GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrUserNotFound, "load user")
		}

		if target.Role == models.RoleSuper && !viewer.IsSuper() {
			return ErrForbiddenSuper
		}
		if req.Role != nil && *req.Role == models.RoleSuper && !viewer.IsSuper() {
			return ErrForbiddenSuper
		}
		if req.Status != nil && target.ID == viewer.ID && *req.Status != models.UserStatusActive {
			return ErrSelfDeactivation
		}

		updates := map[string]interface{}{}
		changes := make([]AuditEntry, 0, 2)
		if req.Role != nil && *req.Role != target.Role {
			updates["role"] = *req.Role
			changes = append(changes, AuditEntry{
				Action:      ActionUpdateUserRole,
				PerformerID: viewer.ID,
				TargetTable: models.TableUsers,
				TargetID:    target.ID,
				OldValue:    map[string]string{"role": target.Role},
				NewValue:    map[string]string{"role": *req.Role},
			})
		}
		if req.Status != nil && *req.Status != target.Status {
			updates["status"] = *req.Status
			changes = append(changes, AuditEntry{
				Action:      ActionUpdateUserStatus,
				PerformerID: viewer.ID,
				TargetTable: models.TableUsers,
				TargetID:    target.ID,
				OldValue:    map[string]string{"status": target.Status},
				NewValue:    map[string]string{"status": *req.Status},
			})
		}

		if len(updates) == 0 {
			updated = target
			return nil
		}

		updated, err = tx.Users().Update(ctx, target.ID, updates)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}

		for _, change := range changes {
			entry, err := s.audit.Record(ctx, tx, change)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.audit.Publish(ctx, entries...)
	s.logger.Info().Str("user_id", updated.ID).Str("role", updated.Role).Str("status", updated.Status).Msg("user profile updated")
	return dto.NewUserResponse(updated), nil
}
