package service

import (
	"strings"

	"github.com/noah-isme/school-points-api/internal/models"
)

// Viewer is the resolved profile of the caller for a single request.
type Viewer struct {
	ID     string
	AuthID string
	Name   string
	Email  string
	Role   string
	Status string
}

// NewViewer builds a viewer from a stored profile.
func NewViewer(user models.User) *Viewer {
	return &Viewer{
		ID:     user.ID,
		AuthID: user.AuthID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Status: user.Status,
	}
}

// Authenticated reports whether the viewer has an active profile.
func (v *Viewer) Authenticated() bool {
	return v != nil && v.ID != "" && v.Status == models.UserStatusActive
}

// IsAdmin reports whether the viewer is an active admin or super.
func (v *Viewer) IsAdmin() bool {
	return v.Authenticated() && (v.Role == models.RoleAdmin || v.Role == models.RoleSuper)
}

// IsSuper reports whether the viewer is an active super user.
func (v *Viewer) IsSuper() bool {
	return v.Authenticated() && v.Role == models.RoleSuper
}

func requireViewer(v *Viewer) error {
	if !v.Authenticated() {
		return ErrUnauthorized
	}
	return nil
}

func requireAdmin(v *Viewer) error {
	if err := requireViewer(v); err != nil {
		return err
	}
	if !v.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
