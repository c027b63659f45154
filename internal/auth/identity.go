// Package auth resolves the caller's identity-provider subject for a request.
package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrNoIdentity indicates the request carries no usable credentials.
var ErrNoIdentity = errors.New("no identity")

// Identity is the subject asserted by the identity provider.
type Identity struct {
	AuthID string
	Name   string
	Email  string
}

// Resolver extracts the caller identity from a request.
type Resolver interface {
	Resolve(c *fiber.Ctx) (Identity, error)
}

// StaticResolver binds every request to one fixed identity. It backs test mode.
type StaticResolver struct {
	identity Identity
}

// NewStaticResolver constructs a resolver that always returns identity.
func NewStaticResolver(identity Identity) *StaticResolver {
	return &StaticResolver{identity: identity}
}

// Resolve returns the configured identity.
func (r *StaticResolver) Resolve(_ *fiber.Ctx) (Identity, error) {
	if r.identity.AuthID == "" {
		return Identity{}, ErrNoIdentity
	}
	return r.identity, nil
}
