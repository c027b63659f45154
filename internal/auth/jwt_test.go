package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func resolveWithHeader(t *testing.T, resolver Resolver, header string) (Identity, error) {
	t.Helper()
	app := fiber.New()
	var (
		identity Identity
		resolved error
	)
	app.Get("/", func(c *fiber.Ctx) error {
		identity, resolved = resolver.Resolve(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	_, err := app.Test(req, -1)
	require.NoError(t, err)
	return identity, resolved
}

func TestJWTResolverExtractsSubjectAndProfileClaims(t *testing.T) {
	resolver := NewJWTResolver("secret")
	token := signToken(t, "secret", jwt.MapClaims{
		"sub":   "user_123",
		"name":  "Ms. Lin",
		"email": "lin@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	identity, err := resolveWithHeader(t, resolver, "Bearer "+token)
	require.NoError(t, err)
	require.Equal(t, Identity{AuthID: "user_123", Name: "Ms. Lin", Email: "lin@example.com"}, identity)
}

func TestJWTResolverRejectsBadTokens(t *testing.T) {
	resolver := NewJWTResolver("secret")

	_, err := resolveWithHeader(t, resolver, "")
	require.True(t, errors.Is(err, ErrNoIdentity))

	_, err = resolveWithHeader(t, resolver, "Basic abc")
	require.True(t, errors.Is(err, ErrNoIdentity))

	forged := signToken(t, "other", jwt.MapClaims{"sub": "user_123"})
	_, err = resolveWithHeader(t, resolver, "Bearer "+forged)
	require.True(t, errors.Is(err, ErrNoIdentity))

	expired := signToken(t, "secret", jwt.MapClaims{"sub": "user_123", "exp": time.Now().Add(-time.Hour).Unix()})
	_, err = resolveWithHeader(t, resolver, "Bearer "+expired)
	require.True(t, errors.Is(err, ErrNoIdentity))

	noSubject := signToken(t, "secret", jwt.MapClaims{"name": "anon"})
	_, err = resolveWithHeader(t, resolver, "Bearer "+noSubject)
	require.True(t, errors.Is(err, ErrNoIdentity))
}

func TestStaticResolverIgnoresHeaders(t *testing.T) {
	resolver := NewStaticResolver(Identity{AuthID: "e2e-test-user", Name: "E2E"})

	identity, err := resolveWithHeader(t, resolver, "Bearer garbage")
	require.NoError(t, err)
	require.Equal(t, "e2e-test-user", identity.AuthID)

	_, err = resolveWithHeader(t, NewStaticResolver(Identity{}), "")
	require.ErrorIs(t, err, ErrNoIdentity)
}
