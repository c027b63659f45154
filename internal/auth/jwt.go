package auth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWTResolver validates HMAC-signed bearer tokens issued by the identity provider.
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver constructs a resolver for tokens signed with secret.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

// Resolve parses the Authorization header and returns the token subject.
func (r *JWTResolver) Resolve(c *fiber.Ctx) (Identity, error) {
	authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if authorization == "" {
		return Identity{}, ErrNoIdentity
	}

	const bearer = "bearer "
	if !strings.HasPrefix(strings.ToLower(authorization), bearer) {
		return Identity{}, fmt.Errorf("invalid authorization header: %w", ErrNoIdentity)
	}

	tokenString := strings.TrimSpace(authorization[len(bearer):])
	if tokenString == "" {
		return Identity{}, ErrNoIdentity
	}

	return r.Parse(tokenString)
}

// Parse validates a raw token string.
func (r *JWTResolver) Parse(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token: %w", ErrNoIdentity)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("invalid token claims: %w", ErrNoIdentity)
	}

	subject := subjectFromClaims(claims)
	if subject == "" {
		return Identity{}, fmt.Errorf("token has no subject: %w", ErrNoIdentity)
	}

	return Identity{
		AuthID: subject,
		Name:   stringClaim(claims, "name"),
		Email:  stringClaim(claims, "email"),
	}, nil
}

func subjectFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"sub", "user_id", "id"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			if v >= 0 {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if value, ok := claims[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
