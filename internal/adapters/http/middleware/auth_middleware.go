package middleware

import (
	"context"
	"errors"
	"strings"

	"salesforge-api/internal/core/domain"
	"salesforge-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	principalKey   = "principal"
	accessTokenKey = "accessToken"
)

// TokenValidator resolves a bearer token to a principal
type TokenValidator interface {
	Validate(ctx context.Context, token string) (domain.Principal, error)
}

// AuthMiddleware creates authentication middleware.
// Every failure is a 401 except an unreachable store, which is a 503.
func AuthMiddleware(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Get token from Authorization header
		accessToken := BearerToken(c)
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		// 2. Validate token
		principal, err := validator.Validate(c.UserContext(), accessToken)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrStoreUnavailable):
				return response.ServiceUnavailable(c, "Service temporarily unavailable", 5)
			case errors.Is(err, domain.ErrTokenExpired):
				return response.Unauthorized(c, "Access token expired")
			default:
				return response.Unauthorized(c, "Invalid access token")
			}
		}

		// 3. Set principal in context
		c.Locals(principalKey, principal)
		c.Locals(accessTokenKey, accessToken)

		return c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(c *fiber.Ctx) string {
	authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetPrincipal returns the principal set by AuthMiddleware
func GetPrincipal(c *fiber.Ctx) (domain.Principal, bool) {
	p, ok := c.Locals(principalKey).(domain.Principal)
	return p, ok
}

// GetAccessToken returns the raw bearer token accepted by AuthMiddleware
func GetAccessToken(c *fiber.Ctx) string {
	token, _ := c.Locals(accessTokenKey).(string)
	return token
}
