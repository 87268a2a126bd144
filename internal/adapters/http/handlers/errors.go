package handlers

import (
	"errors"

	"salesforge-api/internal/core/domain"
	"salesforge-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// retryAfterSeconds is advertised on 503 responses
const retryAfterSeconds = 5

// respondError maps a service error onto the HTTP error contract
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return response.ValidationFailed(c, verr.Fields)
	case errors.Is(err, domain.ErrInvalidQuery):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		return response.Unauthorized(c, "Invalid email or password")
	case errors.Is(err, domain.ErrTokenExpired):
		return response.Unauthorized(c, "Access token expired")
	case errors.Is(err, domain.ErrTokenInvalid):
		return response.Unauthorized(c, "Invalid access token")
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "You don't have permission to perform this action")
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Resource not found")
	case errors.Is(err, domain.ErrDuplicateEntry):
		return response.Conflict(c, "Email already registered")
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Warn("Store unavailable", zap.String("path", c.Path()), zap.Error(err))
		return response.ServiceUnavailable(c, "Service temporarily unavailable", retryAfterSeconds)
	}

	log.Error("Unhandled error", zap.String("path", c.Path()), zap.Error(err))
	return response.InternalServerError(c, "Internal Server Error")
}
