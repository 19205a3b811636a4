package middleware

import (
	"context"
	"errors"
	"net/http"
	"telenotes/cmd/internal/domain/entity"
	"telenotes/cmd/internal/infrastructure/metrics"
	"telenotes/cmd/internal/security"
	"telenotes/cmd/internal/utils"
	"telenotes/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type UserRepository interface {
	FindByTelegramID(ctx context.Context, telegramID string) (*entity.User, error)
}

type TokenVerifier interface {
	Verify(raw string) (string, error)
}

type AuthMiddlewareConfig struct {
	Tokens   TokenVerifier
	UserRepo UserRepository
}

// NewAuthMiddleware creates the handler with dependencies injected.
// Every failure reaches the client as the same 401, the reason only goes
// to metrics and debug logs.
func NewAuthMiddleware(cfg *AuthMiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := utils.BearerToken(c)
			if !ok {
				return unauthorized(c, "missing")
			}

			sub, err := cfg.Tokens.Verify(raw)
			if errors.Is(err, security.ErrTokenExpired) {
				log.Debugf("rejected expired token on %s", c.Path())
				return unauthorized(c, "expired")
			}

			if err != nil {
				return unauthorized(c, "invalid")
			}

			user, err := cfg.UserRepo.FindByTelegramID(c.Request().Context(), sub)
			if err != nil {
				log.Errorf("failed to resolve token subject: %v", err)
				return c.JSON(http.StatusInternalServerError, apierror.InternalServerError)
			}

			if user == nil {
				// Valid signature, but the identity is gone.
				return unauthorized(c, "unknown_user")
			}

			c.Set(utils.UserContextKey, user)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, reason string) error {
	metrics.AuthRejections.WithLabelValues(reason).Inc()
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, apierror.UnauthorizedError)
}
