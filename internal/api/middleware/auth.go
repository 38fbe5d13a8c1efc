package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/userportal/auth-service/internal/api/metrics"
	"github.com/userportal/auth-service/internal/core/domain"
	"github.com/userportal/auth-service/internal/core/ports"
)

// Keys under which Auth stores the caller identity on the echo context.
const (
	ContextUserID    = "user_id"
	ContextUserRoles = "user_roles"
)

// Auth verifies the bearer token and exposes the caller's id and roles to the
// next handler. Requests without a valid token are rejected with 401 and never
// reach next.
func Auth(verifier ports.TokenVerifier, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.TokensRejectedTotal.WithLabelValues("missing_header").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				metrics.TokensRejectedTotal.WithLabelValues("malformed_header").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
			}

			claims, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				reason := "invalid"
				if errors.Is(err, domain.ErrTokenExpired) {
					reason = "expired"
				}
				metrics.TokensRejectedTotal.WithLabelValues(reason).Inc()
				log.Debug().Str("reason", reason).Str("path", c.Path()).Msg("token rejected")
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrInvalidToken.Error())
			}

			c.Set(ContextUserID, claims.Subject)
			c.Set(ContextUserRoles, claims.Roles)

			return next(c)
		}
	}
}

// Identity returns the caller identity stored by Auth.
func Identity(c echo.Context) (userID string, roles []string, ok bool) {
	userID, _ = c.Get(ContextUserID).(string)
	roles, _ = c.Get(ContextUserRoles).([]string)
	return userID, roles, userID != ""
}
