package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/userportal/auth-service/internal/core/domain"
)

// RBAC enforces role-based access control. The caller passes when any of the
// roles stored by Auth is allowed. It must run after Auth.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, roles, _ := Identity(c)
			for _, r := range roles {
				if _, ok := allowed[r]; ok {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"message": domain.ErrForbidden.Error()})
		}
	}
}
