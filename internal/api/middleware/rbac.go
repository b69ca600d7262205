package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
)

// RequireRoles enforces role-based access control. It must be mounted after
// Authenticate; a request without an identity is refused like a wrong role.
func RequireRoles(roles ...domain.Role) echo.MiddlewareFunc {
	allowed := domain.NewRoleSet(roles...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok || !allowed.Has(id.Role) {
				return reject("insufficient_role", http.StatusForbidden, "Access denied. Insufficient role.")
			}
			return next(c)
		}
	}
}
