package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Sajadaliismail/gatekeeper/internal/api/middleware"
	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
)

// ctxIdentity returns the caller injected by middleware.Authenticate. A
// missing identity means the route was mounted without the gate; fail closed.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.Email == "" {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}
