package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
)

const identityKey = "identity"

type identityCtxKey struct{}

// SetIdentity publishes id on both the echo context and the request context,
// so handlers and anything below them read the same value.
func SetIdentity(c echo.Context, id domain.Identity) {
	c.Set(identityKey, id)
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), identityCtxKey{}, id)))
}

// IdentityFrom returns the caller authenticated by Authenticate.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(identityKey).(domain.Identity)
	return id, ok
}

// IdentityFromContext is IdentityFrom for code that only holds the request
// context.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(domain.Identity)
	return id, ok
}
