package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Sajadaliismail/gatekeeper/internal/api/metrics"
	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
	"github.com/Sajadaliismail/gatekeeper/internal/core/ports"
)

// TokenCookie is the cookie the login handler writes and Authenticate reads.
const TokenCookie = "token"

const msgVerificationFailed = "Something went wrong with token verification"

// AccountResolver reports whether an account still exists and is banned.
type AccountResolver interface {
	AccountStatus(ctx context.Context, email string) (domain.AccountStatus, error)
}

// Authenticate verifies the session token (cookie first, then the Bearer
// header), re-checks the account against the store and injects the caller's
// domain.Identity. Any failure stops the chain.
func Authenticate(tokens ports.TokenService, accounts AccountResolver, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractToken(c)
			if raw == "" {
				return reject("missing_token", http.StatusUnauthorized, "Authentication token is missing")
			}

			identity, err := tokens.Verify(raw)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrTokenExpired):
					return reject("expired", http.StatusUnauthorized, "Token has expired")
				case errors.Is(err, domain.ErrTokenInvalid):
					return reject("invalid", http.StatusUnauthorized, "Invalid token or signature")
				default:
					log.Error().Err(err).Str("path", c.Path()).Msg("token verification failed")
					return reject("verification", http.StatusInternalServerError, msgVerificationFailed)
				}
			}

			start := time.Now()
			status, err := accounts.AccountStatus(c.Request().Context(), identity.Email)
			metrics.IdentityLookupDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					return reject("user_not_found", http.StatusUnauthorized, "User not found")
				}
				log.Error().Err(err).Str("email", identity.Email).Msg("account lookup failed")
				return reject("lookup_failed", http.StatusInternalServerError, msgVerificationFailed)
			}
			if status.IsBanned {
				return reject("banned", http.StatusUnauthorized, "User has been banned")
			}

			SetIdentity(c, identity)
			return next(c)
		}
	}
}

func extractToken(c echo.Context) string {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	parts := strings.SplitN(c.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func reject(reason string, code int, msg string) error {
	metrics.AuthRejectionsTotal.WithLabelValues(reason).Inc()
	return echo.NewHTTPError(code, msg)
}
