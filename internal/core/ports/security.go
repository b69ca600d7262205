package ports

import (
	"time"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
)

// PasswordHasher hashes and verifies plaintext credentials.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashed string) bool
}

// TokenService issues and verifies signed identity tokens.
type TokenService interface {
	Issue(identity domain.Identity) (token string, expiresAt time.Time, err error)
	Verify(token string) (domain.Identity, error)
}
