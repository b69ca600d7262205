package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
)

// HasherConfig configures the bcrypt work factor.
type HasherConfig struct {
	Cost int
}

// BcryptHasher implements ports.PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cfg.Cost, or bcrypt.DefaultCost
// when unset. Costs outside bcrypt's range are rejected.
func NewBcryptHasher(cfg HasherConfig) (*BcryptHasher, error) {
	cost := cfg.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash rejects empty input and input over bcrypt's 72-byte limit as
// validation errors. The limit is in bytes, so multi-byte characters count
// more than once.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", &domain.ValidationError{Field: "password", Reason: "is required"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", &domain.ValidationError{Field: "password", Reason: "must be at most 72 bytes"}
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares in constant time and reports false for any mismatch,
// including a malformed hash.
func (h *BcryptHasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
