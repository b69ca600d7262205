package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
)

const DefaultTokenTTL = 24 * time.Hour

// TokenConfig carries the signing secret and token lifetime.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService issues and verifies HS256 identity tokens.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customises a JWTService.
type TokenOption func(*JWTService)

// WithClock replaces the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(s *JWTService) { s.now = now }
}

// NewTokenService fails with domain.ErrSigningSecretMissing when no secret is
// configured, so a misconfigured process stops at startup.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, domain.ErrSigningSecretMissing
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &JWTService{secret: []byte(cfg.Secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration { return s.ttl }

func (s *JWTService) Issue(identity domain.Identity) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, domain.ErrSigningSecretMissing
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := tokenClaims{
		Email: identity.Email,
		Role:  identity.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify maps expiry to domain.ErrTokenExpired, signature and structure
// failures to domain.ErrTokenInvalid, and any other problem to
// domain.ErrTokenVerification.
func (s *JWTService) Verify(token string) (domain.Identity, error) {
	if len(s.secret) == 0 {
		return domain.Identity{}, domain.ErrSigningSecretMissing
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return domain.Identity{}, domain.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenUnverifiable),
			errors.Is(err, jwt.ErrTokenInvalidClaims),
			errors.Is(err, jwt.ErrTokenNotValidYet),
			errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
			errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
			return domain.Identity{}, domain.ErrTokenInvalid
		default:
			return domain.Identity{}, domain.ErrTokenVerification
		}
	}
	if !parsed.Valid {
		return domain.Identity{}, domain.ErrTokenInvalid
	}

	role, ok := domain.ParseRole(claims.Role)
	if claims.Email == "" || !ok {
		return domain.Identity{}, domain.ErrTokenVerification
	}
	return domain.Identity{Email: claims.Email, Role: role}, nil
}
