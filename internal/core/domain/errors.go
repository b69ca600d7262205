package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrForbidden    = errors.New("access forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	ErrNotRegistered     = errors.New("user is not registered")
	ErrBanned            = errors.New("user is banned")
	ErrIncorrectPassword = errors.New("incorrect password")

	ErrTokenExpired         = errors.New("token has expired")
	ErrTokenInvalid         = errors.New("invalid token or signature")
	ErrTokenVerification    = errors.New("error during token verification")
	ErrSigningSecretMissing = errors.New("token signing secret is not configured")
)

// ValidationError reports a malformed or missing field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DuplicateKeyError reports a unique-index collision on Field.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("a user with this %s already exists", e.Field)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }
