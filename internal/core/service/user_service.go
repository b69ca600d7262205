package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
	"github.com/Sajadaliismail/gatekeeper/internal/core/ports"
)

// UserService implements signup, login and account management on top of a
// UserRepository, a PasswordHasher and a TokenService.
type UserService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenService
	cache  ports.IdentityCache
	logger zerolog.Logger
}

// NewUserService wires the use cases. cache may be nil, in which case every
// AccountStatus call goes to the repository.
func NewUserService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenService,
	cache ports.IdentityCache,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		cache:  cache,
		logger: logger,
	}
}

// Signup creates an account with role user. The password is hashed before
// anything is written, so either a complete record exists or none does.
func (s *UserService) Signup(ctx context.Context, in ports.SignupInput) error {
	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	if in.Password == "" {
		return &domain.ValidationError{Field: "password", Reason: "is required"}
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	if existing != nil {
		return domain.ErrUserExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return err
	}

	_, err = s.repo.Create(ctx, &domain.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Address:      in.Address,
	})
	if err != nil {
		// Lost a race with a concurrent signup for the same email.
		if errors.Is(err, domain.ErrDuplicateKey) {
			return domain.ErrUserExists
		}
		return err
	}

	s.logger.Info().Str("email", email).Msg("user signed up")
	return nil
}

// Login checks, in order, that the user exists, is not banned and supplied
// the right password. A banned user never learns whether the password was
// correct.
func (s *UserService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrNotRegistered
		}
		return nil, err
	}

	if user.IsBanned {
		return nil, domain.ErrBanned
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrIncorrectPassword
	}

	token, expiresAt, err := s.tokens.Issue(domain.Identity{Email: user.Email, Role: user.Role})
	if err != nil {
		s.logger.Error().Err(err).Str("email", user.Email).Msg("failed to issue token")
		return nil, err
	}

	s.logger.Info().Str("email", user.Email).Str("role", user.Role.String()).Msg("user logged in")

	return &ports.LoginResult{
		Email:     user.Email,
		Role:      user.Role,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *UserService) GetUserDetails(ctx context.Context, email string) (*domain.UserProfile, error) {
	return s.repo.GetProjectedByEmail(ctx, domain.NormalizeEmail(email))
}

func (s *UserService) FindAllUsers(ctx context.Context) ([]domain.UserProfile, error) {
	return s.repo.FindAll(ctx)
}

// UpdateUser applies patch to the user identified by email. Field validation
// is left to the repository.
func (s *UserService) UpdateUser(ctx context.Context, email string, patch domain.UserPatch) error {
	email = domain.NormalizeEmail(email)

	s.invalidate(ctx, email)
	if _, err := s.repo.UpdateByEmail(ctx, email, patch); err != nil {
		return err
	}
	s.invalidate(ctx, email)

	s.logger.Info().Str("email", email).Msg("user updated")
	return nil
}

func (s *UserService) RemoveUser(ctx context.Context, email string) (bool, error) {
	email = domain.NormalizeEmail(email)

	s.invalidate(ctx, email)
	ok, err := s.repo.DeleteByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	s.invalidate(ctx, email)

	s.logger.Info().Str("email", email).Msg("user removed")
	return ok, nil
}

// AccountStatus returns the existence and ban flag for email, reading
// through the identity cache when one is configured. The repository stays
// authoritative: cache failures are logged and skipped.
func (s *UserService) AccountStatus(ctx context.Context, email string) (domain.AccountStatus, error) {
	email = domain.NormalizeEmail(email)

	var gen int64
	fill := false
	if s.cache != nil {
		status, found, err := s.cache.Get(ctx, email)
		if err != nil {
			s.logger.Warn().Err(err).Str("email", email).Msg("identity cache read failed, using store")
		} else if found {
			return status, nil
		}

		// Taken before the store read so a write that commits meanwhile
		// invalidates this fill.
		if gen, err = s.cache.Generation(ctx, email); err != nil {
			s.logger.Warn().Err(err).Str("email", email).Msg("identity cache generation read failed")
		} else {
			fill = true
		}
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return domain.AccountStatus{}, err
	}

	status := domain.AccountStatus{Email: user.Email, IsBanned: user.IsBanned}
	if fill {
		stored, err := s.cache.Set(ctx, status, gen)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Str("email", email).Msg("identity cache write failed")
		case !stored:
			s.logger.Debug().Str("email", email).Msg("account changed during lookup, status not cached")
		}
	}
	return status, nil
}

// invalidate drops the cached status for email and bumps its generation.
// Callers run it on both sides of a store write; the second call discards
// any fill that read the store before the write committed.
func (s *UserService) invalidate(ctx context.Context, email string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, email); err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("identity cache invalidation failed")
	}
}
