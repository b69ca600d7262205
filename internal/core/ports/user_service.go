package ports

import (
	"context"
	"time"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
)

// SignupInput is the DTO passed from the transport layer to Signup.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Address  string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Email     string
	Role      domain.Role
	Token     string
	ExpiresAt time.Time
}

// UserService holds the signup, login and account management use cases.
type UserService interface {
	Signup(ctx context.Context, input SignupInput) error
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	GetUserDetails(ctx context.Context, email string) (*domain.UserProfile, error)
	FindAllUsers(ctx context.Context) ([]domain.UserProfile, error)
	UpdateUser(ctx context.Context, email string, patch domain.UserPatch) error
	RemoveUser(ctx context.Context, email string) (bool, error)
	AccountStatus(ctx context.Context, email string) (domain.AccountStatus, error)
}
