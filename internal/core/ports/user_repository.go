package ports

import (
	"context"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
)

// UserRepository defines persistence operations for user records.
// Read paths that return UserProfile never carry the password hash.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindAll returns every user with the password projected out.
	FindAll(ctx context.Context) ([]domain.UserProfile, error)
	// GetProjectedByEmail returns one user with password and id projected out.
	GetProjectedByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// UpdateByEmail applies only the non-nil fields of patch.
	UpdateByEmail(ctx context.Context, email string, patch domain.UserPatch) (*domain.User, error)
	// DeleteByEmail reports true once no record with email exists.
	DeleteByEmail(ctx context.Context, email string) (bool, error)
}
