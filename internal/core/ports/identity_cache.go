package ports

import (
	"context"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
)

// IdentityCache holds short-lived AccountStatus snapshots keyed by email.
// Get reports found=false on a miss; errors are transport failures only.
//
// Every Invalidate bumps a per-email generation. A reader takes Generation
// before it reads the store and passes it to Set, which stores the snapshot
// only while the generation is unchanged. A snapshot read before a
// concurrent write therefore never outlives that write's invalidation.
type IdentityCache interface {
	Get(ctx context.Context, email string) (status domain.AccountStatus, found bool, err error)
	Generation(ctx context.Context, email string) (int64, error)
	Set(ctx context.Context, status domain.AccountStatus, gen int64) (stored bool, err error)
	Invalidate(ctx context.Context, email string) error
}
