package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
)

// DefaultIdentityTTL bounds how long a ban can go unnoticed by the
// authentication gate when an invalidation is lost.
const DefaultIdentityTTL = 30 * time.Second

// generationTTL outlives any in-flight lookup by a wide margin. It is
// refreshed on every Invalidate.
const generationTTL = 24 * time.Hour

// IdentityCache stores the per-request account status (existence, ban flag)
// so the authentication gate does not hit MongoDB on every call.
// Key format: identity:<email>, generation counter: identity-gen:<email>
type IdentityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdentityCache wraps client. A non-positive ttl falls back to
// DefaultIdentityTTL.
func NewIdentityCache(client *redis.Client, ttl time.Duration) *IdentityCache {
	if ttl <= 0 {
		ttl = DefaultIdentityTTL
	}
	return &IdentityCache{client: client, ttl: ttl}
}

// Get returns the cached status for email. found is false on a miss.
func (c *IdentityCache) Get(ctx context.Context, email string) (domain.AccountStatus, bool, error) {
	raw, err := c.client.Get(ctx, c.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.AccountStatus{}, false, nil
		}
		return domain.AccountStatus{}, false, fmt.Errorf("identity cache get: %w", err)
	}

	var status domain.AccountStatus
	if err := json.Unmarshal(raw, &status); err != nil || status.Email != domain.NormalizeEmail(email) {
		// A corrupt or mismatched entry is dropped and treated as a miss.
		_ = c.client.Del(ctx, c.key(email)).Err()
		return domain.AccountStatus{}, false, nil
	}
	return status, true, nil
}

// Generation returns the invalidation counter for email, 0 if none was
// ever recorded.
func (c *IdentityCache) Generation(ctx context.Context, email string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("identity cache generation: %w", err)
	}
	return gen, nil
}

// Set stores status only if the generation of its email still equals gen.
// The check and the write run under WATCH, so an Invalidate landing between
// them aborts the transaction and nothing is stored.
func (c *IdentityCache) Set(ctx context.Context, status domain.AccountStatus, gen int64) (bool, error) {
	raw, err := json.Marshal(status)
	if err != nil {
		return false, fmt.Errorf("identity cache encode: %w", err)
	}

	genKey := c.genKey(status.Email)
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(status.Email), raw, c.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		stored = true
		return nil
	}, genKey)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("identity cache set: %w", err)
	}
	return stored, nil
}

// Invalidate drops the cached status and bumps the generation in one
// transaction.
func (c *IdentityCache) Invalidate(ctx context.Context, email string) error {
	genKey := c.genKey(email)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key(email))
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("identity cache invalidate: %w", err)
	}
	return nil
}

func (c *IdentityCache) key(email string) string {
	return "identity:" + domain.NormalizeEmail(email)
}

func (c *IdentityCache) genKey(email string) string {
	return "identity-gen:" + domain.NormalizeEmail(email)
}
