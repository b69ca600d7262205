package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*IdentityCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdentityCache(client, ttl), mr
}

func TestIdentityCache_MissThenHit(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "ann@x.com")
	if err != nil || found {
		t.Fatalf("expected a clean miss, got found=%v err=%v", found, err)
	}

	want := domain.AccountStatus{Email: "ann@x.com", IsBanned: true}
	if stored, err := cache.Set(ctx, want, 0); err != nil || !stored {
		t.Fatalf("set: stored=%v err=%v", stored, err)
	}
	if !mr.Exists("identity:ann@x.com") {
		t.Fatalf("expected key identity:ann@x.com, keys=%v", mr.Keys())
	}

	got, found, err := cache.Get(ctx, " ANN@x.com ")
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestIdentityCache_TTL(t *testing.T) {
	cache, mr := newTestCache(t, 0)
	ctx := context.Background()

	if _, err := cache.Set(ctx, domain.AccountStatus{Email: "ann@x.com"}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL("identity:ann@x.com"); ttl != DefaultIdentityTTL {
		t.Fatalf("expected default ttl %v, got %v", DefaultIdentityTTL, ttl)
	}

	mr.FastForward(DefaultIdentityTTL + time.Second)

	_, found, err := cache.Get(ctx, "ann@x.com")
	if err != nil || found {
		t.Fatalf("expected expiry, got found=%v err=%v", found, err)
	}
}

func TestIdentityCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	if _, err := cache.Set(ctx, domain.AccountStatus{Email: "ann@x.com"}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := cache.Invalidate(ctx, "Ann@X.com"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, found, _ := cache.Get(ctx, "ann@x.com"); found {
		t.Fatalf("expected entry to be gone")
	}

	// Invalidating an absent key is fine.
	if err := cache.Invalidate(ctx, "ghost@x.com"); err != nil {
		t.Fatalf("invalidate absent: %v", err)
	}
}

func TestIdentityCache_InvalidateBumpsGeneration(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	gen, err := cache.Generation(ctx, "ann@x.com")
	if err != nil || gen != 0 {
		t.Fatalf("expected generation 0, got %d err=%v", gen, err)
	}

	for i := 0; i < 2; i++ {
		if err := cache.Invalidate(ctx, "ann@x.com"); err != nil {
			t.Fatalf("invalidate: %v", err)
		}
	}
	gen, err = cache.Generation(ctx, " Ann@x.com")
	if err != nil || gen != 2 {
		t.Fatalf("expected generation 2, got %d err=%v", gen, err)
	}
	if ttl := mr.TTL("identity-gen:ann@x.com"); ttl != generationTTL {
		t.Fatalf("expected generation ttl %v, got %v", generationTTL, ttl)
	}
}

func TestIdentityCache_StaleFillIsDropped(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	// A reader takes the generation, then a ban invalidates before it fills.
	gen, err := cache.Generation(ctx, "ann@x.com")
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if err := cache.Invalidate(ctx, "ann@x.com"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	stored, err := cache.Set(ctx, domain.AccountStatus{Email: "ann@x.com"}, gen)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if stored || mr.Exists("identity:ann@x.com") {
		t.Fatalf("expected the stale fill to be dropped, stored=%v", stored)
	}

	gen, _ = cache.Generation(ctx, "ann@x.com")
	want := domain.AccountStatus{Email: "ann@x.com", IsBanned: true}
	if stored, err := cache.Set(ctx, want, gen); err != nil || !stored {
		t.Fatalf("expected a current fill to be stored, stored=%v err=%v", stored, err)
	}
	got, found, err := cache.Get(ctx, "ann@x.com")
	if err != nil || !found || got != want {
		t.Fatalf("expected %+v, got %+v found=%v err=%v", want, got, found, err)
	}
}

func TestIdentityCache_CorruptEntryIsAMiss(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	if err := mr.Set("identity:ann@x.com", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, found, err := cache.Get(ctx, "ann@x.com"); err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}
	if mr.Exists("identity:ann@x.com") {
		t.Fatalf("expected corrupt entry to be deleted")
	}

	if err := mr.Set("identity:bob@x.com", `{"email":"carol@x.com","isBanned":false}`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, found, err := cache.Get(ctx, "bob@x.com"); err != nil || found {
		t.Fatalf("expected mismatched email to be a miss, got found=%v err=%v", found, err)
	}
}

func TestIdentityCache_ServerDown(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	mr.Close()

	if _, _, err := cache.Get(context.Background(), "ann@x.com"); err == nil {
		t.Fatalf("expected an error when redis is unreachable")
	}
	if _, err := cache.Set(context.Background(), domain.AccountStatus{Email: "ann@x.com"}, 0); err == nil {
		t.Fatalf("expected an error when redis is unreachable")
	}
}

func TestConnect_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := Connect(context.Background(), Config{Addr: addr, Timeout: 200 * time.Millisecond}); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestConnect_OK(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = client.Close()
}
