package redis

import (
	"context"
	"testing"
	"time"
)

func TestIdempotencyStore_ClaimLifecycle(t *testing.T) {
	client, mr := newTestRedisClient(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()
	const key = "u1:create-lunch"

	exists, resp, err := store.CheckAndSet(ctx, key, nil, time.Minute)
	if err != nil || exists || resp != nil {
		t.Fatalf("first claim: exists=%v resp=%s err=%v", exists, resp, err)
	}

	got, err := mr.Get(store.key(key))
	if err != nil || got != processingMarker {
		t.Fatalf("expected processing marker, got %q err=%v", got, err)
	}

	exists, resp, err = store.CheckAndSet(ctx, key, nil, time.Minute)
	if err != nil || !exists || string(resp) != processingMarker {
		t.Fatalf("concurrent claim: exists=%v resp=%s err=%v", exists, resp, err)
	}

	body := []byte(`{"status":201,"body":"e30="}`)
	if err := store.Update(ctx, key, body, time.Minute); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	exists, resp, err = store.CheckAndSet(ctx, key, nil, time.Minute)
	if err != nil || !exists || string(resp) != string(body) {
		t.Fatalf("replay: exists=%v resp=%s err=%v", exists, resp, err)
	}
}

func TestIdempotencyStore_ReleaseOnlyDropsInFlightClaims(t *testing.T) {
	client, mr := newTestRedisClient(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "failed", nil, time.Minute); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := store.Release(ctx, "failed"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if mr.Exists(store.key("failed")) {
		t.Fatalf("expected in-flight claim to be released")
	}

	if err := store.Update(ctx, "done", []byte("stored"), time.Minute); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := store.Release(ctx, "done"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if !mr.Exists(store.key("done")) {
		t.Fatalf("expected stored response to survive release")
	}
}

func TestIdempotencyStore_ClaimExpires(t *testing.T) {
	client, mr := newTestRedisClient(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "slow", nil, time.Second); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	mr.FastForward(2 * time.Second)

	exists, _, err := store.CheckAndSet(ctx, "slow", nil, time.Second)
	if err != nil || exists {
		t.Fatalf("expected expired claim to be reclaimable, exists=%v err=%v", exists, err)
	}
}
