package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// TTL expiry is autonomous: expired keys disappear without a caller-triggered
// sweep. The memory backend is tested with short real TTLs.

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()

	ctx := context.Background()

	if err := ms.Setex(ctx, "k", 1, "v"); err != nil {
		t.Fatalf("setex failed: %v", err)
	}

	if v, _ := ms.Get(ctx, "k"); v != "v" {
		t.Fatalf("key should be alive before TTL elapses, got %q", v)
	}

	time.Sleep(1200 * time.Millisecond)

	if v, _ := ms.Get(ctx, "k"); v != "" {
		t.Fatalf("key should have expired, got %q", v)
	}
	if n, _ := ms.Exists(ctx, "k"); n != 0 {
		t.Fatalf("exists after expiry: want 0, got %d", n)
	}
}

func TestMemoryStoreTTLResetOnOverwrite(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()

	ctx := context.Background()

	if err := ms.Setex(ctx, "k", 1, "v1"); err != nil {
		t.Fatalf("setex failed: %v", err)
	}

	time.Sleep(600 * time.Millisecond)

	// overwrite re-arms the countdown from now
	if err := ms.Setex(ctx, "k", 1, "v2"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	time.Sleep(600 * time.Millisecond)

	if v, _ := ms.Get(ctx, "k"); v != "v2" {
		t.Fatalf("key should survive past the original TTL, got %q", v)
	}

	time.Sleep(600 * time.Millisecond)

	if v, _ := ms.Get(ctx, "k"); v != "" {
		t.Fatalf("key should have expired after the reset TTL, got %q", v)
	}
}

func TestMemoryStoreDelClearsTTL(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()

	ctx := context.Background()

	if err := ms.Setex(ctx, "k", 1, "v"); err != nil {
		t.Fatalf("setex failed: %v", err)
	}
	if err := ms.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}

	// re-create with a longer TTL: the old timer must not fire on it
	if err := ms.Setex(ctx, "k", 10, "v2"); err != nil {
		t.Fatalf("re-setex failed: %v", err)
	}

	time.Sleep(1200 * time.Millisecond)

	if v, _ := ms.Get(ctx, "k"); v != "v2" {
		t.Fatalf("old timer should not affect the re-created key, got %q", v)
	}
}

func TestValkeyStoreTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()

	vs, err := NewValkeyStore(mr.Addr())
	if err != nil {
		t.Fatalf("valkey store create failed: %v", err)
	}
	defer vs.Close()

	ctx := context.Background()

	if err := vs.Setex(ctx, "k", 2, "v"); err != nil {
		t.Fatalf("setex failed: %v", err)
	}
	if v, _ := vs.Get(ctx, "k"); v != "v" {
		t.Fatalf("key should be alive, got %q", v)
	}

	mr.FastForward(3 * time.Second)

	if v, _ := vs.Get(ctx, "k"); v != "" {
		t.Fatalf("key should have expired, got %q", v)
	}
	if n, _ := vs.Exists(ctx, "k"); n != 0 {
		t.Fatalf("exists after expiry: want 0, got %d", n)
	}
}
